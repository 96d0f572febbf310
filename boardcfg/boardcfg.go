// Package boardcfg turns named board profiles into driver configuration.
// Profiles are JSON compiled into the binary, or JSON/YAML files on disk.
package boardcfg

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"

	"periphcore-go/dma"
	"periphcore-go/errcode"
	"periphcore-go/scheduler"
	"periphcore-go/uart"
	"periphcore-go/uartio"
)

// EmbeddedProfileLookup allows overriding how profiles are resolved.
var EmbeddedProfileLookup = func(name string) ([]byte, bool) {
	b, ok := embeddedProfiles[name]
	return b, ok
}

// Names lists the embedded profiles in order.
func Names() []string {
	names := make([]string, 0, len(embeddedProfiles))
	for k := range embeddedProfiles {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

// DMA describes the channel and buffers serving one direction.
type DMA struct {
	Channel  int  `json:"channel" yaml:"channel"`
	Bytes    int  `json:"bytes" yaml:"bytes"` // per buffer
	PingPong bool `json:"ping_pong" yaml:"ping_pong"`
}

// Buffer selects the discipline for one direction.
type Buffer struct {
	Mode string `json:"mode" yaml:"mode"` // "hw" (default), "dma", "sw", "hybrid"
	Size int    `json:"size" yaml:"size"`
	DMA  *DMA   `json:"dma,omitempty" yaml:"dma,omitempty"`
}

// Profile is one board's UART setup.
type Profile struct {
	UART       int     `json:"uart" yaml:"uart"`
	Baud       string  `json:"baud" yaml:"baud"`             // bps, "auto" or empty
	Framing    string  `json:"framing" yaml:"framing"`       // 8n1 8e1 8o1 8n2 8e2 8o2 9n1 9n2 irda irda-ext lin
	Addressing string  `json:"addressing" yaml:"addressing"` // "", "mask", "promiscuous"
	LocalAddrs []uint8 `json:"local_addrs" yaml:"local_addrs"`
	Loopback   bool    `json:"loopback" yaml:"loopback"`
	Flow       string  `json:"flow" yaml:"flow"` // "", "rts", "rtscts"
	RTS        string  `json:"rts" yaml:"rts"`   // "", "flow", "simplex"
	StopInIdle bool    `json:"stop_in_idle" yaml:"stop_in_idle"`
	TX         Buffer  `json:"tx" yaml:"tx"`
	RX         Buffer  `json:"rx" yaml:"rx"`
	TickHz     int     `json:"tick_hz" yaml:"tick_hz"`
}

func invalid(msg string) error {
	return &errcode.E{C: errcode.ConfigInvalid, Op: "boardcfg", Msg: msg}
}

// DecodeJSON decodes bytes, a string, or any JSON-marshalable value into dst.
func DecodeJSON[T any](src any, dst *T) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return json.Unmarshal(b, dst)
	}
}

// Load resolves an embedded profile by name.
func Load(name string) (*Profile, error) {
	raw, ok := EmbeddedProfileLookup(name)
	if !ok || len(raw) == 0 {
		return nil, invalid("no embedded profile: " + name)
	}
	var p Profile
	if err := DecodeJSON(raw, &p); err != nil {
		return nil, errcode.Wrap(errcode.ConfigInvalid, "boardcfg", err)
	}
	return &p, p.Validate()
}

// LoadFile reads a profile from disk. Files ending in .yaml or .yml are YAML,
// anything else JSON.
func LoadFile(path string) (*Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var p Profile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &p)
	default:
		err = DecodeJSON(raw, &p)
	}
	if err != nil {
		return nil, errcode.Wrap(errcode.ConfigInvalid, "boardcfg", err)
	}
	return &p, p.Validate()
}

// Validate checks that every field maps onto the driver configuration.
func (p *Profile) Validate() error {
	if p.UART < 1 || p.UART > 4 {
		return invalid("uart must be 1..4")
	}
	if _, err := p.BaudRate(); err != nil {
		return err
	}
	attr, err := p.Attr()
	if err != nil {
		return err
	}
	for _, b := range []Buffer{p.TX, p.RX} {
		mode, _ := bufferMode(b.Mode)
		needs := mode == uart.DMA || mode == uart.Hybrid
		if needs != (b.DMA != nil) {
			return invalid("dma block must be given exactly for dma and hybrid modes")
		}
		if b.DMA != nil && (b.DMA.Bytes <= 0 || b.DMA.Channel < 0 || b.DMA.Channel > 7) {
			return invalid("bad dma block")
		}
	}
	if len(p.LocalAddrs) > 0 && attr.Mode.Framing != uart.NineBit {
		return invalid("local_addrs need 9-bit framing")
	}
	if len(p.LocalAddrs) > uart.MaxLocalAddrs {
		return invalid("too many local_addrs")
	}
	if p.TickHz < 0 {
		return invalid("tick_hz must not be negative")
	}
	return nil
}

// BaudRate maps the baud field; empty leaves the generator unset.
func (p *Profile) BaudRate() (uart.Baud, error) {
	switch p.Baud {
	case "":
		return uart.BaudUnset, nil
	case "auto":
		return uart.BaudAuto, nil
	}
	bps, err := strconv.Atoi(p.Baud)
	if err != nil {
		return uart.BaudUnset, invalid("baud: " + p.Baud)
	}
	b, ok := uart.BaudFor(bps)
	if !ok {
		return uart.BaudUnset, invalid("unsupported baud: " + p.Baud)
	}
	return b, nil
}

// Tick is the scheduler rate, defaulting to scheduler.TickHz.
func (p *Profile) Tick() int {
	if p.TickHz == 0 {
		return scheduler.TickHz
	}
	return p.TickHz
}

func bufferMode(s string) (uart.BufferMode, bool) {
	switch s {
	case "", "hw":
		return uart.HardwareOnly, true
	case "dma":
		return uart.DMA, true
	case "sw":
		return uart.Software, true
	case "hybrid":
		return uart.Hybrid, true
	}
	return 0, false
}

func framing(s string, m *uart.ModeSettings) bool {
	switch s {
	case "irda":
		m.Framing = uart.IrDA
		return true
	case "irda-ext":
		m.Framing, m.IrDA = uart.IrDA, uart.IrDAExternal
		return true
	case "lin":
		m.Framing = uart.LIN
		return true
	case "":
		return true
	}
	if len(s) != 3 {
		return false
	}
	switch s[0] {
	case '8':
	case '9':
		m.Framing = uart.NineBit
	default:
		return false
	}
	switch s[1] {
	case 'n':
	case 'e':
		m.Parity = uart.ParityEven
	case 'o':
		m.Parity = uart.ParityOdd
	default:
		return false
	}
	switch s[2] {
	case '1':
	case '2':
		m.StopBits = uart.Stop2
	default:
		return false
	}
	return m.Framing != uart.NineBit || m.Parity == uart.ParityNone
}

// Attr builds the UART attributes.
func (p *Profile) Attr() (uart.Attr, error) {
	var a uart.Attr
	if !framing(p.Framing, &a.Mode) {
		return a, invalid("framing: " + p.Framing)
	}
	switch p.Addressing {
	case "":
	case "mask":
		a.Mode.Addressing = uart.AddressMask
	case "promiscuous":
		a.Mode.Addressing = uart.AddressPromiscuous
	default:
		return a, invalid("addressing: " + p.Addressing)
	}
	a.Mode.Loopback = p.Loopback
	switch p.Flow {
	case "":
	case "rts":
		a.Module.Flow = uart.FlowRTS
	case "rtscts":
		a.Module.Flow = uart.FlowRTSCTS
	default:
		return a, invalid("flow: " + p.Flow)
	}
	switch p.RTS {
	case "", "flow":
	case "simplex":
		a.Module.RTS = uart.RTSSimplex
	default:
		return a, invalid("rts: " + p.RTS)
	}
	if p.StopInIdle {
		a.Module.Idle = uart.StopInIdle
	}
	var ok bool
	if a.TX.Mode, ok = bufferMode(p.TX.Mode); !ok {
		return a, invalid("tx mode: " + p.TX.Mode)
	}
	if a.RX.Mode, ok = bufferMode(p.RX.Mode); !ok {
		return a, invalid("rx mode: " + p.RX.Mode)
	}
	a.TX.Size, a.RX.Size = p.TX.Size, p.RX.Size
	return a, nil
}

func (b Buffer) channel(pool *dma.Pool) (*dma.Channel, error) {
	if b.DMA == nil {
		return nil, nil
	}
	a, err := pool.Take(b.DMA.Bytes)
	if err != nil {
		return nil, err
	}
	ch := &dma.Channel{Number: b.DMA.Channel, BufferA: a}
	if b.DMA.PingPong {
		if ch.BufferB, err = pool.Take(b.DMA.Bytes); err != nil {
			return nil, err
		}
	}
	return ch, nil
}

// PortConfig builds an uartio.Config, carving DMA buffers from pool.
func (p *Profile) PortConfig(pool *dma.Pool) (uartio.Config, error) {
	var cfg uartio.Config
	if err := p.Validate(); err != nil {
		return cfg, err
	}
	cfg.Number = p.UART
	cfg.Attr, _ = p.Attr()
	cfg.Baud, _ = p.BaudRate()
	var err error
	if cfg.TXDMA, err = p.TX.channel(pool); err != nil {
		return cfg, err
	}
	if cfg.RXDMA, err = p.RX.channel(pool); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Open builds the port and applies the local address list.
func (p *Profile) Open(pool *dma.Pool) (*uartio.Port, error) {
	cfg, err := p.PortConfig(pool)
	if err != nil {
		return nil, err
	}
	port, err := uartio.Open(cfg)
	if err != nil {
		return nil, err
	}
	for _, a := range p.LocalAddrs {
		if err := port.Module().AddLocalAddr(a); err != nil {
			port.Close()
			return nil, err
		}
	}
	return port, nil
}
