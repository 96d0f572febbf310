package uart

import "periphcore-go/internal/regs"

// IdleMode selects behaviour while the CPU idles.
type IdleMode uint8

const (
	ContinueInIdle IdleMode = iota
	StopInIdle
)

type FlowControl uint8

const (
	FlowNone FlowControl = iota
	FlowRTS
	FlowRTSCTS
)

type RTSMode uint8

const (
	RTSFlow RTSMode = iota
	RTSSimplex
)

// Polarity is the idle level of a line.
type Polarity uint8

const (
	IdleHigh Polarity = iota
	IdleLow
)

// ModuleSettings covers pins and power behaviour.
type ModuleSettings struct {
	Idle        IdleMode
	WakeOnStart bool
	Flow        FlowControl
	RTS         RTSMode
	RXIdle      Polarity
	TXIdle      Polarity
}

// Framing is the major framing mode.
type Framing uint8

const (
	Standard Framing = iota // 8 data bits
	NineBit
	IrDA
	LIN
)

func (f Framing) String() string {
	switch f {
	case Standard:
		return "standard"
	case NineBit:
		return "9-bit"
	case IrDA:
		return "irda"
	case LIN:
		return "lin"
	}
	return "unknown"
}

type Parity uint8

const (
	ParityNone Parity = iota
	ParityEven
	ParityOdd
)

type StopBits uint8

const (
	Stop1 StopBits = iota
	Stop2
)

// Addressing selects how 9-bit address frames are treated.
type Addressing uint8

const (
	DataOnly Addressing = iota
	AddressMask
	AddressPromiscuous
)

type IrDAEncoder uint8

const (
	IrDAInternal IrDAEncoder = iota
	IrDAExternal
)

// ModeSettings covers framing and test modes.
type ModeSettings struct {
	Framing    Framing
	DataBits   int // 0 selects the framing's width; only 8 (9 for NineBit) is supported
	Parity     Parity
	StopBits   StopBits
	Addressing Addressing
	IrDA       IrDAEncoder
	Loopback   bool
}

// BufferMode selects the buffer discipline for one direction.
type BufferMode uint8

const (
	HardwareOnly BufferMode = iota
	DMA
	Software
	Hybrid
)

func (b BufferMode) String() string {
	switch b {
	case HardwareOnly:
		return "hw"
	case DMA:
		return "dma"
	case Software:
		return "sw"
	case Hybrid:
		return "hybrid"
	}
	return "unknown"
}

// DefaultRingSize is used when a software ring is requested without a size.
const DefaultRingSize = 16

// BufferSettings configures one direction. Size is the software ring size in
// units; 0 means DefaultRingSize, or the DMA buffer size in hybrid mode.
type BufferSettings struct {
	Mode BufferMode
	Size int
}

// Attr is the full configuration applied by Init. The zero value is
// continue-in-idle, no flow control, 8N1 and hardware-only buffering.
type Attr struct {
	Module ModuleSettings
	Mode   ModeSettings
	TX     BufferSettings
	RX     BufferSettings
}

var ringSizes = [...]int{4, 8, 12, 16, 24, 32, 64, 128}

func validRingSize(n int) bool {
	for _, s := range ringSizes {
		if s == n {
			return true
		}
	}
	return false
}

func (a *Attr) validate() error {
	m := a.Module
	if m.Idle > StopInIdle || m.Flow > FlowRTSCTS || m.RTS > RTSSimplex || m.RXIdle > IdleLow || m.TXIdle > IdleLow {
		return ErrConfigInvalid
	}
	f := a.Mode
	if f.Framing > LIN || f.Parity > ParityOdd || f.StopBits > Stop2 || f.Addressing > AddressPromiscuous || f.IrDA > IrDAExternal {
		return ErrConfigInvalid
	}
	switch f.Framing {
	case NineBit:
		if f.Parity != ParityNone || (f.DataBits != 0 && f.DataBits != 9) {
			return ErrConfigInvalid
		}
	default:
		if f.DataBits != 0 && f.DataBits != 8 {
			return ErrConfigInvalid
		}
	}
	if f.Framing == IrDA && f.IrDA == IrDAExternal && m.Flow != FlowNone {
		// the BCLK pin takes the place of RTS/CTS
		return ErrConfigInvalid
	}
	for _, b := range []BufferSettings{a.TX, a.RX} {
		if b.Mode > Hybrid {
			return ErrConfigInvalid
		}
		if b.Size != 0 && !validRingSize(b.Size) {
			return ErrConfigInvalid
		}
	}
	return nil
}

func (a *Attr) nineBit() bool { return a.Mode.Framing == NineBit }

// modeBits encodes module and framing settings into UxMODE, without UARTEN.
func (a *Attr) modeBits() uint16 {
	var v uint16
	m := a.Module
	if m.Idle == StopInIdle {
		v |= regs.MODE_USIDL
	}
	if m.WakeOnStart {
		v |= regs.MODE_WAKE
	}
	uen := uint16(regs.UEN_TXRX)
	switch m.Flow {
	case FlowRTS:
		uen = regs.UEN_RTS
	case FlowRTSCTS:
		uen = regs.UEN_RTSCTS
	}
	f := a.Mode
	if f.Framing == IrDA {
		if f.IrDA == IrDAInternal {
			v |= regs.MODE_IREN
		} else {
			uen = regs.UEN_BCLK
		}
	}
	v |= uen << regs.MODE_UEN_Pos
	if m.RTS == RTSSimplex {
		v |= regs.MODE_RTSMD
	}
	if m.RXIdle == IdleLow {
		v |= regs.MODE_URXINV
	}
	pd := uint16(regs.PDSEL_8N)
	switch {
	case f.Framing == NineBit:
		pd = regs.PDSEL_9N
	case f.Parity == ParityEven:
		pd = regs.PDSEL_8E
	case f.Parity == ParityOdd:
		pd = regs.PDSEL_8O
	}
	v |= pd << regs.MODE_PDSEL_Pos
	if f.StopBits == Stop2 {
		v |= regs.MODE_STSEL
	}
	if f.Loopback {
		v |= regs.MODE_LPBACK
	}
	return v
}

// hwAddrDetect reports whether the receiver's address-detect mode gates data
// frames. A DMA-fed receiver must see every frame, so it filters in software.
func (a *Attr) hwAddrDetect() bool {
	return a.Mode.Framing == NineBit && a.Mode.Addressing == AddressMask && !needsDMA(a.RX.Mode)
}

// staBits encodes the status-register settings applied at Init.
func (a *Attr) staBits() uint16 {
	var v uint16
	if a.Module.TXIdle == IdleLow {
		v |= regs.STA_UTXINV
	}
	if a.hwAddrDetect() {
		v |= regs.STA_ADDEN
	}
	return v
}
