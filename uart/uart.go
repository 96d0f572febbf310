// Package uart is the UART transport core. A Module moves bytes (or 9-bit
// words) between the application and the wire through one of four buffer
// disciplines per direction: the hardware FIFO alone, a DMA channel, a
// software ring drained by interrupts, or a ring feeding a DMA channel.
//
// All calls are non-blocking. Writes return the number of units accepted
// into the driver and reads the number of units delivered; a zero count
// means retry later.
package uart

import (
	"golang.org/x/exp/slices"

	"periphcore-go/dma"
	"periphcore-go/errcode"
	"periphcore-go/internal/irq"
	"periphcore-go/internal/regs"
)

var (
	ErrModuleInvalid = &errcode.E{C: errcode.ModuleInvalid, Op: "uart", Msg: "module invalid"}
	ErrConfigInvalid = &errcode.E{C: errcode.ConfigInvalid, Op: "uart", Msg: "config invalid"}
	ErrInputInvalid  = &errcode.E{C: errcode.InputInvalid, Op: "uart", Msg: "input invalid"}
	ErrClosed        = &errcode.E{C: errcode.Closed, Op: "uart", Msg: "closed"}
	ErrDMA           = &errcode.E{C: errcode.DMAError, Op: "uart", Msg: "dma channel rejected"}
	ErrAddrListFull  = &errcode.E{C: errcode.SoftwareBufferError, Op: "uart", Msg: "local address list full"}
	ErrNoDiscipline  = &errcode.E{C: errcode.AssertionFailed, Op: "uart", Msg: "no discipline"}
)

// MaxLocalAddrs is the capacity of the 9-bit local address list.
const MaxLocalAddrs = 8

// Direction selects the receive side, the transmit side or both.
type Direction uint8

const (
	RX   Direction = 1 << 0
	TX   Direction = 1 << 1
	TXRX           = RX | TX
)

func (d Direction) String() string {
	switch d {
	case 0:
		return "none"
	case RX:
		return "rx"
	case TX:
		return "tx"
	case TXRX:
		return "txrx"
	}
	return "invalid"
}

// Callback runs in interrupt context. It must not call Write, Read or Flush.
type Callback func()

// Module is one UART. Build it with New, then Init.
type Module struct {
	number     int
	txCallback Callback
	rxCallback Callback
	priv       *state
}

type state struct {
	attr  Attr
	r     *regs.UART
	txDMA *dma.Channel
	rxDMA *dma.Channel

	baud  Baud
	open  Direction
	addrs []uint8
	admit bool

	tx    txPath
	rx    rxPath
	txIRQ irq.Vector
	rxIRQ irq.Vector

	stats Stats
}

// New returns an uninitialized module for UART number (1-based). The
// callbacks may be nil.
func New(number int, txCallback, rxCallback Callback) *Module {
	return &Module{number: number, txCallback: txCallback, rxCallback: rxCallback}
}

// Number is the UART number.
func (m *Module) Number() int { return m.number }

func (m *Module) valid() bool { return m != nil && m.priv != nil }

// IsValid reports whether Init succeeded and Cleanup has not run since.
func (m *Module) IsValid() bool {
	return m.valid() && m.priv.tx != nil && m.priv.rx != nil
}

// Init resets the UART, applies attr, sets up any software rings and
// initializes the DMA channels the disciplines name. The channels must be
// described (number and buffers) but not initialized; Init programs their
// trigger and peripheral address. A failed Init leaves the module clean.
func (m *Module) Init(attr Attr, txDMA, rxDMA *dma.Channel) error {
	if m == nil || regs.UARTn(m.number) == nil {
		return ErrModuleInvalid
	}
	if m.priv != nil {
		return ErrConfigInvalid
	}
	if err := attr.validate(); err != nil {
		return err
	}
	if needsDMA(attr.TX.Mode) && (txDMA == nil || txDMA.IsValid()) {
		return ErrInputInvalid
	}
	if needsDMA(attr.RX.Mode) && (rxDMA == nil || rxDMA.IsValid()) {
		return ErrInputInvalid
	}

	s := &state{
		attr:  attr,
		r:     regs.UARTn(m.number),
		txIRQ: regs.UARTTXIRQ(m.number),
		rxIRQ: regs.UARTRXIRQ(m.number),
		addrs: make([]uint8, 0, MaxLocalAddrs),
	}
	m.priv = s

	irq.Mask(s.txIRQ)
	irq.Mask(s.rxIRQ)
	s.r.MODE.Set(regs.UARTResetMODE)
	s.r.STA.Set(regs.UARTResetSTA)
	s.r.BRG.Set(regs.UARTResetBRG)

	s.r.MODE.Set(attr.modeBits())
	s.r.STA.Set(attr.staBits())

	base := regs.UARTBase(m.number)
	var txSaved, rxSaved binding
	fail := func(err error) error {
		m.Cleanup()
		txSaved.restore()
		rxSaved.restore()
		return errcode.Wrap(errcode.DMAError, "uart.Init", err)
	}
	if needsDMA(attr.TX.Mode) {
		txSaved = saveBinding(txDMA)
		txDMA.Peripheral = base + regs.UARTOffTXREG
		txDMA.Trigger = s.txIRQ
		txDMA.Handler = func() { m.DMAISR(TX) }
		if err := txDMA.Init(dma.Attr{
			Mode:      dma.OneShot,
			Width:     unitWidth(&attr),
			Direction: dma.ToPeripheral,
		}); err != nil {
			return fail(err)
		}
		s.txDMA = txDMA
	}
	if needsDMA(attr.RX.Mode) {
		rxSaved = saveBinding(rxDMA)
		rxDMA.Peripheral = base + regs.UARTOffRXREG
		rxDMA.Trigger = s.rxIRQ
		rxDMA.Handler = func() { m.DMAISR(RX) }
		if err := rxDMA.Init(dma.Attr{
			Mode:      dma.Continuous,
			PingPong:  !rxDMA.BufferB.IsZero(),
			Width:     unitWidth(&attr),
			Direction: dma.FromPeripheral,
		}); err != nil {
			return fail(err)
		}
		s.rxDMA = rxDMA
	}

	txd, okTX := disciplineOf(attr.Mode.Framing, attr.TX.Mode)
	rxd, okRX := disciplineOf(attr.Mode.Framing, attr.RX.Mode)
	if !okTX || !okRX {
		// validate admits only framings and modes with a discipline
		m.Cleanup()
		return ErrNoDiscipline
	}
	s.tx = txPaths[txd](m)
	s.rx = rxPaths[rxd](m)

	irq.ClearFlag(s.txIRQ)
	irq.ClearFlag(s.rxIRQ)
	irq.Install(s.txIRQ, m.TxISR)
	irq.Install(s.rxIRQ, m.RxISR)
	return nil
}

// binding is the part of a dma.Channel that Init fills in for the UART.
type binding struct {
	ch      *dma.Channel
	periph  uint16
	trigger irq.Vector
	handler func()
}

func saveBinding(ch *dma.Channel) binding {
	return binding{ch: ch, periph: ch.Peripheral, trigger: ch.Trigger, handler: ch.Handler}
}

func (b binding) restore() {
	if b.ch != nil {
		b.ch.Peripheral, b.ch.Trigger, b.ch.Handler = b.periph, b.trigger, b.handler
	}
}

func needsDMA(b BufferMode) bool { return b == DMA || b == Hybrid }

func unitWidth(a *Attr) dma.Width {
	if a.nineBit() {
		return dma.Word
	}
	return dma.Byte
}

// ringSize resolves the configured ring size for a direction.
func ringSize(b BufferSettings, ch *dma.Channel) int {
	if b.Size != 0 {
		return b.Size
	}
	if b.Mode == Hybrid && ch != nil && ch.Units() > 0 {
		return ch.Units()
	}
	return DefaultRingSize
}

// Cleanup closes the module, releases its DMA channels and returns the
// registers to their reset values. It is safe to call more than once.
func (m *Module) Cleanup() error {
	if !m.valid() {
		return nil
	}
	s := m.priv
	if s.tx != nil && s.rx != nil {
		m.Close(TXRX)
	}
	irq.Uninstall(s.txIRQ)
	irq.Uninstall(s.rxIRQ)
	if s.txDMA != nil {
		s.txDMA.Cleanup()
	}
	if s.rxDMA != nil {
		s.rxDMA.Cleanup()
	}
	s.r.MODE.Set(regs.UARTResetMODE)
	s.r.STA.Set(regs.UARTResetSTA)
	s.r.BRG.Set(regs.UARTResetBRG)
	m.priv = nil
	return nil
}

// SetBaudRate programs the generator from the rate table. It cancels an
// armed auto-baud.
func (m *Module) SetBaudRate(b Baud) error {
	if !m.IsValid() {
		return ErrModuleInvalid
	}
	if b == BaudUnset || b >= BaudAuto {
		return ErrInputInvalid
	}
	s := m.priv
	d := baudTable[b]
	st := irq.Disable()
	mode := s.r.MODE.Get() &^ (regs.MODE_ABAUD | regs.MODE_BRGH)
	if d.high {
		mode |= regs.MODE_BRGH
	}
	s.r.MODE.Set(mode)
	s.r.BRG.Set(d.brg)
	s.baud = b
	irq.Restore(st)
	return nil
}

// AutoBaud arms the receiver to measure the next 0x55 sync character. Until
// it arrives BaudRate reports BaudAuto.
func (m *Module) AutoBaud() error {
	if !m.IsValid() {
		return ErrModuleInvalid
	}
	s := m.priv
	st := irq.Disable()
	s.r.MODE.SetBits(regs.MODE_ABAUD)
	s.baud = BaudAuto
	irq.Restore(st)
	return nil
}

// BaudRate returns the current rate. A completed auto-baud is mapped to the
// nearest table entry.
func (m *Module) BaudRate() (Baud, error) {
	if !m.IsValid() {
		return BaudUnset, ErrModuleInvalid
	}
	m.resolveAutoBaud()
	return m.priv.baud, nil
}

func (m *Module) resolveAutoBaud() {
	s := m.priv
	if s.baud != BaudAuto {
		return
	}
	mode := s.r.MODE.Get()
	if mode&regs.MODE_ABAUD != 0 {
		return
	}
	s.baud = nearestBaud(s.r.BRG.Get(), mode&regs.MODE_BRGH != 0)
}

// AddLocalAddr adds addr to the list matched against 9-bit address frames.
// Adding an address already present is a no-op.
func (m *Module) AddLocalAddr(addr uint8) error {
	if !m.IsValid() {
		return ErrModuleInvalid
	}
	s := m.priv
	if !s.attr.nineBit() {
		return ErrInputInvalid
	}
	st := irq.Disable()
	defer irq.Restore(st)
	if slices.Contains(s.addrs, addr) {
		return nil
	}
	if len(s.addrs) == MaxLocalAddrs {
		return ErrAddrListFull
	}
	s.addrs = append(s.addrs, addr)
	return nil
}

// RemoveLocalAddr drops addr from the local address list.
func (m *Module) RemoveLocalAddr(addr uint8) error {
	if !m.IsValid() {
		return ErrModuleInvalid
	}
	s := m.priv
	st := irq.Disable()
	defer irq.Restore(st)
	i := slices.Index(s.addrs, addr)
	if i < 0 {
		return ErrInputInvalid
	}
	s.addrs = slices.Delete(s.addrs, i, i+1)
	return nil
}

// LocalAddrs returns a copy of the local address list.
func (m *Module) LocalAddrs() []uint8 {
	if !m.IsValid() {
		return nil
	}
	st := irq.Disable()
	defer irq.Restore(st)
	return slices.Clone(m.priv.addrs)
}

// accept applies 9-bit address filtering to one received frame. It runs in
// the receive path with interrupts of this module effectively serialized.
func (s *state) accept(v uint16) bool {
	if !s.attr.nineBit() || s.attr.Mode.Addressing != AddressMask {
		return true
	}
	if v&0x100 == 0 {
		return s.admit
	}
	s.admit = slices.Contains(s.addrs, uint8(v))
	if s.attr.hwAddrDetect() {
		if s.admit {
			s.r.STA.ClearBits(regs.STA_ADDEN)
		} else {
			s.r.STA.SetBits(regs.STA_ADDEN)
		}
	}
	s.dbgAddr(s.admit)
	return false
}

// Open enables RX, or TX on top of an open RX, or both. TX alone on a closed
// module is rejected: the transmitter needs the receiver powered.
func (m *Module) Open(d Direction) error {
	if !m.IsValid() {
		return ErrModuleInvalid
	}
	s := m.priv
	switch d {
	case RX:
		m.openRX()
	case TX:
		if s.open&RX == 0 {
			return ErrInputInvalid
		}
		m.openTX()
	case TXRX:
		m.openRX()
		m.openTX()
	default:
		return ErrInputInvalid
	}
	return nil
}

func (m *Module) openRX() {
	s := m.priv
	if s.open&RX != 0 {
		return
	}
	s.r.MODE.SetBits(regs.MODE_UARTEN)
	s.open |= RX
	s.rx.open()
}

func (m *Module) openTX() {
	s := m.priv
	if s.open&TX != 0 {
		return
	}
	s.r.STA.SetBits(regs.STA_UTXEN)
	s.open |= TX
	s.tx.open()
}

// Close disables TX, or RX once TX is closed, or both, and stops any DMA
// channel serving the closed side.
func (m *Module) Close(d Direction) error {
	if !m.IsValid() {
		return ErrModuleInvalid
	}
	s := m.priv
	switch d {
	case RX:
		if s.open&TX != 0 {
			return ErrInputInvalid
		}
		m.closeRX()
	case TX:
		m.closeTX()
	case TXRX:
		m.closeTX()
		m.closeRX()
	default:
		return ErrInputInvalid
	}
	return nil
}

func (m *Module) closeTX() {
	s := m.priv
	if s.open&TX == 0 {
		return
	}
	s.tx.close()
	s.r.STA.ClearBits(regs.STA_UTXEN)
	s.open &^= TX
}

func (m *Module) closeRX() {
	s := m.priv
	if s.open&RX == 0 {
		return
	}
	s.rx.close()
	s.r.MODE.ClearBits(regs.MODE_UARTEN)
	s.open &^= RX
}

// IsOpen reports whether every direction in d is open.
func (m *Module) IsOpen(d Direction) bool {
	return m.IsValid() && d != 0 && m.priv.open&d == d
}

// Write queues bytes for transmission in 8-bit framings and returns how many
// were accepted.
func (m *Module) Write(p []byte) (int, error) {
	return write(m, p)
}

// WriteWords queues 9-bit frames; bit 8 marks an address frame.
func (m *Module) WriteWords(p []uint16) (int, error) {
	return write(m, p)
}

func write[T unit](m *Module, p []T) (int, error) {
	if !m.IsValid() {
		return 0, ErrModuleInvalid
	}
	s := m.priv
	w, ok := s.tx.(writer[T])
	if !ok {
		return 0, ErrInputInvalid
	}
	if s.open&TX == 0 {
		return 0, ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	return w.write(p), nil
}

// Read copies received bytes into p and returns how many.
func (m *Module) Read(p []byte) (int, error) {
	return read(m, p)
}

// ReadWords copies received 9-bit frames into p.
func (m *Module) ReadWords(p []uint16) (int, error) {
	return read(m, p)
}

func read[T unit](m *Module, p []T) (int, error) {
	if !m.IsValid() {
		return 0, ErrModuleInvalid
	}
	s := m.priv
	r, ok := s.rx.(reader[T])
	if !ok {
		return 0, ErrInputInvalid
	}
	if s.open&RX == 0 {
		return 0, ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	return r.read(p), nil
}

// Flush pushes buffered TX units toward the wire, or makes held RX units
// available to Read, regardless of fill thresholds.
func (m *Module) Flush(d Direction) error {
	if !m.IsValid() {
		return ErrModuleInvalid
	}
	if d == 0 || d&^TXRX != 0 {
		return ErrInputInvalid
	}
	s := m.priv
	if d&TX != 0 && s.open&TX != 0 {
		s.tx.flush()
	}
	if d&RX != 0 && s.open&RX != 0 {
		s.rx.flush()
	}
	return nil
}

// Buffered is the number of units Read can return without waiting.
func (m *Module) Buffered() int {
	if !m.IsValid() {
		return 0
	}
	return m.priv.rx.buffered()
}

// TxFree is the number of units Write can accept right now.
func (m *Module) TxFree() int {
	if !m.IsValid() {
		return 0
	}
	return m.priv.tx.free()
}

// Attr returns the attributes applied by Init.
func (m *Module) Attr() (Attr, error) {
	if !m.IsValid() {
		return Attr{}, ErrModuleInvalid
	}
	return m.priv.attr, nil
}

// TxISR services the transmit interrupt.
func (m *Module) TxISR() {
	if !m.IsValid() {
		return
	}
	m.priv.tx.isr()
	if m.txCallback != nil {
		m.txCallback()
	}
}

// RxISR services the receive interrupt.
func (m *Module) RxISR() {
	if !m.IsValid() {
		return
	}
	s := m.priv
	m.resolveAutoBaud()
	s.rx.isr()
	s.clearFaults()
	if m.rxCallback != nil {
		m.rxCallback()
	}
}

// DMAISR services a block completion on the channel serving d.
func (m *Module) DMAISR(d Direction) {
	if !m.IsValid() {
		return
	}
	s := m.priv
	s.dbgDMABlock()
	switch d {
	case TX:
		s.tx.dmaDone()
		if m.txCallback != nil {
			m.txCallback()
		}
	case RX:
		s.rx.dmaDone()
		s.clearFaults()
		if m.rxCallback != nil {
			m.rxCallback()
		}
	}
}
