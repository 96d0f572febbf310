// Package dma drives the DMA channels: one or two device-visible buffers per
// channel, one-shot or continuous operation, optional ping-pong, and half or
// full block interrupts.
package dma

import (
	"sync/atomic"

	"periphcore-go/errcode"
	"periphcore-go/internal/irq"
	"periphcore-go/internal/regs"
)

var (
	ErrChannelInvalid     = &errcode.E{C: errcode.ModuleInvalid, Op: "dma", Msg: "channel invalid"}
	ErrInputInvalid       = &errcode.E{C: errcode.InputInvalid, Op: "dma", Msg: "input invalid"}
	ErrAlreadyInitialized = &errcode.E{C: errcode.ConfigInvalid, Op: "dma", Msg: "already initialized"}
	ErrAllocFailure       = &errcode.E{C: errcode.AllocFailure, Op: "dma", Msg: "DMA RAM exhausted"}
)

type Mode uint8

const (
	Continuous Mode = iota
	OneShot
)

type Addressing uint8

const (
	PostIncrement Addressing = iota
	NoIncrement
	PeripheralIndirect
)

// Width is the transfer unit.
type Width uint8

const (
	Word Width = iota
	Byte
)

type Direction uint8

const (
	FromPeripheral Direction = iota
	ToPeripheral
)

// InterruptOn selects where in a block the completion interrupt fires.
type InterruptOn uint8

const (
	Full InterruptOn = iota
	Half
)

// Buffer names one half of a ping-pong pair.
type Buffer uint8

const (
	BufferA Buffer = iota
	BufferB
)

func (b Buffer) String() string {
	if b == BufferB {
		return "B"
	}
	return "A"
}

// Attr is the channel configuration applied by Init. The zero value is a
// continuous, single-buffered, post-incrementing word transfer from the
// peripheral with a full-block interrupt.
type Attr struct {
	Mode        Mode
	PingPong    bool
	Addressing  Addressing
	NullWrite   bool
	Width       Width
	Direction   Direction
	InterruptOn InterruptOn
}

func (a Attr) valid() bool {
	return a.Mode <= OneShot && a.Addressing <= PeripheralIndirect && a.Width <= Byte &&
		a.Direction <= ToPeripheral && a.InterruptOn <= Half
}

func (a Attr) con() uint16 {
	var v uint16
	if a.Width == Byte {
		v |= regs.DMACON_SIZE
	}
	if a.Direction == ToPeripheral {
		v |= regs.DMACON_DIR
	}
	if a.InterruptOn == Half {
		v |= regs.DMACON_HALF
	}
	if a.NullWrite {
		v |= regs.DMACON_NULLW
	}
	switch a.Addressing {
	case NoIncrement:
		v |= regs.AMODE_NoInc << regs.DMACON_AMODE_Pos
	case PeripheralIndirect:
		v |= regs.AMODE_Periph << regs.DMACON_AMODE_Pos
	}
	switch {
	case a.Mode == Continuous && !a.PingPong:
		v |= regs.MODE_Continuous
	case a.Mode == OneShot && !a.PingPong:
		v |= regs.MODE_OneShot
	case a.Mode == Continuous:
		v |= regs.MODE_ContPP
	default:
		v |= regs.MODE_OneShotPP
	}
	return v
}

// Channel describes one DMA channel. Fill in the exported fields, then call
// Init. The buffers belong to the caller and must outlive the channel.
type Channel struct {
	Number     int
	BufferA    Region
	BufferB    Region // set iff ping-pong
	Peripheral uint16 // data-space address of the peripheral register
	Trigger    irq.Vector

	// Handler, if set, runs from the channel's completion interrupt.
	Handler func()

	priv *channel
}

type channel struct {
	attr Attr
	r    *regs.DMAChannel
	vec  irq.Vector
	busy atomic.Bool
}

// Init validates the descriptor, resets the channel registers and applies
// the configuration. The block size starts at the size of buffer A.
func (c *Channel) Init(attr Attr) error {
	if c == nil {
		return ErrChannelInvalid
	}
	if c.priv != nil {
		return ErrAlreadyInitialized
	}
	r := regs.DMA(c.Number)
	if r == nil {
		return ErrChannelInvalid
	}
	if !attr.valid() || c.BufferA.IsZero() || c.Trigger > regs.DMAREQ_IRQSEL {
		return ErrInputInvalid
	}
	if attr.PingPong != !c.BufferB.IsZero() {
		return ErrInputInvalid
	}
	if attr.PingPong && c.BufferB.Len() != c.BufferA.Len() {
		return ErrInputInvalid
	}
	if attr.Width == Word && c.BufferA.Len()%2 != 0 {
		return ErrInputInvalid
	}

	p := &channel{attr: attr, r: r, vec: regs.DMAIRQ(c.Number)}

	s := irq.Disable()
	resetChannel(r)
	r.REQ.Set(uint16(c.Trigger))
	r.PAD.Set(c.Peripheral)
	r.STA.Set(c.BufferA.Offset())
	if attr.PingPong {
		r.STB.Set(c.BufferB.Offset())
	}
	r.CNT.Set(uint16(unitsOf(c.BufferA, attr.Width) - 1))
	r.CON.Set(attr.con())
	irq.Restore(s)

	c.priv = p
	irq.ClearFlag(p.vec)
	irq.Install(p.vec, c.service)
	irq.Enable(p.vec)
	return nil
}

func resetChannel(r *regs.DMAChannel) {
	r.CON.Set(regs.DMAResetValue)
	r.REQ.Set(regs.DMAResetValue)
	r.STA.Set(regs.DMAResetValue)
	r.STB.Set(regs.DMAResetValue)
	r.PAD.Set(regs.DMAResetValue)
	r.CNT.Set(regs.DMAResetValue)
}

// service runs on the completion vector.
func (c *Channel) service() {
	p := c.priv
	if p == nil {
		return
	}
	if !p.r.CON.HasBits(regs.DMACON_CHEN) {
		p.busy.Store(false)
	}
	if c.Handler != nil {
		c.Handler()
	}
}

func unitsOf(r Region, w Width) int {
	if w == Byte {
		return r.Len()
	}
	return r.Len() / 2
}

// units is the capacity of buffer A in transfer units.
func (c *Channel) units() int {
	if c.priv == nil {
		return 0
	}
	return unitsOf(c.BufferA, c.priv.attr.Width)
}

// Units is the capacity of one buffer in transfer units.
func (c *Channel) Units() int {
	if !c.IsValid() {
		return 0
	}
	return c.units()
}

// IsValid reports whether c has been fully initialized.
func (c *Channel) IsValid() bool {
	return c != nil && c.priv != nil && c.priv.r != nil && !c.BufferA.IsZero() &&
		c.priv.attr.PingPong == !c.BufferB.IsZero()
}

// Enable sets the channel-enable bit. Enabling a running channel is a no-op.
func (c *Channel) Enable() error {
	if !c.IsValid() {
		return ErrChannelInvalid
	}
	r := c.priv.r
	s := irq.Disable()
	if !r.CON.HasBits(regs.DMACON_CHEN) {
		c.priv.busy.Store(true)
		r.CON.SetBits(regs.DMACON_CHEN)
	}
	irq.Restore(s)
	return nil
}

// Disable clears the channel-enable bit.
func (c *Channel) Disable() error {
	if !c.IsValid() {
		return ErrChannelInvalid
	}
	r := c.priv.r
	s := irq.Disable()
	if r.CON.HasBits(regs.DMACON_CHEN) {
		r.CON.ClearBits(regs.DMACON_CHEN)
	}
	c.priv.busy.Store(false)
	irq.Restore(s)
	return nil
}

// Enabled reports whether the channel-enable bit is set.
func (c *Channel) Enabled() bool {
	return c.IsValid() && c.priv.r.CON.HasBits(regs.DMACON_CHEN)
}

// Force requests one transfer without waiting for the trigger source.
func (c *Channel) Force() error {
	if !c.IsValid() {
		return ErrChannelInvalid
	}
	c.priv.r.REQ.SetBits(regs.DMAREQ_FORCE)
	return nil
}

// Busy reports whether a transfer is in progress. It is set by Enable and
// cleared when a one-shot block completes or the channel is disabled.
func (c *Channel) Busy() bool {
	return c.IsValid() && c.priv.busy.Load()
}

// SetBlockSize sets the number of units per block. n must fit the buffers.
func (c *Channel) SetBlockSize(n int) error {
	if !c.IsValid() {
		return ErrChannelInvalid
	}
	if n < 1 || n > c.units() {
		return ErrInputInvalid
	}
	c.priv.r.CNT.Set(uint16(n - 1))
	return nil
}

// BlockSize returns the number of units per block.
func (c *Channel) BlockSize() (int, error) {
	if !c.IsValid() {
		return 0, ErrChannelInvalid
	}
	return int(c.priv.r.CNT.Get()) + 1, nil
}

// SetInterruptOn selects a half-block or full-block interrupt.
func (c *Channel) SetInterruptOn(on InterruptOn) error {
	if !c.IsValid() {
		return ErrChannelInvalid
	}
	r := c.priv.r
	s := irq.Disable()
	switch on {
	case Half:
		r.CON.SetBits(regs.DMACON_HALF)
	case Full:
		r.CON.ClearBits(regs.DMACON_HALF)
	default:
		irq.Restore(s)
		return ErrInputInvalid
	}
	c.priv.attr.InterruptOn = on
	irq.Restore(s)
	return nil
}

// InterruptOn returns the interrupt position.
func (c *Channel) InterruptOn() (InterruptOn, error) {
	if !c.IsValid() {
		return Full, ErrChannelInvalid
	}
	if c.priv.r.CON.HasBits(regs.DMACON_HALF) {
		return Half, nil
	}
	return Full, nil
}

// PingPongStatus returns the buffer that completed most recently. Single
// buffered channels always report BufferA.
func (c *Channel) PingPongStatus() (Buffer, error) {
	if !c.IsValid() {
		return BufferA, ErrChannelInvalid
	}
	if !c.priv.attr.PingPong {
		return BufferA, nil
	}
	if regs.DMACS1().HasBits(1 << c.Number) {
		return BufferB, nil
	}
	return BufferA, nil
}

// Progress reports the buffer the channel is filling and how many units of
// the current block have moved. It reads the controller's last-channel and
// last-address status, so it only sees progress while this channel made the
// most recent transfer; otherwise, and right after a block completes, it
// reports 0 units.
func (c *Channel) Progress() (Buffer, int, error) {
	if !c.IsValid() {
		return BufferA, 0, ErrChannelInvalid
	}
	cs := regs.DMACS1().Get()
	if int(cs&regs.DMACS1_LSTCH)>>regs.DMACS1_LSTCH_Pos != c.Number {
		return BufferA, 0, nil
	}
	addr := int(regs.DSADR().Get()) - regs.DMARAMBase
	unit := 1
	if c.priv.attr.Width == Word {
		unit = 2
	}
	b, start := BufferA, int(c.BufferA.Offset())
	if c.priv.attr.PingPong && addr >= int(c.BufferB.Offset()) && addr < int(c.BufferB.Offset())+c.BufferB.Len() {
		b, start = BufferB, int(c.BufferB.Offset())
	} else if addr < start || addr >= start+c.BufferA.Len() {
		return BufferA, 0, nil
	}
	n := (addr-start)/unit + 1
	if n >= int(c.priv.r.CNT.Get())+1 {
		return b, 0, nil
	}
	return b, n, nil
}

// Attr returns the configuration applied by Init.
func (c *Channel) Attr() (Attr, error) {
	if !c.IsValid() {
		return Attr{}, ErrChannelInvalid
	}
	return c.priv.attr, nil
}

// Buffer returns the memory behind buffer b.
func (c *Channel) Buffer(b Buffer) []byte {
	if b == BufferB {
		return c.BufferB.Bytes()
	}
	return c.BufferA.Bytes()
}

// Vector is the channel's completion interrupt.
func (c *Channel) Vector() irq.Vector { return regs.DMAIRQ(c.Number) }

// Cleanup disables the channel, restores register reset values and drops the
// private state. Cleaning an uninitialized channel is a no-op.
func (c *Channel) Cleanup() error {
	if c == nil || c.priv == nil {
		return nil
	}
	p := c.priv
	irq.Uninstall(p.vec)
	s := irq.Disable()
	resetChannel(p.r)
	p.busy.Store(false)
	irq.Restore(s)
	c.priv = nil
	return nil
}
