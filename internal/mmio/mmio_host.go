//go:build !tinygo

package mmio

import "sync/atomic"

// Reg16 is the host stand-in for a 16-bit peripheral register. It keeps the
// method set of volatile.Register16 and lets a hardware model attach side
// effects to reads and writes.
type Reg16 struct {
	v  atomic.Uint32
	rd func(raw uint16) uint16
	wr func(old, new uint16) uint16
}

// Hook installs read and write side effects. rd receives the stored value and
// returns what the CPU observes; wr receives the stored and written values and
// returns what is stored. Either may be nil. Install hooks before the register
// is shared.
func (r *Reg16) Hook(rd func(raw uint16) uint16, wr func(old, new uint16) uint16) {
	r.rd, r.wr = rd, wr
}

// Raw returns the stored value, bypassing hooks.
func (r *Reg16) Raw() uint16 { return uint16(r.v.Load()) }

// Poke stores v, bypassing hooks.
func (r *Reg16) Poke(v uint16) { r.v.Store(uint32(v)) }

func (r *Reg16) Get() uint16 {
	raw := uint16(r.v.Load())
	if r.rd != nil {
		return r.rd(raw)
	}
	return raw
}

func (r *Reg16) Set(value uint16) {
	if r.wr != nil {
		value = r.wr(uint16(r.v.Load()), value)
	}
	r.v.Store(uint32(value))
}

func (r *Reg16) SetBits(value uint16) { r.Set(r.Get() | value) }

func (r *Reg16) ClearBits(value uint16) { r.Set(r.Get() &^ value) }

func (r *Reg16) HasBits(value uint16) bool { return r.Get()&value != 0 }

func (r *Reg16) ReplaceBits(value uint16, mask uint16, pos uint8) {
	r.Set(r.Get()&^(mask<<pos) | value<<pos)
}
