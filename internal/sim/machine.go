//go:build !tinygo

// Package sim is a host model of the UART, DMA and Timer1 peripherals. It
// binds a fresh register space, attaches read/write side effects to the
// registers and advances the hardware one character time per Step, raising
// interrupts through the irq package the way the silicon would.
//
// The model is single-threaded: drive it from the goroutine that calls the
// drivers.
package sim

import (
	"periphcore-go/internal/irq"
	"periphcore-go/internal/mmio"
	"periphcore-go/internal/regs"
)

// Write is one CPU register write.
type Write struct {
	Addr  uint16
	Value uint16
}

// Machine owns a register space and the peripheral models hooked into it.
type Machine struct {
	space *regs.Space
	prev  *regs.Space

	uarts [regs.NumUARTs + 1]*uartModel
	dma   [regs.NumDMAChannels]*dmaModel

	tracing bool
	writes  []Write
	steps   uint64
}

// New binds a fresh register space, resets the interrupt controller and
// returns the machine driving them. Call Close to restore the previous space.
func New() *Machine {
	m := &Machine{space: regs.NewSpace()}
	m.prev = regs.Bind(m.space)
	irq.Reset()

	for n := 1; n <= regs.NumUARTs; n++ {
		m.uarts[n] = newUART(m, n)
	}
	for ch := 0; ch < regs.NumDMAChannels; ch++ {
		m.dma[ch] = newDMA(m, ch)
	}
	readOnly := func(old, _ uint16) uint16 { return old }
	m.hook(regs.DMACS1Addr, &m.space.DMACS1, nil, readOnly)
	m.hook(regs.DSADRAddr, &m.space.DSADR, nil, readOnly)
	t := &m.space.T1
	m.hook(regs.Timer1Base, &t.TMR, nil, nil)
	m.hook(regs.Timer1Base+2, &t.PR, nil, nil)
	m.hook(regs.Timer1Base+4, &t.CON, nil, nil)
	return m
}

// Close rebinds the space that was current before New.
func (m *Machine) Close() {
	if m.prev != nil {
		regs.Bind(m.prev)
		m.prev = nil
	}
}

// Space exposes the bound register space.
func (m *Machine) Space() *regs.Space { return m.space }

// hook wires rd/wr side effects into r and records CPU writes when tracing.
func (m *Machine) hook(addr uint16, r *mmio.Reg16, rd func(uint16) uint16, wr func(old, v uint16) uint16) {
	r.Hook(rd, func(old, v uint16) uint16 {
		if m.tracing {
			m.writes = append(m.writes, Write{Addr: addr, Value: v})
		}
		if wr != nil {
			return wr(old, v)
		}
		return v
	})
}

// Trace turns write recording on or off. Turning it on discards earlier
// records.
func (m *Machine) Trace(on bool) {
	m.tracing = on
	if on {
		m.writes = m.writes[:0]
	}
}

// Writes returns the recorded register writes in order.
func (m *Machine) Writes() []Write {
	out := make([]Write, len(m.writes))
	copy(out, m.writes)
	return out
}

// Step advances every peripheral by one character time. It reports whether
// anything moved.
func (m *Machine) Step() bool {
	m.steps++
	busy := false
	for n := 1; n <= regs.NumUARTs; n++ {
		if m.uarts[n].step() {
			busy = true
		}
	}
	return busy
}

// Run performs n steps.
func (m *Machine) Run(n int) {
	for i := 0; i < n; i++ {
		m.Step()
	}
}

// Settle steps until a step moves nothing or max steps have run, and returns
// the number of steps taken.
func (m *Machine) Settle(max int) int {
	for i := 0; i < max; i++ {
		if !m.Step() {
			return i + 1
		}
	}
	return max
}

// Steps is the number of steps since New.
func (m *Machine) Steps() uint64 { return m.steps }

// Tick fires the Timer1 period match if the timer is on.
func (m *Machine) Tick() {
	t := &m.space.T1
	if t.CON.Raw()&regs.TCON_TON == 0 {
		return
	}
	t.TMR.Poke(0)
	irq.Raise(regs.Timer1IRQ)
}

// Wire returns the external line of UART n.
func (m *Machine) Wire(n int) *Wire {
	if n < 1 || n > regs.NumUARTs {
		return nil
	}
	return &m.uarts[n].wire
}

// channelFor finds an enabled DMA channel triggered by v.
func (m *Machine) channelFor(v irq.Vector) *dmaModel {
	for _, d := range m.dma {
		if d.armed() && irq.Vector(d.r.REQ.Raw()&regs.DMAREQ_IRQSEL) == v {
			return d
		}
	}
	return nil
}
