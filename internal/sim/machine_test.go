//go:build !tinygo

package sim

import (
	"testing"

	"periphcore-go/internal/irq"
	"periphcore-go/internal/regs"
)

func TestLoopbackMovesOneUnitPerStep(t *testing.T) {
	m := New()
	defer m.Close()
	u := regs.UARTn(1)
	u.MODE.Set(regs.MODE_UARTEN | regs.MODE_LPBACK)
	u.STA.SetBits(regs.STA_UTXEN)
	for _, b := range []uint16{1, 2, 3, 4, 5} {
		u.TXREG.Set(b)
	}
	if !u.STA.HasBits(regs.STA_UTXBF) {
		t.Fatal("TX FIFO should report full after four writes")
	}
	m.Step()
	if u.STA.HasBits(regs.STA_UTXBF) || !u.STA.HasBits(regs.STA_URXDA) {
		t.Fatalf("sta=%#04x", u.STA.Get())
	}
	if got := u.RXREG.Get(); got != 1 {
		t.Fatalf("got %d want 1", got)
	}
	if n := m.Settle(10); n != 4 {
		t.Fatalf("settled after %d steps, want 4", n)
	}
	var got []uint16
	for u.STA.HasBits(regs.STA_URXDA) {
		got = append(got, u.RXREG.Get())
	}
	if len(got) != 3 || got[0] != 2 || got[2] != 4 {
		t.Fatalf("got %v want [2 3 4]", got)
	}
}

func TestOverrunAndRecovery(t *testing.T) {
	m := New()
	defer m.Close()
	u := regs.UARTn(2)
	u.BRG.Set(259) // 9600 at BRGH=0
	u.MODE.Set(regs.MODE_UARTEN)
	m.Wire(2).Feed(9600, 1, 2, 3, 4, 5, 6)
	m.Run(6)
	if !u.STA.HasBits(regs.STA_OERR) {
		t.Fatal("expected overrun")
	}
	u.STA.ClearBits(regs.STA_OERR)
	if u.STA.HasBits(regs.STA_URXDA) {
		t.Fatal("clearing OERR should reset the receive FIFO")
	}
}

func TestBaudMismatchIsFramingError(t *testing.T) {
	m := New()
	defer m.Close()
	u := regs.UARTn(3)
	u.BRG.Set(259)
	u.MODE.Set(regs.MODE_UARTEN)
	m.Wire(3).Feed(19200, 0x41)
	m.Step()
	if !u.STA.HasBits(regs.STA_FERR) || u.STA.HasBits(regs.STA_URXDA) {
		t.Fatalf("sta=%#04x", u.STA.Get())
	}
}

func TestAutoBaudProgramsDivisor(t *testing.T) {
	m := New()
	defer m.Close()
	u := regs.UARTn(1)
	var hits int
	irq.Install(regs.UARTRXIRQ(1), func() { hits++ })
	irq.Enable(regs.UARTRXIRQ(1))
	u.MODE.Set(regs.MODE_UARTEN | regs.MODE_ABAUD)
	m.Wire(1).Feed(19200, 0x55)
	m.Step()
	if u.MODE.HasBits(regs.MODE_ABAUD) {
		t.Fatal("ABAUD should clear after the sync byte")
	}
	if got := u.BRG.Get(); got != 129 {
		t.Fatalf("got BRG %d want 129", got)
	}
	if hits != 1 {
		t.Fatalf("got %d RX interrupts want 1", hits)
	}
}

func TestDMAPingPongForce(t *testing.T) {
	m := New()
	defer m.Close()
	c := regs.DMA(0)
	c.STA.Set(0)
	c.STB.Set(32)
	c.CNT.Set(31)
	c.CON.Set(regs.DMACON_SIZE | regs.DMACON_DIR | regs.MODE_ContPP)
	c.CON.SetBits(regs.DMACON_CHEN)
	var done int
	irq.Install(regs.DMAIRQ(0), func() { done++ })
	irq.Enable(regs.DMAIRQ(0))
	for i := 0; i < 32; i++ {
		c.REQ.SetBits(regs.DMAREQ_FORCE)
	}
	if done != 1 || regs.DMACS1().Get()&1 != 0 {
		t.Fatalf("after A: done=%d cs=%#04x", done, regs.DMACS1().Get())
	}
	for i := 0; i < 32; i++ {
		c.REQ.SetBits(regs.DMAREQ_FORCE)
	}
	if done != 2 || regs.DMACS1().Get()&1 != 1 {
		t.Fatalf("after B: done=%d cs=%#04x", done, regs.DMACS1().Get())
	}
	if c.REQ.HasBits(regs.DMAREQ_FORCE) {
		t.Fatal("FORCE should self-clear")
	}
}

func TestTraceRecordsWritesInOrder(t *testing.T) {
	m := New()
	defer m.Close()
	m.Trace(true)
	c := regs.DMA(1)
	c.REQ.Set(0x0C)
	c.PAD.Set(0x0224)
	w := m.Writes()
	base := regs.DMAChannelBase(1)
	if len(w) != 2 || w[0] != (Write{base + 2, 0x0C}) || w[1] != (Write{base + 8, 0x0224}) {
		t.Fatalf("got %v", w)
	}
}
