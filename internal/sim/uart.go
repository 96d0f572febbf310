//go:build !tinygo

package sim

import (
	"periphcore-go/internal/irq"
	"periphcore-go/internal/regs"
	"periphcore-go/x/mathx"
)

const (
	staStored = regs.STA_UTXISEL1 | regs.STA_UTXINV | regs.STA_UTXISEL0 | regs.STA_UTXBRK |
		regs.STA_UTXEN | regs.STA_URXISEL | regs.STA_ADDEN
	staErrors = regs.STA_OERR | regs.STA_FERR | regs.STA_PERR

	// mismatch beyond this many parts per thousand is a framing error
	baudTolerance = 30
)

type uartModel struct {
	m    *Machine
	n    int
	r    *regs.UART
	tx   []uint16
	rx   []uint16
	wire Wire

	txIRQ, rxIRQ irq.Vector
}

func newUART(m *Machine, n int) *uartModel {
	u := &uartModel{
		m:     m,
		n:     n,
		r:     &m.space.UART[n],
		txIRQ: regs.UARTTXIRQ(n),
		rxIRQ: regs.UARTRXIRQ(n),
	}
	b := regs.UARTBase(n)
	m.hook(b+regs.UARTOffMODE, &u.r.MODE, nil, u.writeMODE)
	m.hook(b+regs.UARTOffSTA, &u.r.STA, u.readSTA, u.writeSTA)
	m.hook(b+regs.UARTOffTXREG, &u.r.TXREG, nil, u.writeTXREG)
	m.hook(b+regs.UARTOffRXREG, &u.r.RXREG, u.readRXREG, nil)
	m.hook(b+regs.UARTOffBRG, &u.r.BRG, nil, nil)
	return u
}

func (u *uartModel) mode() uint16 { return u.r.MODE.Raw() }

func (u *uartModel) enabled() bool { return u.mode()&regs.MODE_UARTEN != 0 }

func (u *uartModel) txEnabled() bool {
	return u.enabled() && u.r.STA.Raw()&regs.STA_UTXEN != 0
}

func (u *uartModel) nineBit() bool {
	return (u.mode()&regs.MODE_PDSEL)>>regs.MODE_PDSEL_Pos == regs.PDSEL_9N
}

func (u *uartModel) writeMODE(old, v uint16) uint16 {
	if old&regs.MODE_UARTEN != 0 && v&regs.MODE_UARTEN == 0 {
		u.tx = u.tx[:0]
		u.rx = u.rx[:0]
		u.r.STA.Poke(u.r.STA.Raw() &^ (staErrors | regs.STA_UTXEN))
	}
	return v
}

func (u *uartModel) readSTA(raw uint16) uint16 {
	v := raw
	if len(u.tx) >= regs.FIFODepth {
		v |= regs.STA_UTXBF
	}
	if len(u.tx) == 0 {
		v |= regs.STA_TRMT
	}
	if u.wire.Queued() == 0 {
		v |= regs.STA_RIDLE
	}
	if len(u.rx) > 0 {
		v |= regs.STA_URXDA
	}
	return v
}

func (u *uartModel) writeSTA(old, v uint16) uint16 {
	if old&regs.STA_OERR != 0 && v&regs.STA_OERR == 0 {
		u.rx = u.rx[:0]
	}
	return v&staStored | old&v&staErrors
}

func (u *uartModel) writeTXREG(_, v uint16) uint16 {
	if !u.txEnabled() || len(u.tx) >= regs.FIFODepth {
		return v
	}
	if u.nineBit() {
		u.tx = append(u.tx, v&0x1FF)
	} else {
		u.tx = append(u.tx, v&0xFF)
	}
	return v
}

func (u *uartModel) readRXREG(raw uint16) uint16 {
	if len(u.rx) == 0 {
		return raw
	}
	v := u.rx[0]
	u.rx = u.rx[1:]
	u.r.RXREG.Poke(v)
	return v
}

// bps returns the programmed line rate.
func (u *uartModel) bps() uint32 {
	div := uint32(16)
	if u.mode()&regs.MODE_BRGH != 0 {
		div = 4
	}
	return mathx.RoundDiv(uint32(regs.Fcy), div*(uint32(u.r.BRG.Raw())+1))
}

func (u *uartModel) step() bool {
	if !u.enabled() {
		return false
	}
	busy := false
	if len(u.tx) > 0 {
		v := u.tx[0]
		u.tx = u.tx[1:]
		busy = true
		if u.mode()&regs.MODE_LPBACK != 0 {
			u.receive(v)
		} else {
			u.wire.out = append(u.wire.out, v)
		}
	}
	if u.mode()&regs.MODE_LPBACK == 0 {
		if in, ok := u.wire.pop(); ok {
			busy = true
			u.arrive(in)
		}
	}
	if u.txEnabled() && len(u.tx) < regs.FIFODepth {
		u.requestTX()
	}
	return busy
}

func (u *uartModel) arrive(in inbound) {
	if u.mode()&regs.MODE_ABAUD != 0 {
		if in.v&0xFF != 0x55 {
			return
		}
		div := uint32(16)
		if u.mode()&regs.MODE_BRGH != 0 {
			div = 4
		}
		brg := mathx.RoundDiv(uint32(regs.Fcy), div*uint32(in.bps)) - 1
		u.r.BRG.Poke(uint16(brg))
		u.r.MODE.Poke(u.mode() &^ regs.MODE_ABAUD)
		irq.Raise(u.rxIRQ)
		return
	}
	want := uint32(in.bps)
	if mathx.AbsDiff(u.bps(), want)*1000 > want*baudTolerance {
		u.r.STA.Poke(u.r.STA.Raw() | regs.STA_FERR)
		irq.Raise(u.rxIRQ)
		return
	}
	u.receive(in.v)
}

func (u *uartModel) receive(v uint16) {
	sta := u.r.STA.Raw()
	if sta&regs.STA_OERR != 0 {
		return
	}
	if u.nineBit() {
		v &= 0x1FF
		if sta&regs.STA_ADDEN != 0 && v&0x100 == 0 {
			return
		}
	} else {
		v &= 0xFF
	}
	if len(u.rx) >= regs.FIFODepth {
		u.r.STA.Poke(sta | regs.STA_OERR)
		irq.Raise(u.rxIRQ)
		return
	}
	u.rx = append(u.rx, v)
	if d := u.m.channelFor(u.rxIRQ); d != nil && !d.toPeripheral() {
		d.transfer()
		return
	}
	irq.Raise(u.rxIRQ)
}

func (u *uartModel) requestTX() {
	if d := u.m.channelFor(u.txIRQ); d != nil && d.toPeripheral() {
		d.transfer()
		return
	}
	irq.Raise(u.txIRQ)
}
