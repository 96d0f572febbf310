//go:build !tinygo

package sim

import (
	"encoding/binary"

	"periphcore-go/internal/irq"
	"periphcore-go/internal/regs"
)

type dmaModel struct {
	m   *Machine
	ch  int
	r   *regs.DMAChannel
	irq irq.Vector

	idx int  // units moved in the current block
	onB bool // the active buffer is B
}

func newDMA(m *Machine, ch int) *dmaModel {
	d := &dmaModel{m: m, ch: ch, r: &m.space.DMA[ch], irq: regs.DMAIRQ(ch)}
	b := regs.DMAChannelBase(ch)
	m.hook(b, &d.r.CON, nil, d.writeCON)
	m.hook(b+2, &d.r.REQ, nil, d.writeREQ)
	m.hook(b+4, &d.r.STA, nil, nil)
	m.hook(b+6, &d.r.STB, nil, nil)
	m.hook(b+8, &d.r.PAD, nil, nil)
	m.hook(b+10, &d.r.CNT, nil, nil)
	return d
}

func (d *dmaModel) armed() bool { return d.r.CON.Raw()&regs.DMACON_CHEN != 0 }

func (d *dmaModel) toPeripheral() bool { return d.r.CON.Raw()&regs.DMACON_DIR != 0 }

func (d *dmaModel) writeCON(old, v uint16) uint16 {
	if old&regs.DMACON_CHEN == 0 && v&regs.DMACON_CHEN != 0 {
		d.idx = 0
		d.onB = false
	}
	return v
}

func (d *dmaModel) writeREQ(_, v uint16) uint16 {
	if v&regs.DMAREQ_FORCE != 0 {
		v &^= regs.DMAREQ_FORCE
		if d.armed() {
			d.r.REQ.Poke(v)
			d.transfer()
		}
	}
	return v
}

// transfer moves one unit between DMA RAM and the peripheral register.
func (d *dmaModel) transfer() {
	con := d.r.CON.Raw()
	unit := 2
	if con&regs.DMACON_SIZE != 0 {
		unit = 1
	}
	start := int(d.r.STA.Raw())
	if d.onB {
		start = int(d.r.STB.Raw())
	}
	at := start
	if (con&regs.DMACON_AMODE)>>regs.DMACON_AMODE_Pos != regs.AMODE_NoInc {
		at += d.idx * unit
	}
	ram := d.m.space.RAM[:]
	if at < 0 || at+unit > len(ram) {
		return
	}
	periph := d.m.space.Lookup(d.r.PAD.Raw())
	if con&regs.DMACON_DIR != 0 {
		var v uint16
		if unit == 1 {
			v = uint16(ram[at])
		} else {
			v = binary.LittleEndian.Uint16(ram[at:])
		}
		if periph != nil {
			periph.Set(v)
		}
	} else {
		var v uint16
		if periph != nil {
			v = periph.Get()
		}
		if unit == 1 {
			ram[at] = byte(v)
		} else {
			binary.LittleEndian.PutUint16(ram[at:], v)
		}
	}
	d.m.space.DSADR.Poke(uint16(regs.DMARAMBase + at))
	cs := &d.m.space.DMACS1
	cs.Poke(cs.Raw()&^regs.DMACS1_LSTCH | uint16(d.ch)<<regs.DMACS1_LSTCH_Pos)

	d.idx++
	count := int(d.r.CNT.Raw()) + 1
	half := con&regs.DMACON_HALF != 0
	if half && d.idx == count/2 {
		irq.Raise(d.irq)
	}
	if d.idx < count {
		return
	}
	d.complete(con)
	if !half {
		irq.Raise(d.irq)
	}
}

func (d *dmaModel) complete(con uint16) {
	cs := &d.m.space.DMACS1
	bit := uint16(1) << d.ch
	if d.onB {
		cs.Poke(cs.Raw() | bit)
	} else {
		cs.Poke(cs.Raw() &^ bit)
	}
	d.idx = 0
	switch con & regs.DMACON_MODE {
	case regs.MODE_Continuous:
	case regs.MODE_OneShot:
		d.r.CON.Poke(con &^ regs.DMACON_CHEN)
	case regs.MODE_ContPP:
		d.onB = !d.onB
	case regs.MODE_OneShotPP:
		if d.onB {
			d.r.CON.Poke(con &^ regs.DMACON_CHEN)
		}
		d.onB = !d.onB
	}
}
