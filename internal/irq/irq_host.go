//go:build !tinygo

package irq

import (
	"sync/atomic"

	"periphcore-go/internal/mmio"
)

var (
	ifsRegs [numWords]mmio.Reg16
	iecRegs [numWords]mmio.Reg16

	ifs = &ifsRegs
	iec = &iecRegs

	depth     atomic.Int32
	servicing atomic.Bool
)

// State is the nesting depth before Disable.
type State int32

// Disable masks all interrupts and returns the previous state. Calls nest.
func Disable() State { return State(depth.Add(1) - 1) }

// Restore reinstates a state returned by Disable. Returning to depth zero
// delivers anything that became pending while masked.
func Restore(s State) {
	depth.Store(int32(s))
	if s == 0 {
		deliver()
	}
}

// Depth reports the current masking depth.
func Depth() int { return int(depth.Load()) }

// Raise sets v's flag as the hardware would, delivering it at once when
// interrupts are unmasked and no handler is running.
func Raise(v Vector) {
	if int(v) >= NumVectors {
		return
	}
	ifs[v/16].SetBits(1 << (v % 16))
	deliver()
}

// Reset clears every flag, enable bit and handler.
func Reset() {
	for i := range ifsRegs {
		ifsRegs[i].Poke(0)
		iecRegs[i].Poke(0)
	}
	handlers = [NumVectors]func(){}
	depth.Store(0)
	servicing.Store(false)
}

func enabled(Vector) { deliver() }

// deliver runs pending, enabled handlers lowest vector first. Handlers do not
// nest: anything raised while one runs waits until it returns.
func deliver() {
	if depth.Load() != 0 || !servicing.CompareAndSwap(false, true) {
		return
	}
	defer servicing.Store(false)
	for {
		v, ok := next()
		if !ok {
			return
		}
		Dispatch(v)
	}
}

func next() (Vector, bool) {
	for w := range ifsRegs {
		act := ifsRegs[w].Raw() & iecRegs[w].Raw()
		if act == 0 {
			continue
		}
		for b := 0; b < 16; b++ {
			if act&(1<<b) != 0 {
				return Vector(w*16 + b), true
			}
		}
	}
	return 0, false
}
