//go:build tinygo

package irq

import (
	"runtime/interrupt"
	"unsafe"

	"periphcore-go/internal/mmio"
)

const (
	ifsBase = 0x0084
	iecBase = 0x0094
)

var (
	ifs = (*[numWords]mmio.Reg16)(unsafe.Pointer(uintptr(ifsBase)))
	iec = (*[numWords]mmio.Reg16)(unsafe.Pointer(uintptr(iecBase)))
)

// State is the saved global interrupt mask.
type State = interrupt.State

// Disable masks all interrupts and returns the previous state.
func Disable() State { return interrupt.Disable() }

// Restore reinstates a state returned by Disable.
func Restore(s State) { interrupt.Restore(s) }

// The hardware vectors as soon as the enable bit meets a set flag.
func enabled(Vector) {}
