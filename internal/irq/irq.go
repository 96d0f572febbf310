// Package irq is the interrupt controller surface the drivers use: global
// masking for short critical sections plus per-vector enable, flag and
// handler slots.
package irq

// Vector is an interrupt vector number, also used as a DMA trigger selector.
type Vector uint8

// NumVectors bounds the vector space.
const NumVectors = 96

const numWords = NumVectors / 16

var handlers [NumVectors]func()

// Install sets the handler run when v is dispatched. It replaces any previous
// handler.
func Install(v Vector, h func()) {
	if int(v) >= NumVectors {
		return
	}
	s := Disable()
	handlers[v] = h
	Restore(s)
}

// Uninstall masks v, clears its flag and removes its handler.
func Uninstall(v Vector) {
	if int(v) >= NumVectors {
		return
	}
	s := Disable()
	iec[v/16].ClearBits(1 << (v % 16))
	ifs[v/16].ClearBits(1 << (v % 16))
	handlers[v] = nil
	Restore(s)
}

// Installed reports whether v has a handler.
func Installed(v Vector) bool {
	return int(v) < NumVectors && handlers[v] != nil
}

// Enable unmasks v.
func Enable(v Vector) {
	if int(v) >= NumVectors {
		return
	}
	s := Disable()
	iec[v/16].SetBits(1 << (v % 16))
	Restore(s)
	enabled(v)
}

// Mask masks v. A pending flag stays set.
func Mask(v Vector) {
	if int(v) >= NumVectors {
		return
	}
	s := Disable()
	iec[v/16].ClearBits(1 << (v % 16))
	Restore(s)
}

// Enabled reports whether v is unmasked.
func Enabled(v Vector) bool {
	return int(v) < NumVectors && iec[v/16].HasBits(1<<(v%16))
}

// Pending reports whether v's flag is set.
func Pending(v Vector) bool {
	return int(v) < NumVectors && ifs[v/16].HasBits(1<<(v%16))
}

// ClearFlag acknowledges v.
func ClearFlag(v Vector) {
	if int(v) >= NumVectors {
		return
	}
	s := Disable()
	ifs[v/16].ClearBits(1 << (v % 16))
	Restore(s)
}

// Dispatch acknowledges v and runs its handler. The vector glue calls it
// from the hardware entry point.
func Dispatch(v Vector) {
	if int(v) >= NumVectors {
		return
	}
	ifs[v/16].ClearBits(1 << (v % 16))
	if h := handlers[v]; h != nil {
		h()
	}
}
