//go:build !tinygo

package sim

type inbound struct {
	v   uint16
	bps int
}

// Wire is the line side of a UART: units queued here arrive one per step,
// and units shifted out while not in loopback collect in Sent.
type Wire struct {
	in  []inbound
	out []uint16
}

// Feed queues units that another station sends at bps. 9-bit units carry
// the address flag in bit 8.
func (w *Wire) Feed(bps int, units ...uint16) {
	for _, u := range units {
		w.in = append(w.in, inbound{v: u, bps: bps})
	}
}

// FeedBytes queues bytes sent at bps.
func (w *Wire) FeedBytes(bps int, p []byte) {
	for _, b := range p {
		w.in = append(w.in, inbound{v: uint16(b), bps: bps})
	}
}

// Queued is the number of units not yet delivered.
func (w *Wire) Queued() int { return len(w.in) }

// Sent returns units transmitted so far without consuming them.
func (w *Wire) Sent() []uint16 {
	out := make([]uint16, len(w.out))
	copy(out, w.out)
	return out
}

// Drain returns and clears the transmitted units.
func (w *Wire) Drain() []uint16 {
	out := w.out
	w.out = nil
	return out
}

func (w *Wire) pop() (inbound, bool) {
	if len(w.in) == 0 {
		return inbound{}, false
	}
	u := w.in[0]
	w.in = w.in[1:]
	return u, true
}
