//go:build !tinygo

package irq

import "testing"

func TestRaiseDeliversWhenEnabled(t *testing.T) {
	Reset()
	var hits int
	Install(11, func() { hits++ })
	Raise(11)
	if hits != 0 || !Pending(11) {
		t.Fatalf("masked vector ran: hits=%d", hits)
	}
	Enable(11)
	if hits != 1 || Pending(11) {
		t.Fatalf("enable should deliver the pending flag: hits=%d", hits)
	}
	Raise(11)
	if hits != 2 {
		t.Fatalf("got %d hits want 2", hits)
	}
}

func TestCriticalSectionDefersDelivery(t *testing.T) {
	Reset()
	var order []Vector
	for _, v := range []Vector{30, 12} {
		v := v
		Install(v, func() { order = append(order, v) })
		Enable(v)
	}
	s := Disable()
	inner := Disable()
	Raise(30)
	Raise(12)
	Restore(inner)
	if len(order) != 0 {
		t.Fatalf("delivered inside critical section: %v", order)
	}
	Restore(s)
	if len(order) != 2 || order[0] != 12 || order[1] != 30 {
		t.Fatalf("got %v want [12 30]", order)
	}
	if Depth() != 0 {
		t.Fatalf("depth %d", Depth())
	}
}

func TestHandlersDoNotNest(t *testing.T) {
	Reset()
	var trace []string
	Install(4, func() {
		trace = append(trace, "a>")
		Raise(14)
		trace = append(trace, "<a")
	})
	Install(14, func() { trace = append(trace, "b") })
	Enable(4)
	Enable(14)
	Raise(4)
	want := []string{"a>", "<a", "b"}
	if len(trace) != len(want) {
		t.Fatalf("got %v want %v", trace, want)
	}
	for i := range want {
		if trace[i] != want[i] {
			t.Fatalf("got %v want %v", trace, want)
		}
	}
}

func TestUninstallMasks(t *testing.T) {
	Reset()
	Install(3, func() {})
	Enable(3)
	Uninstall(3)
	if Enabled(3) || Installed(3) {
		t.Fatal("vector should be masked and empty")
	}
}
