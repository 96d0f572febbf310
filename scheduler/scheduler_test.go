//go:build !tinygo

package scheduler

import (
	"context"
	"errors"
	"strings"
	"testing"

	"periphcore-go/errcode"
	"periphcore-go/internal/regs"
	"periphcore-go/internal/sim"
)

func TestDispatchOrderAfterTick(t *testing.T) {
	s := New()
	var order []string
	run := func(arg any) { order = append(order, arg.(string)) }
	s.Schedule(run, 3, "f")
	s.Schedule(run, -1, "g")
	s.Schedule(run, 0, "h")

	s.Tick()
	for s.RunOnce() {
	}
	if got := strings.Join(order, ","); got != "g,h" {
		t.Fatalf("got %q want g,h", got)
	}
	s.Tick()
	if s.RunOnce() {
		t.Fatal("f is not due yet")
	}
	s.Tick()
	if !s.RunOnce() {
		t.Fatal("f should be due")
	}
	if got := strings.Join(order, ","); got != "g,h,f" {
		t.Fatalf("got %q want g,h,f", got)
	}
	if s.Pending() != 0 {
		t.Fatalf("pending %d", s.Pending())
	}
}

func TestTiesKeepScheduleOrder(t *testing.T) {
	s := New()
	var got []int
	for i := 0; i < 5; i++ {
		s.Schedule(func(arg any) { got = append(got, arg.(int)) }, 0, i)
	}
	for s.RunOnce() {
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("got %v", got)
		}
	}
}

func TestTableFull(t *testing.T) {
	s := New()
	nop := func(any) {}
	for i := 0; i < Capacity; i++ {
		if err := s.Schedule(nop, int32(i), nil); err != nil {
			t.Fatalf("slot %d: %v", i, err)
		}
	}
	err := s.Schedule(nop, -100, nil)
	if !errors.Is(err, errcode.SoftwareBufferError) {
		t.Fatalf("got %v want software_buffer_error", err)
	}
	if s.Pending() != Capacity {
		t.Fatalf("a full table must not evict: pending %d", s.Pending())
	}
	if err := s.Schedule(nil, 0, nil); !errors.Is(err, ErrInvalidHandler) {
		t.Fatalf("got %v", err)
	}
}

func TestHandlerMayReschedule(t *testing.T) {
	s := New()
	n := 0
	var again Handler
	again = func(any) {
		n++
		if n < 3 {
			s.Schedule(again, 0, nil)
		}
	}
	s.Schedule(again, 0, nil)
	for s.RunOnce() {
	}
	if n != 3 {
		t.Fatalf("ran %d times want 3", n)
	}
}

func TestInitClears(t *testing.T) {
	s := New()
	s.Schedule(func(any) { t.Fatal("dropped record ran") }, 0, nil)
	s.Init()
	if s.RunOnce() || s.Pending() != 0 {
		t.Fatal("table should be empty")
	}
}

func TestAttachDrivesTick(t *testing.T) {
	m := sim.New()
	t.Cleanup(m.Close)
	s := New()
	if err := s.Attach(TickHz); err != nil {
		t.Fatal(err)
	}
	defer s.Detach()
	tm := regs.Timer1()
	if tm.PR.Get() != 19999 || tm.CON.Get() != regs.TCON_TON {
		t.Fatalf("pr=%d con=%#04x", tm.PR.Get(), tm.CON.Get())
	}
	ran := false
	s.Schedule(func(any) { ran = true }, 2, nil)
	m.Tick()
	s.RunOnce()
	if ran {
		t.Fatal("ran after one tick")
	}
	m.Tick()
	s.RunOnce()
	if !ran {
		t.Fatal("did not run after two ticks")
	}

	if err := s.Attach(10); err != nil {
		t.Fatal(err)
	}
	if ps := (tm.CON.Get() & regs.TCON_TCKPS) >> regs.TCON_TCKPS_Pos; ps != 2 || tm.PR.Get() != 62499 {
		t.Fatalf("10 Hz: prescaler %d pr %d", ps, tm.PR.Get())
	}
	if err := s.Attach(0); !errors.Is(err, errcode.InputInvalid) {
		t.Fatalf("got %v", err)
	}
}

func TestRunStopsWithContext(t *testing.T) {
	m := sim.New()
	t.Cleanup(m.Close)
	s := New()
	s.Attach(TickHz)
	defer s.Detach()

	ctx, cancel := context.WithCancel(context.Background())
	s.Idle = m.Tick
	s.Schedule(func(any) { cancel() }, 5, nil)
	if err := s.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v", err)
	}
}
