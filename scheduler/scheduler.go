// Package scheduler runs deferred work released by interrupt handlers.
//
// Records sit in a fixed table. A periodic tick counts every record's
// priority down by one; the main loop dispatches the ready record (priority
// at or below zero) with the lowest priority value, oldest first on ties.
package scheduler

import (
	"context"
	"math"
	"runtime"

	"golang.org/x/exp/slices"

	"periphcore-go/errcode"
	"periphcore-go/internal/irq"
	"periphcore-go/internal/regs"
	"periphcore-go/x/mathx"
)

const (
	// Capacity is the number of records the table holds.
	Capacity = 16
	// TickHz is the default tick rate programmed by Attach.
	TickHz = 2000
)

var (
	ErrFull           = &errcode.E{C: errcode.SoftwareBufferError, Op: "scheduler", Msg: "table full"}
	ErrInvalidHandler = &errcode.E{C: errcode.InputInvalid, Op: "scheduler", Msg: "nil handler"}
	ErrInputInvalid   = &errcode.E{C: errcode.InputInvalid, Op: "scheduler", Msg: "input invalid"}
)

// Handler is invoked from the main loop with the argument it was scheduled
// with.
type Handler func(arg any)

type record struct {
	h        Handler
	arg      any
	priority int32
}

// Scheduler is a fixed-capacity table of pending records.
type Scheduler struct {
	slots [Capacity]*record

	// Idle runs when Start or Run finds nothing ready. Nil yields the
	// processor.
	Idle func()
}

// New returns an empty scheduler.
func New() *Scheduler { return &Scheduler{} }

// Init drops every pending record.
func (s *Scheduler) Init() {
	st := irq.Disable()
	clear(s.slots[:])
	irq.Restore(st)
}

// Schedule adds a record. A positive priority is a delay in ticks; zero or
// below is ready, more negative first. It is safe to call from interrupt
// handlers.
func (s *Scheduler) Schedule(h Handler, priority int32, arg any) error {
	if h == nil {
		return ErrInvalidHandler
	}
	r := &record{h: h, arg: arg, priority: priority}
	st := irq.Disable()
	defer irq.Restore(st)
	for i, slot := range s.slots {
		if slot == nil {
			s.slots[i] = r
			return nil
		}
	}
	return ErrFull
}

// Tick ages every pending record by one. It is the timer interrupt handler.
func (s *Scheduler) Tick() {
	st := irq.Disable()
	for _, r := range s.slots {
		if r != nil && r.priority > math.MinInt32 {
			r.priority--
		}
	}
	irq.Restore(st)
}

// Pending is the number of occupied slots.
func (s *Scheduler) Pending() int {
	st := irq.Disable()
	defer irq.Restore(st)
	n := 0
	for _, r := range s.slots {
		if r != nil {
			n++
		}
	}
	return n
}

func byPriority(a, b *record) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case a.priority < b.priority:
		return -1
	case a.priority > b.priority:
		return 1
	}
	return 0
}

// RunOnce reorders the table and dispatches the head if it is ready. It
// reports whether a handler ran.
func (s *Scheduler) RunOnce() bool {
	st := irq.Disable()
	slices.SortStableFunc(s.slots[:], byPriority)
	r := s.slots[0]
	if r == nil || r.priority > 0 {
		irq.Restore(st)
		return false
	}
	s.slots[0] = nil
	irq.Restore(st)

	r.h(r.arg)
	return true
}

func (s *Scheduler) idle() {
	if s.Idle != nil {
		s.Idle()
		return
	}
	runtime.Gosched()
}

// Start dispatches forever.
func (s *Scheduler) Start() {
	for {
		if !s.RunOnce() {
			s.idle()
		}
	}
}

// Run dispatches until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !s.RunOnce() {
			s.idle()
		}
	}
}

var prescalers = [...]uint32{1, 8, 64, 256}

// Attach programs Timer1 to interrupt at hz and installs Tick on its vector.
func (s *Scheduler) Attach(hz int) error {
	if hz <= 0 || hz > regs.Fcy {
		return ErrInputInvalid
	}
	ps, period := -1, uint32(0)
	for i, div := range prescalers {
		period = mathx.RoundDiv(uint32(regs.Fcy), div*uint32(hz))
		if period >= 1 && period <= 0x10000 {
			ps = i
			break
		}
	}
	if ps < 0 {
		return ErrInputInvalid
	}
	t := regs.Timer1()
	irq.Mask(regs.Timer1IRQ)
	t.CON.Set(0)
	t.TMR.Set(0)
	t.PR.Set(uint16(period - 1))
	t.CON.Set(regs.TCON_TON | uint16(ps)<<regs.TCON_TCKPS_Pos)
	irq.ClearFlag(regs.Timer1IRQ)
	irq.Install(regs.Timer1IRQ, s.Tick)
	irq.Enable(regs.Timer1IRQ)
	return nil
}

// Detach stops Timer1 and removes the tick handler.
func (s *Scheduler) Detach() {
	irq.Uninstall(regs.Timer1IRQ)
	regs.Timer1().CON.Set(0)
}
