//go:build !tinygo

package dma

import (
	"errors"
	"testing"

	"periphcore-go/errcode"
	"periphcore-go/internal/regs"
	"periphcore-go/internal/sim"
)

func newPingPong(t *testing.T, ch int, size int) *Channel {
	t.Helper()
	pool := NewPool()
	a, err := pool.Take(size)
	if err != nil {
		t.Fatal(err)
	}
	b, err := pool.Take(size)
	if err != nil {
		t.Fatal(err)
	}
	return &Channel{Number: ch, BufferA: a, BufferB: b, Trigger: 0x0C}
}

func TestInitWritesRegistersInOrder(t *testing.T) {
	m := sim.New()
	defer m.Close()
	c := newPingPong(t, 2, 16)
	c.Peripheral = regs.UARTBase(1) + regs.UARTOffTXREG

	m.Trace(true)
	if err := c.Init(Attr{PingPong: true, Width: Byte, Direction: ToPeripheral}); err != nil {
		t.Fatal(err)
	}
	m.Trace(false)

	base := regs.DMAChannelBase(2)
	con := uint16(regs.DMACON_SIZE | regs.DMACON_DIR | regs.MODE_ContPP)
	want := []sim.Write{
		{Addr: base + 0, Value: 0},
		{Addr: base + 2, Value: 0},
		{Addr: base + 4, Value: 0},
		{Addr: base + 6, Value: 0},
		{Addr: base + 8, Value: 0},
		{Addr: base + 10, Value: 0},
		{Addr: base + 2, Value: 0x0C},
		{Addr: base + 8, Value: 0x0224},
		{Addr: base + 4, Value: c.BufferA.Offset()},
		{Addr: base + 6, Value: c.BufferB.Offset()},
		{Addr: base + 10, Value: 15},
		{Addr: base + 0, Value: con},
	}
	got := m.Writes()
	if len(got) != len(want) {
		t.Fatalf("got %d writes want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("write %d: got %+v want %+v", i, got[i], want[i])
		}
	}
	if n, _ := c.BlockSize(); n != 16 {
		t.Fatalf("block size %d want 16", n)
	}
}

func TestInitValidation(t *testing.T) {
	m := sim.New()
	defer m.Close()
	pool := NewPool()
	a, _ := pool.Take(8)
	b, _ := pool.Take(4)

	cases := []struct {
		name string
		c    *Channel
		attr Attr
		want errcode.Code
	}{
		{"bad channel", &Channel{Number: 8, BufferA: a}, Attr{}, errcode.ModuleInvalid},
		{"no buffer", &Channel{Number: 0}, Attr{}, errcode.InputInvalid},
		{"b without ping-pong", &Channel{Number: 0, BufferA: a, BufferB: a}, Attr{}, errcode.InputInvalid},
		{"ping-pong without b", &Channel{Number: 0, BufferA: a}, Attr{PingPong: true}, errcode.InputInvalid},
		{"mismatched halves", &Channel{Number: 0, BufferA: a, BufferB: b}, Attr{PingPong: true}, errcode.InputInvalid},
		{"trigger range", &Channel{Number: 0, BufferA: a, Trigger: 0x80}, Attr{}, errcode.InputInvalid},
		{"bad width", &Channel{Number: 0, BufferA: a}, Attr{Width: 7}, errcode.InputInvalid},
	}
	for _, tc := range cases {
		err := tc.c.Init(tc.attr)
		if errcode.Of(err) != tc.want {
			t.Fatalf("%s: got %v want %v", tc.name, err, tc.want)
		}
		if tc.c.IsValid() {
			t.Fatalf("%s: failed init left a valid channel", tc.name)
		}
	}

	var nilCh *Channel
	if !errors.Is(nilCh.Init(Attr{}), errcode.ModuleInvalid) {
		t.Fatal("nil descriptor")
	}

	c := &Channel{Number: 1, BufferA: a}
	if err := c.Init(Attr{Width: Byte}); err != nil {
		t.Fatal(err)
	}
	if err := c.Init(Attr{Width: Byte}); !errors.Is(err, errcode.ConfigInvalid) {
		t.Fatalf("second init: got %v", err)
	}
}

func TestRegionOutsideWindow(t *testing.T) {
	m := sim.New()
	defer m.Close()
	if _, err := NewRegion(make([]byte, 8)); errcode.Of(err) != errcode.InputInvalid {
		t.Fatalf("got %v want input_invalid", err)
	}
	pool := NewPool()
	if _, err := pool.Take(regs.DMARAMSize + 1); !errors.Is(err, errcode.AllocFailure) {
		t.Fatalf("got %v want alloc_failure", err)
	}
	r, err := pool.Take(3)
	if err != nil || r.Offset() != 0 {
		t.Fatalf("got %v offset %d", err, r.Offset())
	}
	r2, _ := pool.Take(2)
	if r2.Offset() != 4 {
		t.Fatalf("second region at %d want 4 (word aligned)", r2.Offset())
	}
}

func TestPingPongAlternates(t *testing.T) {
	m := sim.New()
	defer m.Close()
	c := newPingPong(t, 0, 32)
	var seen []Buffer
	c.Handler = func() {
		b, _ := c.PingPongStatus()
		seen = append(seen, b)
	}
	if err := c.Init(Attr{PingPong: true, Width: Byte, Direction: ToPeripheral}); err != nil {
		t.Fatal(err)
	}
	if err := c.Enable(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 64; i++ {
		if err := c.Force(); err != nil {
			t.Fatal(err)
		}
	}
	if len(seen) != 2 || seen[0] != BufferA || seen[1] != BufferB {
		t.Fatalf("got %v want [A B]", seen)
	}
	if b, _ := c.PingPongStatus(); b != BufferB {
		t.Fatalf("final status %v want B", b)
	}

	// One-unit blocks complete on every trigger.
	seen = nil
	if err := c.SetBlockSize(1); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 64; i++ {
		c.Force()
	}
	if len(seen) != 64 {
		t.Fatalf("got %d completions want 64", len(seen))
	}
	for i, b := range seen {
		if want := Buffer(i % 2); b != want {
			t.Fatalf("completion %d: got %v want %v", i, b, want)
		}
	}
}

func TestSingleBufferReportsA(t *testing.T) {
	m := sim.New()
	defer m.Close()
	a, _ := NewPool().Take(4)
	c := &Channel{Number: 3, BufferA: a}
	if err := c.Init(Attr{Width: Byte, Mode: OneShot, Direction: ToPeripheral}); err != nil {
		t.Fatal(err)
	}
	c.Enable()
	for i := 0; i < 4; i++ {
		c.Force()
	}
	if b, err := c.PingPongStatus(); err != nil || b != BufferA {
		t.Fatalf("got %v %v", b, err)
	}
	if c.Busy() || c.Enabled() {
		t.Fatal("one-shot block should finish and drop the enable bit")
	}
}

func TestBlockSizeBoundary(t *testing.T) {
	m := sim.New()
	defer m.Close()
	a, _ := NewPool().Take(32)
	c := &Channel{Number: 4, BufferA: a}
	if err := c.Init(Attr{}); err != nil {
		t.Fatal(err)
	}
	if n, _ := c.BlockSize(); n != 16 {
		t.Fatalf("word channel over 32 bytes: got %d units want 16", n)
	}
	if err := c.SetBlockSize(16); err != nil {
		t.Fatalf("full buffer should be accepted: %v", err)
	}
	if err := c.SetBlockSize(17); errcode.Of(err) != errcode.InputInvalid {
		t.Fatalf("got %v want input_invalid", err)
	}
	if err := c.SetBlockSize(0); errcode.Of(err) != errcode.InputInvalid {
		t.Fatalf("got %v want input_invalid", err)
	}
}

func TestEnableIdempotent(t *testing.T) {
	m := sim.New()
	defer m.Close()
	a, _ := NewPool().Take(8)
	c := &Channel{Number: 5, BufferA: a}
	if err := c.Init(Attr{Width: Byte}); err != nil {
		t.Fatal(err)
	}
	c.Enable()
	m.Trace(true)
	if err := c.Enable(); err != nil {
		t.Fatal(err)
	}
	if w := m.Writes(); len(w) != 0 {
		t.Fatalf("second enable wrote registers: %v", w)
	}
	if !c.Busy() {
		t.Fatal("enabled channel should be busy")
	}
	c.Disable()
	if c.Busy() || c.Enabled() {
		t.Fatal("disable should clear busy and the enable bit")
	}
}

func TestInterruptOn(t *testing.T) {
	m := sim.New()
	defer m.Close()
	a, _ := NewPool().Take(8)
	c := &Channel{Number: 6, BufferA: a}
	var hits int
	c.Handler = func() { hits++ }
	if err := c.Init(Attr{Width: Byte, Direction: ToPeripheral}); err != nil {
		t.Fatal(err)
	}
	if err := c.SetInterruptOn(Half); err != nil {
		t.Fatal(err)
	}
	if on, _ := c.InterruptOn(); on != Half {
		t.Fatalf("got %v want Half", on)
	}
	c.Enable()
	for i := 0; i < 4; i++ {
		c.Force()
	}
	if hits != 1 {
		t.Fatalf("half interrupt: got %d hits want 1", hits)
	}
	// The rest of the block completes silently; the next block's midpoint fires.
	for i := 0; i < 8; i++ {
		c.Force()
	}
	if hits != 2 {
		t.Fatalf("got %d hits want 2", hits)
	}
	if err := c.SetInterruptOn(InterruptOn(9)); errcode.Of(err) != errcode.InputInvalid {
		t.Fatalf("got %v", err)
	}
}

func TestCleanupRestoresResetValues(t *testing.T) {
	m := sim.New()
	defer m.Close()
	c := newPingPong(t, 7, 8)
	if err := c.Init(Attr{PingPong: true, Width: Byte}); err != nil {
		t.Fatal(err)
	}
	c.Enable()
	if err := c.Cleanup(); err != nil {
		t.Fatal(err)
	}
	r := regs.DMA(7)
	for i, v := range []uint16{r.CON.Get(), r.REQ.Get(), r.STA.Get(), r.STB.Get(), r.PAD.Get(), r.CNT.Get()} {
		if v != 0 {
			t.Fatalf("register %d = %#04x after cleanup", i, v)
		}
	}
	if c.IsValid() {
		t.Fatal("cleaned channel should be invalid")
	}
	if err := c.Cleanup(); err != nil {
		t.Fatalf("second cleanup: %v", err)
	}
	if err := c.Enable(); !errors.Is(err, errcode.ModuleInvalid) {
		t.Fatalf("enable after cleanup: got %v", err)
	}
	if _, err := c.PingPongStatus(); err == nil {
		t.Fatal("status after cleanup should fail")
	}
	if err := c.Init(Attr{PingPong: true, Width: Byte}); err != nil {
		t.Fatalf("re-init after cleanup: %v", err)
	}
}

func TestAttrRoundTrip(t *testing.T) {
	m := sim.New()
	defer m.Close()
	c := newPingPong(t, 4, 8)
	if _, err := c.Attr(); !errors.Is(err, errcode.ModuleInvalid) {
		t.Fatalf("attr before init: got %v", err)
	}
	want := Attr{Mode: OneShot, PingPong: true, Width: Byte, Direction: ToPeripheral, InterruptOn: Half}
	if err := c.Init(want); err != nil {
		t.Fatal(err)
	}
	got, err := c.Attr()
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestProgressTracksCurrentBlock(t *testing.T) {
	m := sim.New()
	defer m.Close()
	c := newPingPong(t, 3, 4)
	if err := c.Init(Attr{PingPong: true, Width: Byte}); err != nil {
		t.Fatal(err)
	}
	c.Enable()
	check := func(wantB Buffer, wantN int) {
		t.Helper()
		b, n, err := c.Progress()
		if err != nil {
			t.Fatal(err)
		}
		if n != wantN || (wantN > 0 && b != wantB) {
			t.Fatalf("got %v/%d want %v/%d", b, n, wantB, wantN)
		}
	}
	check(BufferA, 0)
	c.Force()
	c.Force()
	check(BufferA, 2)
	c.Force()
	c.Force()
	check(BufferA, 0) // block A completed
	c.Force()
	check(BufferB, 1)

	// A transfer on another channel hides this channel's position.
	pool := NewPool()
	a, _ := pool.Take(8)
	other := &Channel{Number: 5, BufferA: a}
	if err := other.Init(Attr{Width: Byte}); err != nil {
		t.Fatal(err)
	}
	other.Enable()
	other.Force()
	check(BufferB, 0)

	c.Cleanup()
	if _, _, err := c.Progress(); !errors.Is(err, errcode.ModuleInvalid) {
		t.Fatalf("progress after cleanup: got %v", err)
	}
}
