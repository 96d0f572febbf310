package uartio

import (
	"context"
	"sync"
	"testing"
	"time"
)

// --- minimal fake receive side ---

type fakeSource struct {
	mu sync.Mutex
	rx []byte
	rd chan struct{}
}

func newFakeSource() *fakeSource { return &fakeSource{rd: make(chan struct{}, 1)} }

func (f *fakeSource) inject(b []byte) {
	f.mu.Lock()
	f.rx = append(f.rx, b...)
	f.mu.Unlock()
	select {
	case f.rd <- struct{}{}:
	default:
	}
}

func (f *fakeSource) read(p []byte) int {
	f.mu.Lock()
	n := copy(p, f.rx)
	f.rx = f.rx[n:]
	f.mu.Unlock()
	return n
}

func (f *fakeSource) Readable() <-chan struct{} { return f.rd }
func (f *fakeSource) RecvSomeContext(ctx context.Context, p []byte) (int, error) {
	if n := f.read(p); n > 0 {
		return n, nil
	}
	select {
	case <-f.rd:
		return f.read(p), nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func recvEvent(ch <-chan Event, d time.Duration) (Event, bool) {
	select {
	case ev := <-ch:
		return ev, true
	case <-time.After(d):
		return Event{}, false
	}
}

func TestWorkerBytesMode(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := newFakeSource()
	w := New(8)
	stop, err := w.Register(ctx, ReaderCfg{Port: 1, Source: src, Mode: Bytes, MaxFrame: 16})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	defer stop()

	src.inject([]byte("abc"))
	ev, ok := recvEvent(w.Events(), time.Second)
	if !ok {
		t.Fatal("timeout waiting for rx")
	}
	if ev.Port != 1 || ev.Dir != "rx" || string(ev.Data) != "abc" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.TS.IsZero() {
		t.Fatal("timestamp not set")
	}
}

func TestWorkerLinesModeNewlineAndIdleFlush(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := newFakeSource()
	w := New(8)
	stop, err := w.Register(ctx, ReaderCfg{
		Port:      2,
		Source:    src,
		Mode:      Lines,
		MaxFrame:  32,
		IdleFlush: 30 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	defer stop()

	src.inject([]byte("a"))
	ev, ok := recvEvent(w.Events(), 300*time.Millisecond)
	if !ok || string(ev.Data) != "a" {
		t.Fatalf("idle flush got %q, %v", ev.Data, ok)
	}

	src.inject([]byte("hi\r\nthere\n"))
	for _, want := range []string{"hi", "there"} {
		ev, ok = recvEvent(w.Events(), time.Second)
		if !ok {
			t.Fatalf("timeout waiting for %q", want)
		}
		if got := string(ev.Data); got != want {
			t.Fatalf("got %q want %q", got, want)
		}
	}
}

func TestWorkerLineClampedToMinFrame(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := newFakeSource()
	w := New(4)
	stop, _ := w.Register(ctx, ReaderCfg{Port: 3, Source: src, Mode: Lines, MaxFrame: 4})
	defer stop()

	src.inject([]byte("0123456789abcdefXYZ\n"))
	ev, ok := recvEvent(w.Events(), time.Second)
	if !ok {
		t.Fatal("timeout")
	}
	if got := string(ev.Data); got != "0123456789abcdef" {
		t.Fatalf("got %q", got)
	}
}

func TestWorkerTxEchoChunking(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := New(4)
	stop, _ := w.Register(ctx, ReaderCfg{Port: 4, Source: newFakeSource(), MaxFrame: 16})
	defer stop()

	w.EmitTX(4, []byte("ABCDEFGHIJKLMNOPQRST"))
	for _, want := range []string{"ABCDEFGHIJKLMNOP", "QRST"} {
		ev, ok := recvEvent(w.Events(), time.Second)
		if !ok {
			t.Fatalf("timeout waiting for %q", want)
		}
		if ev.Dir != "tx" || string(ev.Data) != want {
			t.Fatalf("got %s %q want %q", ev.Dir, ev.Data, want)
		}
	}
}

func TestRegisterNeedsSource(t *testing.T) {
	if _, err := New(1).Register(context.Background(), ReaderCfg{}); err != ErrNoSource {
		t.Fatalf("got %v", err)
	}
}
