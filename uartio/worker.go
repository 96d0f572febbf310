package uartio

import (
	"context"
	"sync"
	"time"

	"periphcore-go/errcode"
	"periphcore-go/x/mathx"
)

var ErrNoSource = &errcode.E{C: errcode.InputInvalid, Op: "uartio", Msg: "nil source"}

// Source is the receive side a Worker reads from. *Port implements it.
type Source interface {
	Readable() <-chan struct{}
	RecvSomeContext(ctx context.Context, p []byte) (int, error)
}

type Event struct {
	Port int
	Dir  string // "rx" | "tx"
	Data []byte
	TS   time.Time
}

type Mode string

const (
	Bytes Mode = "bytes"
	Lines Mode = "lines"
)

type ReaderCfg struct {
	Port      int
	Source    Source
	Mode      Mode
	MaxFrame  int           // clamp 16..256
	IdleFlush time.Duration // clamp 0..2s (lines mode)
}

const (
	minFrame     = 16
	maxFrame     = 256
	maxIdleFlush = 2 * time.Second
)

// Worker turns received bytes into Events.
type Worker struct {
	outQ chan Event

	mu       sync.Mutex
	maxFrame map[int]int
}

func New(outBuf int) *Worker {
	if outBuf <= 0 {
		outBuf = 64
	}
	return &Worker{outQ: make(chan Event, outBuf), maxFrame: map[int]int{}}
}

func (w *Worker) Events() <-chan Event { return w.outQ }

func (w *Worker) emit(ev Event) {
	select {
	case w.outQ <- ev:
	default:
		// drop if consumer is slow
	}
}

// Register starts a bounded reader goroutine for a port. The returned stop
// func cancels it and waits until it no longer touches the source.
func (w *Worker) Register(ctx context.Context, cfg ReaderCfg) (func(), error) {
	if cfg.Source == nil {
		return nil, ErrNoSource
	}
	max := mathx.Clamp(cfg.MaxFrame, minFrame, maxFrame)
	idle := mathx.Clamp(cfg.IdleFlush, 0, maxIdleFlush)
	w.mu.Lock()
	w.maxFrame[cfg.Port] = max
	w.mu.Unlock()
	cctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		buf := make([]byte, max)
		var line []byte

		timer := time.NewTimer(time.Hour)
		if !timer.Stop() {
			drainTimer(timer)
		}
		defer timer.Stop()

		flush := func(now time.Time) {
			if len(line) == 0 {
				return
			}
			payload := append([]byte(nil), line...)
			line = line[:0]
			w.emit(Event{Port: cfg.Port, Dir: "rx", Data: payload, TS: now})
		}

		consume := func(p []byte, now time.Time) {
			if cfg.Mode != Lines {
				w.emit(Event{Port: cfg.Port, Dir: "rx", Data: append([]byte(nil), p...), TS: now})
				return
			}
			for _, b := range p {
				switch b {
				case '\n':
					flush(now)
				case '\r':
				default:
					if len(line) < max {
						line = append(line, b)
					}
				}
			}
		}

		for {
			if cfg.Mode == Lines && len(line) > 0 && idle > 0 {
				resetTimer(timer, idle)
			} else {
				resetTimer(timer, time.Hour)
			}
			select {
			case <-cctx.Done():
				return
			case <-cfg.Source.Readable():
				// Keep reading while chunks come back full.
				for {
					// Bound the blocking wait to assist shutdown.
					rctx, rcancel := context.WithTimeout(cctx, 250*time.Millisecond)
					n, _ := cfg.Source.RecvSomeContext(rctx, buf)
					rcancel()
					if n <= 0 {
						break
					}
					consume(buf[:n], time.Now())
					if n < len(buf) {
						break
					}
				}
			case <-timer.C:
				flush(time.Now())
			}
		}
	}()

	return func() { cancel(); <-done }, nil
}

// EmitTX publishes a TX echo, split into frames no larger than the port's
// MaxFrame.
func (w *Worker) EmitTX(port int, data []byte) {
	w.mu.Lock()
	max, ok := w.maxFrame[port]
	w.mu.Unlock()
	if !ok {
		max = maxFrame
	}
	now := time.Now()
	for len(data) > 0 {
		k := min(len(data), max)
		w.emit(Event{Port: port, Dir: "tx", Data: append([]byte(nil), data[:k]...), TS: now})
		data = data[k:]
	}
}
