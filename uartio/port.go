// Package uartio adapts a uart.Module to stream interfaces: io.Reader,
// io.Writer and tinygo.org/x/drivers.UART, with context-bounded blocking
// helpers and a framing reader worker.
package uartio

import (
	"context"
	"runtime"

	"tinygo.org/x/drivers"

	"periphcore-go/dma"
	"periphcore-go/errcode"
	"periphcore-go/uart"
)

var _ drivers.UART = (*Port)(nil)

// ErrReserved is returned for transfers on a framing that moves no data.
var ErrReserved = &errcode.E{C: errcode.InputInvalid, Op: "uartio", Msg: "framing reserved"}

// Config names the UART, its attributes, line rate and DMA channels.
type Config struct {
	Number int
	Attr   uart.Attr
	Baud   uart.Baud // BaudUnset leaves the generator at reset; BaudAuto arms auto-baud
	TXDMA  *dma.Channel
	RXDMA  *dma.Channel
}

// Port is an open UART in both directions.
type Port struct {
	m        *uart.Module
	readable chan struct{}
	reserved bool // LIN: the driver accepts and delivers nothing

	// Poll runs whenever a call would otherwise spin waiting for the
	// hardware. Host builds point it at the hardware model; it must only be
	// used from one goroutine.
	Poll func()
}

// Open initializes UART cfg.Number and opens it for TX and RX.
func Open(cfg Config) (*Port, error) {
	p := &Port{
		readable: make(chan struct{}, 1),
		reserved: cfg.Attr.Mode.Framing == uart.LIN,
	}
	p.m = uart.New(cfg.Number, nil, p.notifyRX)
	if err := p.m.Init(cfg.Attr, cfg.TXDMA, cfg.RXDMA); err != nil {
		return nil, err
	}
	var err error
	switch cfg.Baud {
	case uart.BaudUnset:
	case uart.BaudAuto:
		err = p.m.AutoBaud()
	default:
		err = p.m.SetBaudRate(cfg.Baud)
	}
	if err == nil {
		err = p.m.Open(uart.TXRX)
	}
	if err != nil {
		p.m.Cleanup()
		return nil, err
	}
	return p, nil
}

// notifyRX runs in interrupt context.
func (p *Port) notifyRX() {
	select {
	case p.readable <- struct{}{}:
	default:
	}
}

// Module is the underlying driver.
func (p *Port) Module() *uart.Module { return p.m }

// Close releases the UART and its DMA channels.
func (p *Port) Close() error { return p.m.Cleanup() }

func (p *Port) wait() {
	if p.Poll != nil {
		p.Poll()
		return
	}
	runtime.Gosched()
}

// Readable is signalled by the receive interrupt.
func (p *Port) Readable() <-chan struct{} { return p.readable }

// Buffered is the number of bytes Read returns without waiting.
func (p *Port) Buffered() int {
	if p.Poll != nil {
		p.Poll()
	}
	return p.m.Buffered()
}

// Read returns whatever is buffered, possibly nothing.
func (p *Port) Read(b []byte) (int, error) {
	n, err := p.m.Read(b)
	if n == 0 && err == nil && len(b) > 0 && p.Poll != nil {
		p.Poll()
		n, err = p.m.Read(b)
	}
	return n, err
}

// RecvSomeContext blocks until at least one byte arrives or ctx is done.
func (p *Port) RecvSomeContext(ctx context.Context, b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	if p.reserved {
		return 0, ErrReserved
	}
	for {
		n, err := p.m.Read(b)
		if n > 0 || err != nil {
			return n, err
		}
		if p.Poll != nil {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
			p.Poll()
			continue
		}
		select {
		case <-p.readable:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

// Write blocks until all of b is queued, then flushes.
func (p *Port) Write(b []byte) (int, error) {
	return p.SendContext(context.Background(), b)
}

func (p *Port) WriteByte(c byte) error {
	_, err := p.Write([]byte{c})
	return err
}

// SendContext queues b, waiting for space as needed, and flushes the
// transmit side so short writes leave promptly. It returns early with the
// count so far if ctx ends.
func (p *Port) SendContext(ctx context.Context, b []byte) (int, error) {
	if p.reserved && len(b) > 0 {
		return 0, ErrReserved
	}
	n := 0
	for n < len(b) {
		k, err := p.m.Write(b[n:])
		n += k
		if err != nil {
			return n, err
		}
		if k > 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return n, err
		}
		p.m.Flush(uart.TX)
		p.wait()
	}
	if n > 0 {
		p.m.Flush(uart.TX)
	}
	return n, nil
}
