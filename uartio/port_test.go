//go:build !tinygo

package uartio

import (
	"context"
	"errors"
	"strings"
	"testing"

	"tinygo.org/x/drivers/gps"

	"periphcore-go/errcode"
	"periphcore-go/internal/sim"
	"periphcore-go/uart"
)

func TestPortLoopbackWrite(t *testing.T) {
	m := sim.New()
	t.Cleanup(m.Close)
	p, err := Open(Config{
		Number: 1,
		Attr: uart.Attr{
			Mode: uart.ModeSettings{Loopback: true},
			TX:   uart.BufferSettings{Mode: uart.Software, Size: 16},
			RX:   uart.BufferSettings{Mode: uart.Software, Size: 64},
		},
		Baud: uart.Baud115200,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()
	p.Poll = func() { m.Step() }

	msg := "a message longer than the transmit ring"
	n, err := p.Write([]byte(msg))
	if err != nil || n != len(msg) {
		t.Fatalf("write: %d, %v", n, err)
	}
	var got []byte
	buf := make([]byte, 16)
	for len(got) < len(msg) {
		k, err := p.RecvSomeContext(context.Background(), buf)
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, buf[:k]...)
	}
	if string(got) != msg {
		t.Fatalf("got %q", got)
	}
	select {
	case <-p.Readable():
	default:
		t.Fatal("receive interrupt should signal Readable")
	}
}

func TestPortRecvHonoursContext(t *testing.T) {
	m := sim.New()
	t.Cleanup(m.Close)
	p, err := Open(Config{Number: 2, Attr: uart.Attr{RX: uart.BufferSettings{Mode: uart.Software}}})
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()
	p.Poll = func() { m.Step() }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.RecvSomeContext(ctx, make([]byte, 4)); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v", err)
	}
	if n, err := p.Read(make([]byte, 4)); n != 0 || err != nil {
		t.Fatalf("got %d, %v", n, err)
	}
}

func TestPortLINMovesNothing(t *testing.T) {
	m := sim.New()
	t.Cleanup(m.Close)
	p, err := Open(Config{Number: 1, Attr: uart.Attr{Mode: uart.ModeSettings{Framing: uart.LIN}}})
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()
	p.Poll = func() { m.Step() }

	if n, err := p.Write([]byte("break")); n != 0 || !errors.Is(err, errcode.InputInvalid) {
		t.Fatalf("write: got %d, %v", n, err)
	}
	if _, err := p.RecvSomeContext(context.Background(), make([]byte, 4)); !errors.Is(err, ErrReserved) {
		t.Fatalf("recv: got %v", err)
	}
}

func TestPortClosed(t *testing.T) {
	m := sim.New()
	t.Cleanup(m.Close)
	p, err := Open(Config{Number: 3})
	if err != nil {
		t.Fatal(err)
	}
	p.Close()
	if err := p.WriteByte('x'); !errors.Is(err, errcode.ModuleInvalid) {
		t.Fatalf("got %v", err)
	}
	if _, err := Open(Config{Number: 9}); !errors.Is(err, errcode.ModuleInvalid) {
		t.Fatalf("got %v", err)
	}
}

const (
	gga = "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47"
	rmc = "$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A"
)

func TestPortFeedsGPSDriver(t *testing.T) {
	m := sim.New()
	t.Cleanup(m.Close)
	p, err := Open(Config{
		Number: 2,
		Attr:   uart.Attr{RX: uart.BufferSettings{Mode: uart.Software, Size: 128}},
		Baud:   uart.Baud9600,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()
	u := p.Module()
	// Step the line until the ring is nearly full, so the driver never has to
	// sleep for data.
	p.Poll = func() {
		for i := 0; i < 256 && u.Buffered() < 120; i++ {
			if !m.Step() {
				return
			}
		}
	}

	stream := strings.Repeat(gga+"\r\n"+rmc+"\r\n", 2)
	for i := 0; i < len(stream); i++ {
		m.Wire(2).Feed(9600, uint16(stream[i]))
	}

	dev := gps.NewUART(p)
	s, err := dev.NextSentence()
	if err != nil || s != gga {
		t.Fatalf("first sentence %q, %v", s, err)
	}
	parser := gps.NewParser()
	fix, err := parser.Parse(s)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if fix.Satellites != 8 {
		t.Fatalf("satellites %d want 8", fix.Satellites)
	}
	if s, err = dev.NextSentence(); err != nil || s != rmc {
		t.Fatalf("second sentence %q, %v", s, err)
	}
}
