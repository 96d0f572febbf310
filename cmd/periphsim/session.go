//go:build !tinygo

package main

import (
	"strings"

	"periphcore-go/boardcfg"
	"periphcore-go/dma"
	"periphcore-go/internal/sim"
	"periphcore-go/uart"
	"periphcore-go/uartio"
)

// session is one simulated board with a port opened from a profile.
type session struct {
	m    *sim.Machine
	prof *boardcfg.Profile
	port *uartio.Port
}

func loadProfile(name string) (*boardcfg.Profile, error) {
	if strings.ContainsAny(name, "./") {
		return boardcfg.LoadFile(name)
	}
	return boardcfg.Load(name)
}

// profileOr returns the --profile flag, or def when it is unset.
func profileOr(def string) string {
	if profileName != "" {
		return profileName
	}
	return def
}

func openSession(name string) (*session, error) {
	p, err := loadProfile(name)
	if err != nil {
		return nil, err
	}
	m := sim.New()
	port, err := p.Open(dma.NewPool())
	if err != nil {
		m.Close()
		return nil, err
	}
	port.Poll = func() { m.Step() }
	return &session{m: m, prof: p, port: port}, nil
}

func (s *session) Close() {
	s.port.Close()
	s.m.Close()
}

// rxBlock is the unit count the receive side hands over at once.
func (s *session) rxBlock() int {
	if s.prof.RX.DMA != nil {
		return s.prof.RX.DMA.Bytes
	}
	return 1
}

// pad grows p to a whole number of receive blocks.
func (s *session) pad(p []byte) []byte {
	if r := len(p) % s.rxBlock(); r != 0 {
		p = append(p, make([]byte, s.rxBlock()-r)...)
	}
	return p
}

// roundTrip feeds p to the port while draining the receive side, and stops
// once as many bytes came back or the line stayed quiet for 64 steps.
func (s *session) roundTrip(p []byte) ([]byte, error) {
	u := s.port.Module()
	got := make([]byte, 0, len(p))
	buf := make([]byte, 64)
	sent := 0
	for idle := 0; len(got) < len(p) && idle < 64; {
		if sent < len(p) {
			k, err := u.Write(p[sent:])
			if err != nil {
				return got, err
			}
			if k > 0 {
				sent += k
				u.Flush(uart.TX)
			}
		}
		s.m.Step()
		n, err := u.Read(buf)
		if err != nil {
			return got, err
		}
		if n == 0 {
			idle++
			continue
		}
		idle = 0
		got = append(got, buf[:n]...)
	}
	return got, nil
}
