package uart

import (
	"periphcore-go/internal/regs"
	"periphcore-go/x/mathx"
)

// Baud names a supported line rate.
type Baud uint8

const (
	BaudUnset Baud = iota
	Baud1200
	Baud2400
	Baud4800
	Baud9600
	Baud19200
	Baud38400
	Baud57600
	Baud115200
	Baud230400
	BaudAuto // auto-baud armed, rate not yet measured
)

var baudRates = [...]uint32{
	Baud1200:   1200,
	Baud2400:   2400,
	Baud4800:   4800,
	Baud9600:   9600,
	Baud19200:  19200,
	Baud38400:  38400,
	Baud57600:  57600,
	Baud115200: 115200,
	Baud230400: 230400,
}

// BPS returns the bit rate, or 0 for BaudUnset and BaudAuto.
func (b Baud) BPS() int {
	if b == BaudUnset || int(b) >= len(baudRates) {
		return 0
	}
	return int(baudRates[b])
}

var baudNames = [...]string{
	BaudUnset:  "unset",
	Baud1200:   "1200",
	Baud2400:   "2400",
	Baud4800:   "4800",
	Baud9600:   "9600",
	Baud19200:  "19200",
	Baud38400:  "38400",
	Baud57600:  "57600",
	Baud115200: "115200",
	Baud230400: "230400",
	BaudAuto:   "auto",
}

func (b Baud) String() string {
	if int(b) < len(baudNames) {
		return baudNames[b]
	}
	return "invalid"
}

// BaudFor returns the enumeration for an exact bit rate.
func BaudFor(bps int) (Baud, bool) {
	for b := Baud1200; b <= Baud230400; b++ {
		if int(baudRates[b]) == bps {
			return b, true
		}
	}
	return BaudUnset, false
}

type divisor struct {
	brg  uint16
	high bool // BRGH
}

var baudTable [len(baudRates)]divisor

func init() {
	for b := Baud1200; b <= Baud230400; b++ {
		baudTable[b] = divisorFor(baudRates[b])
	}
}

// divisorFor picks the generator setting with the smaller rate error.
func divisorFor(bps uint32) divisor {
	best := divisor{}
	bestErr := ^uint32(0)
	for _, high := range []bool{false, true} {
		div := uint32(16)
		if high {
			div = 4
		}
		n := mathx.RoundDiv(uint32(regs.Fcy), div*bps)
		if n == 0 || n > 0x10000 {
			continue
		}
		got := uint32(regs.Fcy) / (div * n)
		if e := mathx.AbsDiff(got, bps); e < bestErr {
			best, bestErr = divisor{brg: uint16(n - 1), high: high}, e
		}
	}
	return best
}

// measured returns the rate the generator runs at.
func measured(brg uint16, high bool) uint32 {
	div := uint32(16)
	if high {
		div = 4
	}
	return mathx.RoundDiv(uint32(regs.Fcy), div*(uint32(brg)+1))
}

// nearestBaud maps a generator setting to the closest table entry.
func nearestBaud(brg uint16, high bool) Baud {
	got := measured(brg, high)
	best := Baud1200
	for b := Baud1200; b <= Baud230400; b++ {
		if mathx.AbsDiff(baudRates[b], got) < mathx.AbsDiff(baudRates[best], got) {
			best = b
		}
	}
	return best
}
