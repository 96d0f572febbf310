//go:build tinygo

package mmio

import "runtime/volatile"

// Reg16 is a 16-bit peripheral register at a fixed address.
type Reg16 = volatile.Register16
