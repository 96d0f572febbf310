// Package regs describes the peripheral register map: UART and DMA channel
// blocks, the DMA controller status word, Timer1, the DMA-visible RAM window
// and the interrupt numbers that tie them together.
package regs

import (
	"periphcore-go/internal/irq"
	"periphcore-go/internal/mmio"
)

// Fcy is the instruction clock feeding the baud and timer prescalers.
const Fcy = 40_000_000

// UART is one UART module, five words from its base.
type UART struct {
	MODE  mmio.Reg16
	STA   mmio.Reg16
	TXREG mmio.Reg16
	RXREG mmio.Reg16
	BRG   mmio.Reg16
}

// Word offsets from a UART base.
const (
	UARTOffMODE  = 0x0
	UARTOffSTA   = 0x2
	UARTOffTXREG = 0x4
	UARTOffRXREG = 0x6
	UARTOffBRG   = 0x8
)

// NumUARTs is the number of UART modules; they are numbered from 1.
const NumUARTs = 4

var uartBase = [NumUARTs + 1]uint16{0, 0x0220, 0x0230, 0x0250, 0x02B0}

// UARTBase returns the base address of UART n, or 0 if there is none.
func UARTBase(n int) uint16 {
	if n < 1 || n > NumUARTs {
		return 0
	}
	return uartBase[n]
}

// UxMODE
const (
	MODE_UARTEN = 1 << 15
	MODE_USIDL  = 1 << 13
	MODE_IREN   = 1 << 12
	MODE_RTSMD  = 1 << 11
	MODE_UEN    = 0x3 << 8
	MODE_WAKE   = 1 << 7
	MODE_LPBACK = 1 << 6
	MODE_ABAUD  = 1 << 5
	MODE_URXINV = 1 << 4
	MODE_BRGH   = 1 << 3
	MODE_PDSEL  = 0x3 << 1
	MODE_STSEL  = 1 << 0

	MODE_UEN_Pos   = 8
	MODE_PDSEL_Pos = 1

	// UEN pin usage
	UEN_TXRX   = 0x0 // TX and RX only
	UEN_RTS    = 0x1 // TX, RX and RTS
	UEN_RTSCTS = 0x2 // TX, RX, RTS and CTS
	UEN_BCLK   = 0x3 // TX, RX and BCLK (external IrDA encoder)

	// PDSEL data/parity
	PDSEL_8N = 0x0
	PDSEL_8E = 0x1
	PDSEL_8O = 0x2
	PDSEL_9N = 0x3
)

// UxSTA
const (
	STA_UTXISEL1 = 1 << 15
	STA_UTXINV   = 1 << 14
	STA_UTXISEL0 = 1 << 13
	STA_UTXBRK   = 1 << 11
	STA_UTXEN    = 1 << 10
	STA_UTXBF    = 1 << 9
	STA_TRMT     = 1 << 8
	STA_URXISEL  = 0x3 << 6
	STA_ADDEN    = 1 << 5
	STA_RIDLE    = 1 << 4
	STA_PERR     = 1 << 3
	STA_FERR     = 1 << 2
	STA_OERR     = 1 << 1
	STA_URXDA    = 1 << 0

	STA_URXISEL_Pos = 6
)

// Reset values.
const (
	UARTResetMODE = 0x0000
	UARTResetSTA  = STA_TRMT | STA_RIDLE
	UARTResetBRG  = 0xFFFF
)

// FIFODepth is the hardware FIFO depth in each direction.
const FIFODepth = 4

// UART interrupt vectors.
var (
	uartRX = [NumUARTs + 1]irq.Vector{0, 11, 30, 82, 88}
	uartTX = [NumUARTs + 1]irq.Vector{0, 12, 31, 83, 89}
)

// UARTRXIRQ returns the receive vector of UART n.
func UARTRXIRQ(n int) irq.Vector {
	if n < 1 || n > NumUARTs {
		return 0
	}
	return uartRX[n]
}

// UARTTXIRQ returns the transmit vector of UART n.
func UARTTXIRQ(n int) irq.Vector {
	if n < 1 || n > NumUARTs {
		return 0
	}
	return uartTX[n]
}

// DMAChannel is one DMA channel block.
type DMAChannel struct {
	CON mmio.Reg16
	REQ mmio.Reg16
	STA mmio.Reg16
	STB mmio.Reg16
	PAD mmio.Reg16
	CNT mmio.Reg16
}

// NumDMAChannels is the number of DMA channels.
const NumDMAChannels = 8

const (
	DMABase       = 0x0380
	DMAStride     = 12
	DMACS1Addr    = 0x03E2
	DSADRAddr     = 0x03E4
	DMARAMBase    = 0x4000
	DMARAMSize    = 2048
	DMAResetValue = 0x0000
)

// DMAxCON
const (
	DMACON_CHEN  = 1 << 15
	DMACON_SIZE  = 1 << 14 // 1: byte
	DMACON_DIR   = 1 << 13 // 1: RAM to peripheral
	DMACON_HALF  = 1 << 12
	DMACON_NULLW = 1 << 11
	DMACON_AMODE = 0x3 << 4
	DMACON_MODE  = 0x3 << 0

	DMACON_AMODE_Pos = 4

	AMODE_PostInc   = 0x0
	AMODE_NoInc     = 0x1
	AMODE_Periph    = 0x2
	MODE_Continuous = 0x0
	MODE_OneShot    = 0x1
	MODE_ContPP     = 0x2
	MODE_OneShotPP  = 0x3
)

// DMACS1: PPSTn in bits 7:0, the last active channel in LSTCH.
const (
	DMACS1_LSTCH     = 0xF << 8
	DMACS1_LSTCH_Pos = 8
	LSTCH_None       = 0xF

	DMACS1ResetValue = LSTCH_None << DMACS1_LSTCH_Pos
)

// DMAxREQ
const (
	DMAREQ_FORCE  = 1 << 15
	DMAREQ_IRQSEL = 0x7F
)

var dmaIRQ = [NumDMAChannels]irq.Vector{4, 14, 24, 44, 61, 62, 63, 64}

// DMAIRQ returns the completion vector of channel ch.
func DMAIRQ(ch int) irq.Vector {
	if ch < 0 || ch >= NumDMAChannels {
		return 0
	}
	return dmaIRQ[ch]
}

// DMAChannelBase returns the base address of channel ch.
func DMAChannelBase(ch int) uint16 {
	return uint16(DMABase + DMAStride*ch)
}

// Timer is a 16-bit timer block.
type Timer struct {
	TMR mmio.Reg16
	PR  mmio.Reg16
	CON mmio.Reg16
}

const (
	Timer1Base = 0x0100
	Timer1IRQ  = irq.Vector(3)

	TCON_TON   = 1 << 15
	TCON_TCKPS = 0x3 << 4

	TCON_TCKPS_Pos = 4
)
