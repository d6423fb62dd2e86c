package rtuslave

import "time"

// BaudIndex selects one of the seven fixed baud rates spec.md §6's
// table allows, along with the driver-level receiver-timeout (in
// bit-times) that goes with it.
type BaudIndex uint8

const (
	Baud4800 BaudIndex = iota
	Baud9600
	Baud19200
	Baud38400
	Baud57600
	Baud115200
	Baud230400
)

type baudEntry struct {
	rate           uint32
	rxTimeoutBits  uint32
}

var baudTable = map[BaudIndex]baudEntry{
	Baud4800:   {4800, 39},
	Baud9600:   {9600, 39},
	Baud19200:  {19200, 39},
	Baud38400:  {38400, 67},
	Baud57600:  {57600, 101},
	Baud115200: {115200, 202},
	Baud230400: {230400, 403},
}

func (b BaudIndex) valid() bool {
	_, ok := baudTable[b]
	return ok
}

// Rate returns the baud rate in bits per second for this index.
func (b BaudIndex) Rate() uint32 {
	return baudTable[b].rate
}

// RxTimeout returns the receiver inter-character timeout for this
// baud index, derived from the bit-time count in spec.md §6's table.
func (b BaudIndex) RxTimeout() time.Duration {
	e := baudTable[b]
	charTime := time.Second / time.Duration(e.rate)
	return charTime * time.Duration(e.rxTimeoutBits)
}

// Parity selects the UART parity mode. The number of data bits is
// derived from parity, not set independently: this class of USART
// peripheral carries the parity bit in the 9th bit position, so even
// and odd parity require 9 data bits while no parity requires 8
// (grounded in original_source/MODBUS.c's MBR_Set_Communication_Parameters,
// which switches UART_WORDLENGTH alongside UART_PARITY).
type Parity uint8

const (
	ParityNone Parity = iota
	ParityEven
	ParityOdd
)

func (p Parity) valid() bool {
	return p == ParityNone || p == ParityEven || p == ParityOdd
}

// DataBits returns the number of UART data bits implied by this
// parity mode: 8 for no parity, 9 (8 data + 1 parity) otherwise.
func (p Parity) DataBits() int {
	if p == ParityNone {
		return 8
	}
	return 9
}

func (p Parity) String() string {
	switch p {
	case ParityNone:
		return "none"
	case ParityEven:
		return "even"
	case ParityOdd:
		return "odd"
	default:
		return "unknown"
	}
}
