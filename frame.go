package rtuslave

import "encoding/binary"

const (
	// bufferSize is the fixed receive/transmit buffer size shared by
	// every Engine, per spec.md §3 ("receive buffer (256 bytes)").
	bufferSize = 256
	// minRequestLength is the smallest frame the supervisor accepts:
	// slave + function + 4-byte payload + 2-byte CRC (spec.md §4.3).
	minRequestLength = 8
)

func readUint16(buf []byte, offset int) uint16 {
	return binary.BigEndian.Uint16(buf[offset : offset+2])
}

func writeUint16(buf []byte, offset int, v uint16) {
	binary.BigEndian.PutUint16(buf[offset:offset+2], v)
}

// validateFrame implements the length and CRC checks from the
// receive-frame supervisor's table (spec.md §4.6): frames of 7 bytes
// or fewer are dropped outright, and a CRC mismatch over buf[:length-2]
// against the little-endian word at buf[length-2:length] is dropped
// silently. It never inspects the slave field; that filter runs
// separately once CRC is known good (see engine.go's supervise).
func validateFrame(buf []byte, length int) error {
	if length < minRequestLength {
		return ErrShortFrame
	}

	var c crc
	c.init()
	c.add(buf[:length-2])
	if !c.isEqual(buf[length-2], buf[length-1]) {
		return ErrBadCRC
	}

	return nil
}

// appendCRC finalizes a response or exception frame: it computes the
// CRC of buf[:n] and appends it low-byte-first, returning the final
// on-wire slice of length n+2 (spec.md §4.1/§4.3).
func appendCRC(buf []byte, n int) []byte {
	var c crc
	c.init()
	c.add(buf[:n])
	crcBytes := c.value()
	buf[n] = crcBytes[0]
	buf[n+1] = crcBytes[1]
	return buf[:n+2]
}

// writeExceptionFrame writes an exception ADU (slave, function|0x80,
// exception code) into buf starting at index 0, using the engine's
// own configured slave id rather than any slave field carried in the
// request (spec.md §9 calls out the source's bug of echoing a stale
// global here). It returns the payload size (3) preceding the CRC.
func writeExceptionFrame(buf []byte, slaveID, funcCode uint8, exc ExceptionCode) int {
	buf[0] = slaveID
	buf[1] = funcCode | 0x80
	buf[2] = uint8(exc)
	return 3
}
