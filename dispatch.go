package rtuslave

// Function codes this engine dispatches on (spec.md §6).
const (
	fcReadHoldingRegisters   uint8 = 0x03
	fcReadInputRegisters     uint8 = 0x04
	fcWriteSingleRegister    uint8 = 0x06
	fcWriteMultipleRegisters uint8 = 0x10
)

// processRequest is the request processor of spec.md §4.5. It is
// called once per accepted frame (length/CRC/address already
// validated by the receive-frame supervisor in engine.go) with
// buf[0:reqLen] holding the raw request, excluding its trailing CRC.
// It dispatches to the appropriate handler, applies the broadcast/
// exception/normal-reply policy, and returns the number of bytes now
// sitting in buf ready for transmission (0 if nothing should be sent).
func processRequest(e *Engine, buf []byte, reqLen int) int {
	slaveID := buf[0]
	funcCode := buf[1]

	resp := Response{
		SendReply: slaveID != 0,
	}

	switch funcCode {
	case fcReadHoldingRegisters:
		handleReadRegisters(e, buf, Holding, &resp)
	case fcReadInputRegisters:
		handleReadRegisters(e, buf, Input, &resp)
	case fcWriteSingleRegister:
		handleWriteSingleRegister(e, buf, &resp)
	case fcWriteMultipleRegisters:
		handleWriteMultipleRegisters(e, buf, reqLen, &resp)
	default:
		e.hooks.CustomCommand(e, buf, reqLen, &resp)
	}

	if !resp.SendReply {
		return 0
	}

	if resp.Exception != ExNone {
		n := writeExceptionFrame(buf, e.slaveID(), funcCode, resp.Exception)
		appendCRC(buf, n)
		return n + 2
	}

	appendCRC(buf, resp.PayloadSize)
	return resp.PayloadSize + 2
}
