package rtuslave

// maxRegisters is the upper bound on how many registers a single
// 0x03/0x04/0x10 request may touch. The Modbus spec caps reads and
// writes at 125 registers; spec.md §7 additionally requires rejecting
// anything that would not fit the 256-byte buffer regardless of
// address-space containment, which this same ceiling already
// satisfies (5 + 2*125 = 255 <= 256).
const maxRegisters = 125

// handleReadRegisters implements function codes 0x03 (Read Holding
// Registers) and 0x04 (Read Input Registers), sharing their identical
// wire layout and validation order (spec.md §4.4).
func handleReadRegisters(e *Engine, buf []byte, t RegisterType, resp *Response) {
	start := readUint16(buf, 2)
	count := readUint16(buf, 4)

	// the broadcast-reply quirk applies only to 0x03 (Holding), never
	// to 0x04 (Input) -- spec.md §4.4 calls this out as unique to the
	// read-holding-registers path.
	if t == Holding && start == 0 && count == 4 {
		resp.SendReply = true
	}

	if count == 0 || count > maxRegisters {
		resp.Exception = ExIllegalDataValue
		return
	}

	space := e.registry.find(t, start, count)
	if space == nil {
		resp.Exception = ExIllegalDataAddress
		return
	}

	buf[2] = uint8(2 * count)
	base := int(start - space.StartOffset)
	for i := 0; i < int(count); i++ {
		v := space.Backing[base+i]
		writeUint16(buf, 3+2*i, v)
		e.hooks.RegisterRead(e, start+uint16(i), v)
	}

	resp.PayloadSize = 3 + 2*int(count)
	resp.Exception = ExNone
}

// handleWriteSingleRegister implements function code 0x06.
func handleWriteSingleRegister(e *Engine, buf []byte, resp *Response) {
	start := readUint16(buf, 2)
	value := readUint16(buf, 4)

	space := e.registry.find(Holding, start, 1)
	if space == nil {
		resp.Exception = ExIllegalDataAddress
		return
	}

	if e.hooks.CheckRestrictions(e, start, value) {
		resp.Exception = ExIllegalDataValue
		return
	}

	space.Backing[start-space.StartOffset] = value
	e.hooks.RegisterUpdate(e, start, value)

	// the response echoes the request verbatim: slave, func, start,
	// value are already sitting in buf[0:6].
	resp.PayloadSize = 6
	resp.Exception = ExNone
}

// handleWriteMultipleRegisters implements function code 0x10, staging
// every word through CheckRestrictions before committing any of them
// (spec.md §4.4's all-or-nothing commit semantics; spec.md §9 calls
// out the source's commit bug this corrects).
func handleWriteMultipleRegisters(e *Engine, buf []byte, reqLen int, resp *Response) {
	start := readUint16(buf, 2)
	count := readUint16(buf, 4)
	byteCount := int(buf[6])

	if count == 0 || count > maxRegisters {
		resp.Exception = ExIllegalDataValue
		return
	}
	// reqLen excludes the trailing 2-byte CRC (see dispatch.go), so the
	// spec's "byte_count == frame_length - 9" becomes reqLen-7 here.
	if byteCount != 2*int(count) || byteCount != reqLen-7 {
		resp.Exception = ExIllegalDataValue
		return
	}

	space := e.registry.find(Holding, start, count)
	if space == nil {
		resp.Exception = ExIllegalDataAddress
		return
	}

	var staged [maxRegisters]uint16
	for i := 0; i < int(count); i++ {
		v := readUint16(buf, 7+2*i)
		if e.hooks.CheckRestrictions(e, start+uint16(i), v) {
			resp.Exception = ExIllegalDataValue
			return
		}
		staged[i] = v
	}

	base := int(start - space.StartOffset)
	for i := 0; i < int(count); i++ {
		space.Backing[base+i] = staged[i]
		e.hooks.RegisterUpdate(e, start+uint16(i), staged[i])
	}

	// the response is the first six request bytes: slave, func,
	// start_hi, start_lo, count_hi, count_lo, already in place.
	resp.PayloadSize = 6
	resp.Exception = ExNone
}
