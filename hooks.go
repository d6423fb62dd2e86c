package rtuslave

// Response is the transient, per-request response descriptor spec.md
// §3 calls out: handlers set Exception and, on success, PayloadSize
// (the number of response bytes preceding the CRC, counted from the
// slave field). SendReply starts out false only for a broadcast
// request (slave field 0x00); a handler may still flip it to true,
// which is how the 0x03/start=0/count=4 broadcast-reply quirk and
// user-defined custom function codes are expressed (spec.md §4.4/§4.5).
type Response struct {
	Exception   ExceptionCode
	PayloadSize int
	SendReply   bool
}

// Hooks is the capability set spec.md §6 calls out as external
// collaborators: write restriction checks, write notifications, read
// notifications, RS-485 direction control, and the catch-all custom
// function handler. An Engine is constructed with one Hooks
// implementation; callers that only care about a subset embed
// DefaultHooks and override individual methods, the same way a
// caller of the teacher library's RequestHandler would embed a
// partial implementation rather than writing out every method.
type Hooks interface {
	// CheckRestrictions is consulted before every write (0x06 and each
	// word of 0x10). Returning true rejects the write with exception
	// 0x03 (illegal data value); the backing store is left untouched.
	CheckRestrictions(e *Engine, addr, value uint16) bool

	// RegisterUpdate fires once a write has been committed to the
	// backing store (after CheckRestrictions has accepted it).
	RegisterUpdate(e *Engine, addr, value uint16)

	// RegisterRead fires once per register read by 0x03/0x04, after
	// the authoritative value has already been copied from the backing
	// store into the response. It is a read *notification*: the value
	// passed here cannot change what was already written to the wire
	// (spec.md §9 resolves the source's read-override ambiguity this
	// way).
	RegisterRead(e *Engine, addr, value uint16)

	// StartSending/EndSending bracket response transmission and stand
	// in for RS-485 DE line control: StartSending fires immediately
	// before the engine hands the response buffer to the driver;
	// EndSending fires once the driver reports transmission complete.
	StartSending(e *Engine)
	EndSending(e *Engine)

	// CustomCommand handles any function code outside {0x03, 0x04,
	// 0x06, 0x10}. buf[0:reqLen] is the raw request frame (including
	// slave and function code, excluding CRC); implementations write
	// their own response payload into buf starting at buf[0] and set
	// resp.PayloadSize/resp.Exception/resp.SendReply accordingly.
	CustomCommand(e *Engine, buf []byte, reqLen int, resp *Response)
}

// DefaultHooks is the zero-value Hooks implementation: it accepts
// every write, treats read/write notifications and DE control as
// no-ops, and answers any unrecognized function code with exception
// 0x01 (illegal function), replying even on broadcast per spec.md
// §4.4's documented default behavior for the custom-function path.
type DefaultHooks struct{}

var _ Hooks = DefaultHooks{}

func (DefaultHooks) CheckRestrictions(*Engine, uint16, uint16) bool { return false }
func (DefaultHooks) RegisterUpdate(*Engine, uint16, uint16)         {}
func (DefaultHooks) RegisterRead(*Engine, uint16, uint16)           {}
func (DefaultHooks) StartSending(*Engine)                           {}
func (DefaultHooks) EndSending(*Engine)                             {}

func (DefaultHooks) CustomCommand(_ *Engine, _ []byte, _ int, resp *Response) {
	resp.Exception = ExIllegalFunction
	resp.SendReply = true
}
