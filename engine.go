package rtuslave

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// State is the engine's position in the state machine of spec.md
// §4.8. It exists mainly so tests (and curious callers) can observe
// the engine's progress; nothing in the request path branches on it.
type State uint8

const (
	StateIdle State = iota
	StateReceiving
	StateProcessing
	StateTransmitting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReceiving:
		return "receiving"
	case StateProcessing:
		return "processing"
	case StateTransmitting:
		return "transmitting"
	default:
		return "unknown"
	}
}

// config holds the engine's communication parameters. Once New has
// returned it is only touched with cfgMu held, since SetCommunicationParameters may
// be called from a different goroutine than Poll (spec.md §5 only
// forbids concurrent *request handling*, not a configuration call
// racing with it).
type config struct {
	SlaveID uint8
	Baud    BaudIndex
	Parity  Parity
}

// Engine is the Modbus RTU slave engine: spec.md §3's "Engine handle".
// One Engine owns exactly one receive buffer and one Driver; nothing
// about it is package-level mutable state, so multiple Engines over
// distinct Drivers run independently (spec.md §9).
type Engine struct {
	driver Driver
	hooks  Hooks
	logger LeveledLogger

	cfgMu  sync.Mutex
	config config

	registry *Registry
	watchdog *watchdog

	buf []byte

	// mailbox: written only by the driver's onFrameReady callback
	// (standing in for the receiver-timeout ISR), drained only by
	// Poll. Matches spec.md §5's single-slot "flg_packet_received"
	// contract.
	frameReady atomic.Bool
	frameLen   atomic.Int32

	state atomic.Uint32 // State, via atomic.Uint32 for lock-free reads

	closed atomic.Bool
}

// Option configures an Engine at construction time, in the same
// functional-options idiom the teacher library uses for its
// ModbusServer.
type Option func(*Engine) error

func WithSlaveID(id uint8) Option {
	return func(e *Engine) error {
		e.config.SlaveID = id
		return nil
	}
}

func WithBaud(b BaudIndex) Option {
	return func(e *Engine) error {
		e.config.Baud = b
		return nil
	}
}

func WithParity(p Parity) Option {
	return func(e *Engine) error {
		e.config.Parity = p
		return nil
	}
}

func WithHooks(h Hooks) Option {
	return func(e *Engine) error {
		e.hooks = h
		return nil
	}
}

func WithLogger(l LeveledLogger) Option {
	return func(e *Engine) error {
		e.logger = l
		return nil
	}
}

func WithNoCommThreshold(d time.Duration) Option {
	return func(e *Engine) error {
		e.watchdog = newWatchdog(d)
		return nil
	}
}

func WithRegistryCapacity(n int) Option {
	return func(e *Engine) error {
		e.registry = newRegistry(n)
		return nil
	}
}

// defaultNoCommThreshold is the "no communication" silence threshold
// spec.md §4.7 specifies as its configurable default.
const defaultNoCommThreshold = 10 * time.Second

// New constructs an Engine bound to driver. The engine is idle (per
// spec.md §3's lifecycle note) until at least one address space is
// registered; reception is armed immediately so incoming traffic is
// not missed while the caller finishes wiring up address spaces.
func New(driver Driver, opts ...Option) (*Engine, error) {
	e := &Engine{
		driver: driver,
		hooks:  DefaultHooks{},
		logger: newLogger("rtuslave"),
		config: config{
			SlaveID: 1,
			Baud:    Baud9600,
			Parity:  ParityNone,
		},
	}

	for _, o := range opts {
		if err := o(e); err != nil {
			return nil, err
		}
	}

	if e.registry == nil {
		e.registry = newRegistry(16)
	}
	if e.watchdog == nil {
		e.watchdog = newWatchdog(defaultNoCommThreshold)
	}
	if e.config.SlaveID < 1 || e.config.SlaveID > 247 {
		return nil, ErrInvalidSlave
	}
	if !e.config.Baud.valid() || !e.config.Parity.valid() {
		return nil, ErrInvalidConfig
	}

	e.buf = make([]byte, bufferSize)
	e.state.Store(uint32(StateIdle))

	driver.Bind(e.onFrameReady, e.onTxDone)

	if err := driver.Reconfigure(e.config.Baud, e.config.Parity); err != nil {
		return nil, err
	}
	if err := e.armReceive(); err != nil {
		return nil, err
	}

	return e, nil
}

// onFrameReady is the only writer of the frame-ready mailbox. It is
// meant to be invoked from the driver's ISR-equivalent context: it
// must stay short, perform no CRC, no dispatch, matching spec.md
// §5(1)'s "this handler is the only writer ... and must be short; it
// performs no CRC and no dispatch."
func (e *Engine) onFrameReady(length int) {
	e.frameLen.Store(int32(length))
	e.frameReady.Store(true)
	e.state.Store(uint32(StateReceiving))
}

// onTxDone fires the end-sending hook and re-arms reception, per the
// Transmitting --tx_complete--> Idle transition of spec.md §4.8.
func (e *Engine) onTxDone() {
	e.hooks.EndSending(e)
	e.state.Store(uint32(StateIdle))
	if err := e.armReceive(); err != nil {
		e.logger.Errorf("failed to re-arm receive after transmit: %v", err)
	}
}

func (e *Engine) armReceive() error {
	return e.driver.ArmReceive(e.buf)
}

// AddAddressSpace registers a new address space with the engine's
// registry (spec.md §4.2's add operation).
func (e *Engine) AddAddressSpace(t RegisterType, start uint16, backing []uint16) (*AddressSpace, error) {
	s, err := newAddressSpace(t, start, backing)
	if err != nil {
		return nil, err
	}
	if err := e.registry.add(s, e.logger); err != nil {
		return nil, err
	}
	return s, nil
}

// RemoveAddressSpace removes the address space backed by backing,
// identified by pointer identity per spec.md §4.2's remove_by_backing.
func (e *Engine) RemoveAddressSpace(backing []uint16) error {
	return e.registry.removeByBacking(backing)
}

// SetCommunicationParameters reconfigures the port atomically: it
// aborts any in-flight transfer by asking the driver to reconfigure,
// then re-arms reception, matching spec.md §6's contract. An invalid
// baud or parity index returns ErrInvalidConfig and leaves the
// current configuration untouched (spec.md §7's recommended, rather
// than source-compatible, behavior).
func (e *Engine) SetCommunicationParameters(slaveID uint8, baud BaudIndex, parity Parity) error {
	if slaveID < 1 || slaveID > 247 {
		return ErrInvalidSlave
	}
	if !baud.valid() || !parity.valid() {
		return ErrInvalidConfig
	}

	e.cfgMu.Lock()
	defer e.cfgMu.Unlock()

	if err := e.driver.Reconfigure(baud, parity); err != nil {
		return err
	}
	e.config.SlaveID = slaveID
	e.config.Baud = baud
	e.config.Parity = parity

	return e.armReceive()
}

// slaveID reads the configured slave id under the config lock.
func (e *Engine) slaveID() uint8 {
	e.cfgMu.Lock()
	defer e.cfgMu.Unlock()
	return e.config.SlaveID
}

// Poll implements the receive-frame supervisor of spec.md §4.6. It
// drains at most one pending frame from the mailbox and runs it
// through the full validate/dispatch/respond/re-arm pipeline; it
// returns immediately, without blocking, if no frame is pending. The
// context is honored only as an early-exit signal before any work
// begins -- once a frame is taken off the mailbox it always runs to
// completion, since the spec gives request handling no internal
// timeout (spec.md §5).
func (e *Engine) Poll(ctx context.Context) error {
	if e.closed.Load() {
		return ErrClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !e.frameReady.CompareAndSwap(true, false) {
		e.watchdog.poll(time.Now())
		return nil
	}

	length := int(e.frameLen.Load())
	e.state.Store(uint32(StateProcessing))
	e.supervise(length)
	return nil
}

// supervise runs the drop/dispatch table from spec.md §4.6 against
// the frame currently sitting in e.buf[0:length].
func (e *Engine) supervise(length int) {
	if err := validateFrame(e.buf, length); err != nil {
		e.logger.Warningf("dropping frame: %v", err)
		e.reArmAfterDrop()
		return
	}

	slave := e.buf[0]
	ownID := e.slaveID()
	if slave != ownID && slave != 0 {
		e.reArmAfterDrop()
		return
	}

	now := time.Now()
	e.watchdog.onFrameAccepted(now)

	n := processRequest(e, e.buf, length-2)

	if n == 0 {
		e.reArmAfterDrop()
		return
	}

	e.transmit(n)
}

func (e *Engine) reArmAfterDrop() {
	e.state.Store(uint32(StateIdle))
	if err := e.armReceive(); err != nil {
		e.logger.Errorf("failed to re-arm receive: %v", err)
	}
}

func (e *Engine) transmit(n int) {
	e.state.Store(uint32(StateTransmitting))
	e.hooks.StartSending(e)
	if err := e.driver.StartSend(e.buf[:n]); err != nil {
		e.logger.Errorf("failed to start transmit: %v", err)
		e.hooks.EndSending(e)
		e.reArmAfterDrop()
	}
	// onTxDone (invoked by the driver once the wire is clear) fires
	// EndSending and re-arms reception; see onTxDone above.
}

// NoComm reports whether the link has been silent for longer than
// the configured threshold (spec.md §4.7).
func (e *Engine) NoComm() bool {
	return e.watchdog.isSilent()
}

// State reports the engine's current position in the spec.md §4.8
// state machine.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Close releases the underlying driver. The Engine must not be used
// afterward.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	return e.driver.Close()
}
