package rtuslave

// Driver is the engine's only dependency on the outside world: it
// stands in for the UART peripheral, its DMA receive/transmit
// channels, and the RS-485 direction-enable line, all of which
// spec.md §1 treats as external collaborators rather than part of
// the engine's core.
//
// The engine calls ArmReceive to (re)start reception and StartSend to
// begin an asynchronous transmission; it never blocks on either. The
// driver reports progress back through the callbacks registered via
// Bind, mirroring the two interrupt sources spec.md §5 describes: a
// receiver-timeout interrupt (onFrameReady) and a transmit-complete
// interrupt (onTxDone).
type Driver interface {
	// Bind registers the engine's event callbacks. Called exactly once
	// by New, before the first ArmReceive. onFrameReady must be called
	// with the DMA-residual-derived frame length (spec.md §4.6: "frame
	// length = BUFFER_SIZE - residual"); onTxDone must be called once
	// the last byte of a StartSend buffer has left the wire.
	Bind(onFrameReady func(length int), onTxDone func())

	// ArmReceive (re)starts reception into buf. It returns immediately;
	// the driver must not write to buf again once a frame has been
	// reported via onFrameReady, until ArmReceive is called again.
	ArmReceive(buf []byte) error

	// StartSend begins an asynchronous transmission of buf. It returns
	// immediately; onTxDone fires once the wire is clear.
	StartSend(buf []byte) error

	// Reconfigure aborts any in-flight transfer and re-initializes the
	// physical link at the given baud rate and parity, per spec.md §6's
	// set_communication_parameters contract ("reconfigures the port
	// atomically: abort current transfers, re-init"). The engine
	// re-arms reception itself afterward; Reconfigure does not.
	Reconfigure(baud BaudIndex, parity Parity) error

	// Close releases the underlying link.
	Close() error
}
