package rtuslave

import "sync"

// fakeDriver is an in-memory Driver for unit tests: ArmReceive and
// StartSend don't touch any real hardware, they just let the test
// control exactly when onFrameReady/onTxDone fire, the same role
// creack/pty plays for the integration test but without a real file
// descriptor.
type fakeDriver struct {
	mu sync.Mutex

	onFrameReady func(length int)
	onTxDone     func()

	armed  []byte
	sent   [][]byte
	baud   BaudIndex
	parity Parity
	closed bool
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{}
}

func (d *fakeDriver) Bind(onFrameReady func(length int), onTxDone func()) {
	d.onFrameReady = onFrameReady
	d.onTxDone = onTxDone
}

func (d *fakeDriver) ArmReceive(buf []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.armed = buf
	return nil
}

func (d *fakeDriver) StartSend(buf []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := make([]byte, len(buf))
	copy(cp, buf)
	d.sent = append(d.sent, cp)
	return nil
}

func (d *fakeDriver) Reconfigure(baud BaudIndex, parity Parity) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.baud = baud
	d.parity = parity
	return nil
}

func (d *fakeDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// deliver simulates the receiver-timeout ISR: it copies wire into the
// currently armed buffer and invokes onFrameReady, exactly as a real
// UART peripheral's DMA would once idle-line silence is observed.
func (d *fakeDriver) deliver(wire []byte) {
	d.mu.Lock()
	buf := d.armed
	d.mu.Unlock()
	n := copy(buf, wire)
	d.onFrameReady(n)
}

func (d *fakeDriver) lastSent() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.sent) == 0 {
		return nil
	}
	return d.sent[len(d.sent)-1]
}

func (d *fakeDriver) sentCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sent)
}
