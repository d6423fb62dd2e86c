package rtuslave

import (
	"bytes"
	"context"
	"testing"
	"time"
)

func TestEnginePollDeliversReply(t *testing.T) {
	drv := newFakeDriver()
	regs := []uint16{0x0001, 0x0002, 0x0003, 0x0004, 0x0005, 0x0006, 0x0007, 0x0008, 0x0009, 0x000A}
	e, err := New(drv, WithSlaveID(0x11))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := e.AddAddressSpace(Holding, 0, regs); err != nil {
		t.Fatalf("AddAddressSpace: %v", err)
	}

	drv.deliver([]byte{0x11, 0x03, 0x00, 0x00, 0x00, 0x02, 0xC6, 0x9B})

	if err := e.Poll(context.Background()); err != nil {
		t.Fatalf("Poll: %v", err)
	}

	want := []byte{0x11, 0x03, 0x04, 0x00, 0x01, 0x00, 0x02, 0x3B, 0xF3}
	if got := drv.lastSent(); !bytes.Equal(got, want) {
		t.Fatalf("got % X, want % X", got, want)
	}
	if e.State() != StateTransmitting {
		t.Fatalf("expected StateTransmitting, got %v", e.State())
	}

	drv.onTxDone()
	if e.State() != StateIdle {
		t.Fatalf("expected StateIdle after tx done, got %v", e.State())
	}
}

func TestEnginePollDropsWrongSlave(t *testing.T) {
	drv := newFakeDriver()
	regs := make([]uint16, 10)
	e, err := New(drv, WithSlaveID(0x11))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := e.AddAddressSpace(Holding, 0, regs); err != nil {
		t.Fatalf("AddAddressSpace: %v", err)
	}

	req := frame(0x12, 0x03, 0x00, 0x00, 0x00, 0x02)
	drv.deliver(req)

	if err := e.Poll(context.Background()); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if drv.sentCount() != 0 {
		t.Fatalf("expected no transmission, got %d", drv.sentCount())
	}
}

func TestEnginePollDropsBadCRC(t *testing.T) {
	drv := newFakeDriver()
	regs := make([]uint16, 10)
	e, err := New(drv, WithSlaveID(0x11))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := e.AddAddressSpace(Holding, 0, regs); err != nil {
		t.Fatalf("AddAddressSpace: %v", err)
	}

	req := frame(0x11, 0x03, 0x00, 0x00, 0x00, 0x02)
	req[len(req)-1] ^= 0xFF
	drv.deliver(req)

	if err := e.Poll(context.Background()); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if drv.sentCount() != 0 {
		t.Fatalf("expected no transmission, got %d", drv.sentCount())
	}
}

func TestEnginePollDropsShortFrame(t *testing.T) {
	drv := newFakeDriver()
	e, err := New(drv, WithSlaveID(0x11))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	drv.deliver([]byte{0x11, 0x03, 0x00, 0x00})

	if err := e.Poll(context.Background()); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if drv.sentCount() != 0 {
		t.Fatalf("expected no transmission, got %d", drv.sentCount())
	}
}

func TestEnginePollNoFrameIsNoOp(t *testing.T) {
	drv := newFakeDriver()
	e, err := New(drv, WithSlaveID(0x11))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := e.Poll(context.Background()); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if drv.sentCount() != 0 {
		t.Fatalf("expected no transmission, got %d", drv.sentCount())
	}
}

func TestEngineNoCommWatchdog(t *testing.T) {
	drv := newFakeDriver()
	e, err := New(drv, WithSlaveID(0x11), WithNoCommThreshold(10*time.Millisecond))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if e.NoComm() {
		t.Fatal("should not be silent immediately after construction")
	}

	time.Sleep(20 * time.Millisecond)
	if err := e.Poll(context.Background()); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if !e.NoComm() {
		t.Fatal("expected no_comm after threshold elapsed with no traffic")
	}

	regs := make([]uint16, 10)
	if _, err := e.AddAddressSpace(Holding, 0, regs); err != nil {
		t.Fatalf("AddAddressSpace: %v", err)
	}
	drv.deliver(frame(0x11, 0x03, 0x00, 0x00, 0x00, 0x02))
	if err := e.Poll(context.Background()); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if e.NoComm() {
		t.Fatal("no_comm must clear on an accepted frame")
	}
}

func TestEngineRejectsInvalidSlaveID(t *testing.T) {
	drv := newFakeDriver()
	if _, err := New(drv, WithSlaveID(0)); err != ErrInvalidSlave {
		t.Fatalf("expected ErrInvalidSlave, got %v", err)
	}
	if _, err := New(drv, WithSlaveID(248)); err != ErrInvalidSlave {
		t.Fatalf("expected ErrInvalidSlave, got %v", err)
	}
}

func TestEngineSetCommunicationParameters(t *testing.T) {
	drv := newFakeDriver()
	e, err := New(drv, WithSlaveID(0x11))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := e.SetCommunicationParameters(0x20, Baud19200, ParityEven); err != nil {
		t.Fatalf("SetCommunicationParameters: %v", err)
	}
	if e.slaveID() != 0x20 {
		t.Fatalf("slave id not updated, got %d", e.slaveID())
	}

	if err := e.SetCommunicationParameters(0x20, BaudIndex(99), ParityEven); err != ErrInvalidConfig {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	if e.slaveID() != 0x20 {
		t.Fatal("invalid reconfigure must leave prior configuration untouched")
	}
}

func TestEngineCloseClosesDriver(t *testing.T) {
	drv := newFakeDriver()
	e, err := New(drv, WithSlaveID(0x11))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !drv.closed {
		t.Fatal("expected driver to be closed")
	}
	if err := e.Poll(context.Background()); err != ErrClosed {
		t.Fatalf("expected ErrClosed after Close, got %v", err)
	}
}
