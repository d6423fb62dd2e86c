// Copyright 2014 Quoc-Viet Nguyen. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD license. See the LICENSE file for details.

//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris
// +build darwin dragonfly freebsd linux netbsd openbsd solaris

// Package simulator provides a pseudo-terminal pair for exercising the
// engine against a real character device without physical RS-485
// hardware: the master side stands in for a Modbus master tool, the
// slave side is opened by a Driver exactly as a real /dev/ttyUSB*
// would be.
package simulator

import (
	"fmt"
	"os"
	"sync"
)

// PtyPair holds both ends of a pseudo-terminal: Master is driven by
// the test (acting as the bus master), SlavePath is handed to the
// engine's Driver (acting as the physical UART device node).
type PtyPair struct {
	mu     sync.Mutex
	Master *os.File
	Slave  *os.File

	MasterPath string
	SlavePath  string
}

// CreatePtyPair opens a new pty master/slave pair natively.
func CreatePtyPair() (*PtyPair, error) {
	master, slave, err := ptyOpen()
	if err != nil {
		return nil, fmt.Errorf("rtuslave/simulator: opening pty: %w", err)
	}

	return &PtyPair{
		Master:     master,
		Slave:      slave,
		MasterPath: master.Name(),
		SlavePath:  slave.Name(),
	}, nil
}

// Close closes both ends of the pair.
func (p *PtyPair) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	if p.Master != nil {
		if e := p.Master.Close(); e != nil && err == nil {
			err = e
		}
		p.Master = nil
	}
	if p.Slave != nil {
		if e := p.Slave.Close(); e != nil && err == nil {
			err = e
		}
		p.Slave = nil
	}
	return err
}

// Read reads from the master side (the simulated bus master).
func (p *PtyPair) Read(b []byte) (int, error) {
	p.mu.Lock()
	master := p.Master
	p.mu.Unlock()

	if master == nil {
		return 0, os.ErrClosed
	}
	return master.Read(b)
}

// Write writes to the master side (the simulated bus master).
func (p *PtyPair) Write(b []byte) (int, error) {
	p.mu.Lock()
	master := p.Master
	p.mu.Unlock()

	if master == nil {
		return 0, os.ErrClosed
	}
	return master.Write(b)
}
