// Command rtu-slave-demo wires an rtuslave.Engine to a real serial
// device (or, with -simulate, a freshly opened pty pair) and exposes
// a small fixed register map. Run it with a real RS-485 adapter:
//
//	rtu-slave-demo -device /dev/ttyUSB0 -baud 19200 -parity none -slave 17
//
// or against a pty pair for local testing:
//
//	rtu-slave-demo -simulate
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rtuslave/rtuslave"
	"github.com/rtuslave/rtuslave/internal/simulator"
)

func main() {
	var device string
	var baudRate int
	var parityName string
	var slaveID uint
	var simulate bool

	flag.StringVar(&device, "device", "/dev/ttyUSB0", "serial device path")
	flag.IntVar(&baudRate, "baud", 19200, "baud rate <4800|9600|19200|38400|57600|115200|230400>")
	flag.StringVar(&parityName, "parity", "none", "parity <none|even|odd>")
	flag.UintVar(&slaveID, "slave", 1, "slave id (1-247)")
	flag.BoolVar(&simulate, "simulate", false, "serve over a local pty pair instead of -device")
	flag.Parse()

	baud, err := baudIndexFromRate(baudRate)
	if err != nil {
		fmt.Printf("%v\n", err)
		os.Exit(1)
	}

	parity, err := parityFromName(parityName)
	if err != nil {
		fmt.Printf("%v\n", err)
		os.Exit(1)
	}

	if simulate {
		pair, err := simulator.CreatePtyPair()
		if err != nil {
			fmt.Printf("failed to create pty pair: %v\n", err)
			os.Exit(1)
		}
		defer pair.Close()
		device = pair.SlavePath
		fmt.Printf("simulating: master side available at %s\n", pair.MasterPath)
	}

	driver, err := rtuslave.NewSerialDriver(device, baud, parity)
	if err != nil {
		fmt.Printf("failed to open %s: %v\n", device, err)
		os.Exit(1)
	}

	demo := &demoHandler{}

	engine, err := rtuslave.New(driver,
		rtuslave.WithSlaveID(uint8(slaveID)),
		rtuslave.WithBaud(baud),
		rtuslave.WithParity(parity),
		rtuslave.WithHooks(demo),
	)
	if err != nil {
		fmt.Printf("failed to create engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	holding := make([]uint16, 100)
	if _, err := engine.AddAddressSpace(rtuslave.Holding, 0, holding); err != nil {
		fmt.Printf("failed to register holding registers: %v\n", err)
		os.Exit(1)
	}

	uptime := make([]uint16, 2)
	if _, err := engine.AddAddressSpace(rtuslave.Input, 200, uptime); err != nil {
		fmt.Printf("failed to register input registers: %v\n", err)
		os.Exit(1)
	}

	// increment a 32-bit uptime counter every second, exposed as input
	// registers 200-201, the same demo shape the teacher's tcp_server.go
	// example uses for its own uptime counter.
	ticker := time.NewTicker(1 * time.Second)
	go func() {
		var seconds uint32
		for range ticker.C {
			seconds++
			demo.lock.Lock()
			uptime[0] = uint16((seconds >> 16) & 0xffff)
			uptime[1] = uint16(seconds & 0xffff)
			demo.lock.Unlock()
		}
	}()

	ctx := context.Background()
	for {
		demo.lock.Lock()
		err := engine.Poll(ctx)
		demo.lock.Unlock()
		if err != nil {
			fmt.Printf("poll error: %v\n", err)
			return
		}
		if engine.NoComm() {
			// application policy, e.g. raise an alarm output, lives here;
			// the demo just keeps polling.
		}
		time.Sleep(time.Millisecond)
	}
}

// demoHandler logs every committed write. Handler methods run from
// the single polling goroutine, so no locking is required for the
// write path itself; the lock here only protects the uptime slice
// shared between the ticker goroutine and the Poll loop above.
type demoHandler struct {
	rtuslave.DefaultHooks
	lock sync.Mutex
}

func (h *demoHandler) RegisterUpdate(_ *rtuslave.Engine, addr, value uint16) {
	fmt.Printf("holding register %d written: %d\n", addr, value)
}

func baudIndexFromRate(rate int) (rtuslave.BaudIndex, error) {
	switch rate {
	case 4800:
		return rtuslave.Baud4800, nil
	case 9600:
		return rtuslave.Baud9600, nil
	case 19200:
		return rtuslave.Baud19200, nil
	case 38400:
		return rtuslave.Baud38400, nil
	case 57600:
		return rtuslave.Baud57600, nil
	case 115200:
		return rtuslave.Baud115200, nil
	case 230400:
		return rtuslave.Baud230400, nil
	default:
		return 0, fmt.Errorf("unsupported baud rate %d", rate)
	}
}

func parityFromName(name string) (rtuslave.Parity, error) {
	switch name {
	case "none":
		return rtuslave.ParityNone, nil
	case "even":
		return rtuslave.ParityEven, nil
	case "odd":
		return rtuslave.ParityOdd, nil
	default:
		return 0, fmt.Errorf("unknown parity %q (want none, even or odd)", name)
	}
}
