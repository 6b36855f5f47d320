package joybus

import "time"

// Device identifies the chip type reported by an info command.
type Device uint16

const (
	EEPROM4k  Device = 0x0080 // 4 kbit, 512 bytes
	EEPROM16k Device = 0x00c0 // 16 kbit, 2048 bytes
)

// BlockSize is the payload of a single read or write command.
const BlockSize = 8

const (
	maxRetries  = 10
	settleDelay = 6 * time.Microsecond
	writeCycle  = 1 * time.Millisecond
)

const (
	stateProbing uint8 = iota
	stateReady
	stateDisabled
)

// EEPROM drives a savegame chip over a [Port].  All methods must be called
// from a single goroutine; the mass storage boundary serializes commands.
//
// The chip is probed once.  If the probe fails or a transfer exhausts its
// retries, the chip is disabled for the lifetime of the session and all
// further transfers return immediately.
type EEPROM struct {
	port  Port
	clock Clock

	state  uint8
	size   int
	blocks int

	probeTimeout time.Duration
	recvTimeout  time.Duration
}

// Option configures an [EEPROM].
type Option func(*EEPROM)

// WithClock replaces the default time source, mainly for tests.
func WithClock(c Clock) Option {
	return func(e *EEPROM) { e.clock = c }
}

// WithProbeTimeout sets how long Probe waits for a chip to answer.
func WithProbeTimeout(d time.Duration) Option {
	return func(e *EEPROM) { e.probeTimeout = d }
}

// WithRecvTimeout sets the per-word timeout during block transfers.
func WithRecvTimeout(d time.Duration) Option {
	return func(e *EEPROM) { e.recvTimeout = d }
}

func NewEEPROM(port Port, opts ...Option) *EEPROM {
	e := &EEPROM{
		port:         port,
		clock:        SystemClock(),
		probeTimeout: 100 * time.Millisecond,
		recvTimeout:  10 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Size returns the detected chip size in bytes, one of 0, 512 or 2048.
func (e *EEPROM) Size() int { return e.size }

// Blocks returns the number of addressable 8-byte blocks.
func (e *EEPROM) Blocks() int { return e.blocks }

// Present reports whether a chip answered the probe and is still enabled.
func (e *EEPROM) Present() bool { return e.state == stateReady }

func (e *EEPROM) recv(timeout time.Duration) (uint32, error) {
	start := e.clock.Now()
	for {
		if w, ok := e.port.TryRecv(); ok {
			return w, nil
		}
		if e.clock.Now()-start > timeout {
			return 0, ErrTimeout
		}
	}
}

func (e *EEPROM) send(cmd []byte) {
	// Wait out the end bit of the previous exchange before the port
	// switches the line to output.
	e.clock.Sleep(settleDelay)
	e.port.Send(Encode(cmd))
}

// Probe sends an info command and records the chip size.  A timeout, a
// non-zero first response word or an unknown device code all leave the
// chip disabled.  Called once during bus bring-up.
func (e *EEPROM) Probe() (Device, error) {
	e.state = stateDisabled
	e.size = 0
	e.blocks = 0

	e.send([]byte{cmdInfo})

	w, err := e.recv(e.probeTimeout)
	if err != nil {
		return 0, err
	}
	if w != 0 {
		return 0, ErrNoResponse
	}

	dev, err := e.recv(e.probeTimeout)
	if err != nil {
		return 0, err
	}
	if _, err := e.recv(e.probeTimeout); err != nil {
		return 0, err
	}

	switch Device(dev) {
	case EEPROM4k:
		e.size = 512
	case EEPROM16k:
		e.size = 2048
	default:
		return Device(dev), ErrNoResponse
	}
	e.blocks = e.size / BlockSize
	e.state = stateReady

	return Device(dev), nil
}

// transfer runs a single command with bounded retry on the first response
// word.  More than maxRetries timeouts disable the chip permanently.
func (e *EEPROM) transfer(cmd []byte) (uint32, error) {
	for retries := 0; ; retries++ {
		e.send(cmd)
		w, err := e.recv(e.recvTimeout)
		if err == nil {
			return w, nil
		}
		if retries >= maxRetries {
			e.state = stateDisabled
			e.size = 0
			e.blocks = 0
			return 0, ErrNoResponse
		}
	}
}

// ReadBlock fills p from the chip, starting at 8-byte block off.  It is a
// no-op if no chip is present.  p is read in 8-byte units, each fetched by
// its own read command.
func (e *EEPROM) ReadBlock(off uint32, p []byte) error {
	if e.state != stateReady {
		return ErrDisabled
	}

	for unit := 0; unit < len(p)/BlockSize; unit++ {
		w, err := e.transfer([]byte{cmdRead, byte(off + uint32(unit))})
		if err != nil {
			return err
		}
		p[unit*BlockSize] = byte(w)
		for i := 1; i < BlockSize; i++ {
			w, err = e.recv(e.recvTimeout)
			if err != nil {
				return err
			}
			p[unit*BlockSize+i] = byte(w)
		}
	}

	return nil
}

// WriteBlock stores p on the chip, starting at 8-byte block off.  A
// non-zero status response means the chip is still busy with its internal
// write cycle, in which case an extended delay is inserted before the
// next unit.
func (e *EEPROM) WriteBlock(off uint32, p []byte) error {
	if e.state != stateReady {
		return ErrDisabled
	}

	cmd := make([]byte, 2+BlockSize)
	for unit := 0; unit < len(p)/BlockSize; unit++ {
		cmd[0] = cmdWrite
		cmd[1] = byte(off + uint32(unit))
		copy(cmd[2:], p[unit*BlockSize:])

		status, err := e.transfer(cmd)
		if err != nil {
			return err
		}
		if status != 0 {
			e.clock.Sleep(writeCycle)
		}
	}

	return nil
}
