// Package joybus implements the bit-serial protocol spoken by cartridge
// EEPROM savegame chips.  Commands are encoded into timed bit pairs and
// handed to a [Port], usually a PIO state machine shifting the pattern
// onto the single data line.
package joybus

import (
	"errors"
	"time"
)

var (
	ErrTimeout    = errors.New("joybus: response timeout")
	ErrNoResponse = errors.New("joybus: no response after retries")
	ErrDisabled   = errors.New("joybus: chip disabled")
)

// EEPROM commands as seen on the wire.
const (
	cmdInfo  byte = 0x00 // 0 data bytes, 3 response words
	cmdRead  byte = 0x04 // 1 block index byte, 8 response words
	cmdWrite byte = 0x05 // 1 block index byte + 8 data bytes, 1 status word
)

// maxCmdLen is the longest command on the bus, a write with opcode,
// block index and 8 data bytes.
const maxCmdLen = 10

// Port is the transmit/receive engine driving the data line.  Send shifts
// out a slot sequence produced by [Encode] and switches the line back to
// input afterwards.  TryRecv returns one captured response byte in the low
// bits of the word, if any is pending.  Ports don't block; timeout policy
// is implemented on top of them.
type Port interface {
	Send(slots []uint32)
	TryRecv() (uint32, bool)
}

// Clock abstracts the time source used for receive timeouts and settle
// delays, so tests can run protocol timeouts without real elapsed time.
type Clock interface {
	Now() time.Duration // monotonic
	Sleep(d time.Duration)
}

type sysClock struct{ start time.Time }

func (c *sysClock) Now() time.Duration    { return time.Since(c.start) }
func (c *sysClock) Sleep(d time.Duration) { time.Sleep(d) }

// SystemClock returns a Clock backed by the runtime's time source.
func SystemClock() Clock { return &sysClock{start: time.Now()} }

// Encode converts a command of up to 10 bytes into the slot sequence
// consumed by the output state machine.  Each bit becomes a pair: a fixed
// one marker in the odd position and the data bit in the even position,
// msb first, 16 pairs per slot.  A 0b11 end marker follows the last data
// byte.  The result is always len/2+1 slots, nil for an empty command.
func Encode(cmd []byte) []uint32 {
	if len(cmd) == 0 {
		return nil
	}
	slots := make([]uint32, len(cmd)/2+1)
	for i, b := range cmd {
		for j := 0; j < 8; j++ {
			pos := 2 * (8*(i%2) + j)
			slots[i/2] |= 1 << (pos + 1)
			if b&(0x80>>j) != 0 {
				slots[i/2] |= 1 << pos
			}
		}
	}
	slots[len(cmd)/2] |= 3 << (2 * (8 * (len(cmd) % 2)))
	return slots
}
