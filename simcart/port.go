package simcart

import "time"

// EEPROMPort answers the serial wire protocol from an in-memory chip.
// A nil Chip means no cartridge EEPROM: commands go unanswered.  Drop
// and Mute inject faults for the retry paths.
type EEPROMPort struct {
	Chip []byte // 512 or 2048 bytes, nil for absent

	Drop int  // swallow the next n commands without answering
	Mute bool // stop answering permanently
	Busy bool // report a pending write cycle on every write

	Sent [][]uint32 // every raw command as handed to Send

	rx []uint32
}

const blockSize = 8

func (p *EEPROMPort) Send(slots []uint32) {
	p.Sent = append(p.Sent, slots)
	p.rx = p.rx[:0]
	if p.Chip == nil || p.Mute {
		return
	}
	if p.Drop > 0 {
		p.Drop--
		return
	}

	cmd := decodeCommand(slots)
	if len(cmd) == 0 {
		return
	}
	switch cmd[0] {
	case 0x00: // info
		code := uint32(0x0080)
		if len(p.Chip) > 512 {
			code = 0x00c0
		}
		p.reply(0, code, 0)
	case 0x04: // read block
		if len(cmd) < 2 {
			return
		}
		off := int(cmd[1]) * blockSize % len(p.Chip)
		words := make([]uint32, blockSize)
		for i, b := range p.Chip[off : off+blockSize] {
			words[i] = uint32(b)
		}
		p.reply(words...)
	case 0x05: // write block
		if len(cmd) < 2+blockSize {
			return
		}
		off := int(cmd[1]) * blockSize % len(p.Chip)
		copy(p.Chip[off:off+blockSize], cmd[2:2+blockSize])
		if p.Busy {
			p.reply(0x80)
		} else {
			p.reply(0)
		}
	}
}

func (p *EEPROMPort) reply(words ...uint32) {
	p.rx = append(p.rx, words...)
}

func (p *EEPROMPort) TryRecv() (uint32, bool) {
	if len(p.rx) == 0 {
		return 0, false
	}
	w := p.rx[0]
	p.rx = p.rx[1:]
	return w, true
}

// decodeCommand recovers the command bytes from their slot encoding.  It
// walks 16 bit halves, each holding one byte as marker and data bit
// pairs, until it reaches the end marker half.
func decodeCommand(slots []uint32) []byte {
	var cmd []byte
	for h := 0; h < 2*len(slots); h++ {
		half := slots[h/2] >> (16 * uint(h%2)) & 0xffff
		if half == 3 {
			return cmd
		}
		var b byte
		for j := 0; j < 8; j++ {
			if half>>(2*j)&1 != 0 {
				b |= 0x80 >> j
			}
		}
		cmd = append(cmd, b)
	}
	return nil // no end marker, malformed
}

// Clock is a manual clock.  Now advances by Step per call, so polling
// loops make progress against their deadlines without real sleeping.
type Clock struct {
	Step time.Duration

	now     time.Duration
	Slept   time.Duration
	Wakeups int
}

func (c *Clock) Now() time.Duration {
	c.now += c.Step
	return c.now
}

func (c *Clock) Sleep(d time.Duration) {
	c.now += d
	c.Slept += d
	c.Wakeups++
}
