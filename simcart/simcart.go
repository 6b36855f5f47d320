// Package simcart simulates a cartridge in memory: the parallel bus, the
// save chips and the serial EEPROM behind its wire protocol.  It backs
// the package tests and lets cmd/vdisk build a virtual disk from plain
// ROM and savegame files instead of real hardware.
package simcart

import (
	"encoding/binary"

	"github.com/nopjne/dreamdump64/cart"
)

// Bus serves ROM reads from a byte slice holding the cartridge image in
// bus byte order (.z64).  Reads beyond the image return zeroes, writes
// are recorded but have no effect.
type Bus struct {
	ROM []byte

	addr   uint32
	Writes []uint32
}

func (b *Bus) SetAddress(addr uint32) { b.addr = addr }

func (b *Bus) Read16() (w uint16) {
	if b.addr >= cart.ROMBase {
		off := b.addr - cart.ROMBase
		if int(off)+1 < len(b.ROM) {
			w = binary.BigEndian.Uint16(b.ROM[off:])
		}
	}
	b.addr += 2
	return
}

func (b *Bus) Write16(v uint16) { b.Writes = append(b.Writes, uint32(v)) }
func (b *Bus) Write32(v uint32) { b.Writes = append(b.Writes, v) }

// SaveRAM implements both save chip accessors over a byte slice.
type SaveRAM struct {
	Mem []byte
}

func (s *SaveRAM) Read512(addr uint32, p []byte, flip bool) {
	for i := 0; i < len(p)/2; i++ {
		off := int(addr) + 2*i
		var w uint16
		if off+1 < len(s.Mem) {
			w = binary.BigEndian.Uint16(s.Mem[off:])
		}
		if flip {
			w = cart.Flip16(w)
		}
		binary.BigEndian.PutUint16(p[2*i:], w)
	}
}

func (s *SaveRAM) Write512(addr uint32, p []byte, flip bool) {
	for i := 0; i < len(p)/2; i++ {
		off := int(addr) + 2*i
		if off+1 >= len(s.Mem) {
			return
		}
		w := binary.BigEndian.Uint16(p[2*i:])
		if flip {
			w = cart.Flip16(w)
		}
		binary.BigEndian.PutUint16(s.Mem[off:], w)
	}
}
