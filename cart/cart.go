// Package cart defines the interfaces the virtual disk needs from the
// cartridge bus driver, and the identity information gathered while
// probing the cartridge.  The drivers themselves live outside this
// module; see package simcart for an in-memory implementation.
package cart

// Cartridge address map as seen on the parallel bus.
const (
	SaveBase uint32 = 0x0800_0000
	ROMBase  uint32 = 0x1000_0000
)

// Bus is the parallel address/data bus driver.  SetAddress latches a read
// or write address; subsequent Read16/Write16 calls transfer sequential
// 16-bit words from there.  Bus drivers are not safe for concurrent use.
type Bus interface {
	SetAddress(addr uint32)
	Read16() uint16
	Write16(v uint16)
	Write32(v uint32)
}

// SaveRAM accesses a save chip in 512-byte blocks.  addr is the byte
// offset into the chip.  With flip set, every 16-bit word is byte swapped
// on its way through the accessor.  Implemented for both FlashRAM and
// SRAM by the bus driver.
type SaveRAM interface {
	Read512(addr uint32, p []byte, flip bool)
	Write512(addr uint32, p []byte, flip bool)
}

// Flip16 swaps the two bytes of a 16-bit word.
func Flip16(v uint16) uint16 {
	return v<<8 | v>>8
}
