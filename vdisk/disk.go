package vdisk

import (
	"encoding/binary"
	"errors"
	"sync"
	"time"

	"github.com/nopjne/dreamdump64/cart"
	"github.com/nopjne/dreamdump64/joybus"
)

// ErrUnaligned is returned for transfers that don't cover whole sectors.
// The mass storage boundary never issues those; it rejects sub-sector
// offsets as unsupported requests before dispatching.
var ErrUnaligned = errors.New("vdisk: transfer not sector aligned")

// Disk dispatches logical sectors to the cartridge.  It implements
// io.ReaderAt and io.WriterAt over whole sectors, which is exactly the
// shape of the mass storage read10/write10 callbacks.
//
// A Disk never fails a read or write of an addressable sector: sectors
// nothing maps to read as zeroes, writes to immutable regions are
// accepted and discarded.  Hosts treat failed block I/O as a broken
// volume, which is worse than losing a write we never promised to keep.
type Disk struct {
	bus    cart.Bus
	eeprom *joybus.EEPROM
	flash  cart.SaveRAM
	sram   cart.SaveRAM
	info   *cart.Info

	serialOnce sync.Once
	serial     uint32
}

func New(bus cart.Bus, eeprom *joybus.EEPROM, flash, sram cart.SaveRAM, info *cart.Info) *Disk {
	return &Disk{bus: bus, eeprom: eeprom, flash: flash, sram: sram, info: info}
}

// Sectors returns the capacity reported to the host.
func (d *Disk) Sectors() uint32 { return SectorCount }

// Size returns the virtual volume size in bytes.
func (d *Disk) Size() int64 { return VolumeSize }

func (d *Disk) serialNumber() uint32 {
	d.serialOnce.Do(func() {
		d.serial = uint32(time.Now().UnixMicro())
	})
	return d.serial
}

func (d *Disk) save() cart.SaveRAM {
	if d.info.FlashRAM {
		return d.flash
	}
	return d.sram
}

func (d *Disk) ReadAt(p []byte, off int64) (n int, err error) {
	if off%SectorSize != 0 || len(p)%SectorSize != 0 {
		return 0, ErrUnaligned
	}
	for n < len(p) {
		d.readSector(uint32(off/SectorSize), p[n:n+SectorSize])
		n += SectorSize
		off += SectorSize
	}
	return
}

func (d *Disk) WriteAt(p []byte, off int64) (n int, err error) {
	if off%SectorSize != 0 || len(p)%SectorSize != 0 {
		return 0, ErrUnaligned
	}
	for n < len(p) {
		d.writeSector(uint32(off/SectorSize), p[n:n+SectorSize])
		n += SectorSize
		off += SectorSize
	}
	return
}

// dataCluster resolves a sector of the data area to its region.  lba must
// already be relative to the start of the data area.
func dataCluster(lba uint32) (r region, addr uint32, ok bool) {
	cluster := lba >> ClusterShift
	sector := lba & (1<<ClusterShift - 1)
	r, rel, ok := regionAt(cluster)
	addr = rel*ClusterSize + sector*SectorSize
	return
}

func (d *Disk) readSector(lba uint32, p []byte) {
	clear(p)

	switch {
	case lba == 0:
		mbrSector(p, d.serialNumber())
		return
	case lba == 1:
		vbrSector(p, d.serialNumber())
		return
	}

	lba -= 2
	if lba < fatCount*sectorsPerFAT {
		fatSector(lba%sectorsPerFAT, p)
		return
	}
	lba -= fatCount * sectorsPerFAT

	if lba < rootDirSectors {
		if lba == 0 {
			rootDirSector(p, d.eeprom.Size(), d.info)
		}
		return
	}
	lba -= rootDirSectors

	r, addr, ok := dataCluster(lba)
	if !ok {
		return
	}
	switch r.kind {
	case regionReport:
		if addr == 0 {
			copy(p, report(d.eeprom.Size(), d.info))
		}
	case regionEeprom:
		// Both mirrors alias the chip without a byte swap: the bus
		// transfers single bytes, so there is no word order to flip.
		d.eeprom.ReadBlock(addr/64, p)
	case regionSave:
		d.save().Read512(addr, p, r.flipped)
	case regionROM:
		d.readROM(addr, p, r.flipped)
	}
}

func (d *Disk) writeSector(lba uint32, p []byte) {
	if lba < 2+fatCount*sectorsPerFAT+rootDirSectors {
		return // volume metadata is immutable, pretend success
	}
	lba -= 2 + fatCount*sectorsPerFAT + rootDirSectors

	r, addr, ok := dataCluster(lba)
	if !ok {
		return
	}
	switch r.kind {
	case regionEeprom:
		d.eeprom.WriteBlock(addr/64, p)
	case regionSave:
		d.save().Write512(addr, p, r.flipped)
	}
	// ROM and the report are read-only, writes are discarded.
}

func (d *Disk) readROM(addr uint32, p []byte, flip bool) {
	d.bus.SetAddress(cart.ROMBase + addr)
	for i := 0; i < len(p)/2; i++ {
		w := d.bus.Read16()
		if flip {
			w = cart.Flip16(w)
		}
		binary.LittleEndian.PutUint16(p[2*i:], w)
	}
}
