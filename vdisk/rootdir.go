package vdisk

import (
	"encoding/binary"

	"github.com/nopjne/dreamdump64/cart"
	"github.com/nopjne/dreamdump64/debug"
	"golang.org/x/text/encoding/unicode"
)

const dirEntrySize = 32

const (
	attrReadOnly    = 0x01
	attrHidden      = 0x02
	attrSystem      = 0x04
	attrVolumeLabel = 0x08
	attrDir         = 0x10
	attrArchive     = 0x20

	attrLongName = attrReadOnly | attrHidden | attrSystem | attrVolumeLabel
)

// Build timestamp stamped on every entry: Fri, 05 Sep 2008 16:20:51.
const (
	buildTimeFrac = 100
	buildTime     = 16<<11 | 20<<5 | 51>>1
	buildDate     = 28<<9 | 9<<5 | 5
)

// Hosts tolerate a long name entry whose checksum doesn't match the short
// name, but not the other way around.  Kept constant instead of derived,
// so the on-disk bytes never depend on the short name casing.
const lfnChecksum = 0x00

type dirEntry struct {
	Name          [11]byte
	Attr          byte
	NTReserved    byte
	CreateTimeFrc byte
	CreateTime    uint16
	CreateDate    uint16
	AccessDate    uint16
	ClusterHi     uint16
	ModTime       uint16
	ModDate       uint16
	ClusterLo     uint16
	Size          uint32
}

type lfnEntry struct {
	Seq      byte
	Name1    [5]uint16
	Attr     byte
	Type     byte
	Checksum byte
	Name2    [6]uint16
	Cluster  uint16
	Name3    [2]uint16
}

func newDirEntry(name string, cluster uint32, size uint32) dirEntry {
	e := dirEntry{
		Attr:          attrReadOnly | attrArchive,
		CreateTimeFrc: buildTimeFrac,
		CreateTime:    buildTime,
		CreateDate:    buildDate,
		ModTime:       buildTime,
		ModDate:       buildDate,
		ClusterHi:     uint16(cluster >> 16),
		ClusterLo:     uint16(cluster),
		Size:          size,
	}
	copy(e.Name[:], name)
	return e
}

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// newLFNEntry builds the long name alias that precedes a short entry.
// All names here fit a single 13-unit entry.
func newLFNEntry(name string) lfnEntry {
	e := lfnEntry{
		Seq:      0x41, // last and only entry of the name
		Attr:     attrLongName,
		Checksum: lfnChecksum,
	}

	units := [13]uint16{}
	for i := range units {
		units[i] = 0xffff
	}
	enc, err := utf16le.NewEncoder().Bytes([]byte(name))
	debug.AssertErrNil(err)
	n := min(len(enc)/2, len(units))
	for i := 0; i < n; i++ {
		units[i] = binary.LittleEndian.Uint16(enc[2*i:])
	}
	if n < len(units) {
		units[n] = 0 // terminator
	}

	copy(e.Name1[:], units[0:5])
	copy(e.Name2[:], units[5:11])
	copy(e.Name3[:], units[11:13])
	return e
}

// rootDirSector synthesizes sector 0 of the root directory: the volume
// label followed by a long name alias and short entry per file region, in
// cluster order.  Sizes report what was actually detected while the
// cluster allocation covers the full virtual regions.  The flipped EEPROM
// mirror is listed only when a chip is present.
func rootDirSector(p []byte, eepromSize int, info *cart.Info) {
	saveSize := uint32(0)
	if info.HasSave() {
		saveSize = saveVirtualSize
	}
	saveExt := "RAM"
	if info.FlashRAM {
		saveExt = "FLA"
	}

	files := []struct {
		short string
		long  string
		size  uint32
		skip  bool
	}{
		{"ROM     EEP", "ROM.EEP", uint32(eepromSize), false},
		{"ROM     FLA", "ROM.FLA", saveSize, false},
		{"ROM     N64", "ROM.N64", info.ROMSize, false},
		{"ROMF    Z64", "ROMF.Z64", info.ROMSize, false},
		{"ROMF    " + saveExt, "ROMF." + saveExt, saveSize, false},
		{"ROMF    EEP", "ROMF.EEP", uint32(eepromSize), eepromSize == 0},
		{"CARTTESTTXT", "CARTTEST.TXT", reportSize, false},
	}
	debug.Assert(len(files) == len(regionTable), "one file per region")

	label := dirEntry{Attr: attrVolumeLabel | attrArchive}
	copy(label.Name[:], volumeLabel[:])
	off, err := binary.Encode(p, binary.LittleEndian, &label)
	debug.AssertErrNil(err)

	for i, f := range files {
		if f.skip {
			continue
		}
		cluster := regionTable[i].start + 2

		lfn := newLFNEntry(f.long)
		n, err := binary.Encode(p[off:], binary.LittleEndian, &lfn)
		debug.AssertErrNil(err)
		off += n

		entry := newDirEntry(f.short, cluster, f.size)
		n, err = binary.Encode(p[off:], binary.LittleEndian, &entry)
		debug.AssertErrNil(err)
		off += n
	}
}
