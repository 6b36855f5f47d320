package vdisk

import (
	"testing"

	"github.com/nopjne/dreamdump64/cart"
)

type parsedEntry struct {
	name    string
	attr    byte
	cluster uint32
	size    uint32
}

func parseRootDir(t *testing.T, p []byte) []parsedEntry {
	t.Helper()
	var entries []parsedEntry
	for off := 0; off < len(p); off += dirEntrySize {
		e := p[off : off+dirEntrySize]
		if e[0] == 0 {
			break
		}
		entries = append(entries, parsedEntry{
			name:    string(e[0:11]),
			attr:    e[11],
			cluster: uint32(le16(e[26:])),
			size:    le32(e[28:]),
		})
	}
	return entries
}

func TestRootDirFullCart(t *testing.T) {
	info := &cart.Info{ROMSize: 8 << 20, FlashRAM: true}
	p := make([]byte, SectorSize)
	rootDirSector(p, 2048, info)

	entries := parseRootDir(t, p)
	if len(entries) != 1+2*7 {
		t.Fatalf("expected label and 7 file pairs, got %d entries", len(entries))
	}

	label := entries[0]
	if label.name != "DreamDump64" || label.attr&attrVolumeLabel == 0 {
		t.Errorf("expected volume label first, got %q attr %#02x", label.name, label.attr)
	}

	want := []parsedEntry{
		{"ROM     EEP", attrReadOnly | attrArchive, 2, 2048},
		{"ROM     FLA", attrReadOnly | attrArchive, 3, 128 << 10},
		{"ROM     N64", attrReadOnly | attrArchive, 7, 8 << 20},
		{"ROMF    Z64", attrReadOnly | attrArchive, 2055, 8 << 20},
		{"ROMF    FLA", attrReadOnly | attrArchive, 4103, 128 << 10},
		{"ROMF    EEP", attrReadOnly | attrArchive, 4107, 2048},
		{"CARTTESTTXT", attrReadOnly | attrArchive, 4108, 2 << 10},
	}
	for i, w := range want {
		lfn := entries[1+2*i]
		if lfn.attr != attrLongName {
			t.Errorf("file %d: expected long name entry, attr %#02x", i, lfn.attr)
		}
		if got := entries[2+2*i]; got != w {
			t.Errorf("file %d: expected %+v, got %+v", i, w, got)
		}
	}

	// Declared sizes never exceed the reserved virtual capacity.
	var declared, reserved uint64
	for _, w := range want {
		declared += uint64(w.size)
	}
	for _, r := range regionTable {
		reserved += uint64(r.clusters()) * ClusterSize
	}
	if declared > reserved {
		t.Errorf("declared %d bytes exceed %d reserved", declared, reserved)
	}
}

func TestRootDirBareCart(t *testing.T) {
	info := &cart.Info{ROMSize: 32 << 20}
	p := make([]byte, SectorSize)
	rootDirSector(p, 0, info)

	entries := parseRootDir(t, p)
	if len(entries) != 1+2*6 {
		t.Fatalf("expected the EEPROM mirror to be omitted, got %d entries", len(entries))
	}
	for _, e := range entries {
		if e.name == "ROMF    EEP" {
			t.Error("EEPROM mirror listed without a chip")
		}
		switch e.name {
		case "ROM     EEP", "ROM     FLA", "ROMF    RAM":
			if e.size != 0 {
				t.Errorf("%q: expected size 0, got %d", e.name, e.size)
			}
		}
	}

	// Without FlashRAM the savegame mirror uses the SRAM extension.
	if got := entries[10].name; got != "ROMF    RAM" {
		t.Errorf("expected SRAM extension, got %q", got)
	}
}

func TestLongNameEntry(t *testing.T) {
	e := newLFNEntry("ROMF.Z64")
	if e.Seq != 0x41 || e.Attr != attrLongName || e.Checksum != lfnChecksum {
		t.Fatalf("bad entry header: %+v", e)
	}

	var units []uint16
	units = append(units, e.Name1[:]...)
	units = append(units, e.Name2[:]...)
	units = append(units, e.Name3[:]...)

	want := "ROMF.Z64"
	for i, u := range units {
		switch {
		case i < len(want):
			if u != uint16(want[i]) {
				t.Errorf("unit %d: expected %q, got %#04x", i, want[i], u)
			}
		case i == len(want):
			if u != 0 {
				t.Errorf("expected terminator after name, got %#04x", u)
			}
		default:
			if u != 0xffff {
				t.Errorf("unit %d: expected fill, got %#04x", i, u)
			}
		}
	}
}

func TestDirEntryTimestamps(t *testing.T) {
	e := newDirEntry("ROM     N64", 7, 64<<20)
	if e.CreateDate != buildDate || e.ModDate != buildDate {
		t.Errorf("unexpected dates: %#04x %#04x", e.CreateDate, e.ModDate)
	}
	if e.CreateTime != buildTime || e.ModTime != buildTime {
		t.Errorf("unexpected times: %#04x %#04x", e.CreateTime, e.ModTime)
	}
	if e.CreateTimeFrc != buildTimeFrac {
		t.Errorf("unexpected time fraction: %d", e.CreateTimeFrc)
	}
}
