// Package vdisk synthesizes a FAT16 volume over a live cartridge.  None
// of the volume is stored anywhere: boot sector, FATs and directory are
// generated on demand and every data sector maps to a hardware region of
// the cartridge, read and written through the bus drivers.
//
// The volume exposes the same data in both byte orders.  ROM.N64 is the
// ROM as it appears on a little endian host bus, ROMF.Z64 the big endian
// flip, and the savegame files follow the same naming scheme so emulators
// always find a matching ROM/savegame pair.
package vdisk

import "github.com/nopjne/dreamdump64/debug"

const (
	SectorSize = 512

	// Scales the whole volume geometry, e.g. for carts with oversized
	// save mods.  Zero keeps the stock 256 MiB / 32 KiB layout.
	clusterUpShift = 0

	ClusterSize  = (32 << 10) << clusterUpShift
	VolumeSize   = (256 << 20) << clusterUpShift
	SectorCount  = VolumeSize / SectorSize
	ClusterShift = 6 + clusterUpShift // log2 sectors per cluster
	ClusterCount = VolumeSize / ClusterSize

	fatCount       = 2
	maxRootEntries = 512
	rootDirSectors = maxRootEntries * dirEntrySize / SectorSize
	sectorsPerFAT  = 2 * (ClusterCount + SectorSize - 1) / SectorSize

	// MBR occupies sector 0, the volume itself starts at sector 1.
	volumeSectorCount = SectorCount - 1
	hiddenSectors     = SectorCount - volumeSectorCount

	mediaType = 0xf8 // fixed disk
)

// Virtual capacity reserved per region.  Cluster allocation is static, so
// these stay fixed no matter what sizes are actually detected; directory
// entries report the detected sizes instead.
const (
	eepromVirtualSize = 32 << 10
	saveVirtualSize   = 128 << 10
	romVirtualSize    = 64 << 20
	reportSize        = 2 << 10
)

type regionKind uint8

const (
	regionEeprom regionKind = iota
	regionSave
	regionROM
	regionReport
)

// region is one file's slice of the data area.  start counts in data
// clusters, i.e. FAT cluster number minus 2.
type region struct {
	kind    regionKind
	flipped bool
	start   uint32
	size    uint32 // virtual byte size
}

func (r region) clusters() uint32 {
	return (r.size + ClusterSize - 1) / ClusterSize
}

// end returns the first data cluster after the region.
func (r region) end() uint32 {
	return r.start + r.clusters()
}

// regionTable lists all file regions in cluster order.  The directory and
// FAT synthesis iterate it, the dispatcher scans it to classify clusters.
var regionTable = buildRegions()

func buildRegions() [7]region {
	t := [7]region{
		{kind: regionEeprom, size: eepromVirtualSize},
		{kind: regionSave, size: saveVirtualSize},
		{kind: regionROM, size: romVirtualSize},
		{kind: regionROM, size: romVirtualSize, flipped: true},
		{kind: regionSave, size: saveVirtualSize, flipped: true},
		{kind: regionEeprom, size: eepromVirtualSize, flipped: true},
		{kind: regionReport, size: reportSize},
	}
	start := uint32(0)
	for i := range t {
		t[i].start = start
		start += t[i].clusters()
	}
	return t
}

func init() {
	debug.Assert(ClusterSize == SectorSize<<ClusterShift, "cluster shift mismatch")
	debug.Assert(ClusterCount <= 65526, "FAT16 cluster limit")
	debug.Assert(sectorsPerFAT < 65536, "FAT size field overflow")
	debug.Assert(VolumeSize >= 16<<20, "volume too small for FAT16")
	if debug.Enabled {
		last := regionTable[len(regionTable)-1]
		debug.Assert(last.end() <= ClusterCount, "regions exceed volume")
	}
}

// regionAt returns the region containing data cluster c and the cluster
// index relative to the region's start.
func regionAt(c uint32) (r region, rel uint32, ok bool) {
	for _, r := range regionTable {
		if c >= r.start && c < r.end() {
			return r, c - r.start, true
		}
	}
	return region{}, 0, false
}
