package vdisk

import (
	"encoding/binary"

	"github.com/nopjne/dreamdump64/debug"
)

var volumeLabel = [11]byte{'D', 'r', 'e', 'a', 'm', 'D', 'u', 'm', 'p', '6', '4'}

// paramBlock is the FAT16 boot parameter block at the start of the volume
// boot record.  Hosts refuse to mount without the bootable-looking jump,
// even though nothing here is executable.
type paramBlock struct {
	Jump              [3]byte
	OEMName           [8]byte
	BytesPerSector    uint16
	SectorsPerCluster uint8
	ReservedSectors   uint16
	NumFATs           uint8
	RootEntryCount    uint16
	TotalSectors16    uint16
	Media             byte
	FATSize16         uint16
	SectorsPerTrack   uint16
	NumHeads          uint16
	HiddenSectors     uint32
	TotalSectors32    uint32
	DriveNumber       byte
	Reserved          byte
	BootSignature     byte
	VolumeID          uint32
	VolumeLabel       [11]byte
	FSType            [8]byte
	Trap              [2]byte // while(1)
}

const (
	bootSectorLen    = 64
	mbrSerialOffset  = 0x1b8
	partitionOffset  = SectorSize - 2 - 64
	partitionFAT16Lb = 0x0e // FAT16 with LBA addressing
)

func bootParams(serial uint32) paramBlock {
	bpb := paramBlock{
		Jump:              [3]byte{0xeb, 0x3c, 0x90},
		OEMName:           [8]byte{'M', 'S', 'W', 'I', 'N', '4', '.', '1'},
		BytesPerSector:    SectorSize,
		SectorsPerCluster: ClusterSize / SectorSize,
		ReservedSectors:   1,
		NumFATs:           fatCount,
		RootEntryCount:    maxRootEntries,
		Media:             mediaType,
		FATSize16:         sectorsPerFAT,
		SectorsPerTrack:   1,
		NumHeads:          1,
		HiddenSectors:     hiddenSectors,
		BootSignature:     0x29,
		VolumeID:          serial,
		VolumeLabel:       volumeLabel,
		FSType:            [8]byte{'F', 'A', 'T', '1', '6', ' ', ' ', ' '},
		Trap:              [2]byte{0xeb, 0xfe},
	}
	if sectors := uint32(volumeSectorCount); sectors < 65536 {
		bpb.TotalSectors16 = uint16(sectors)
	} else {
		bpb.TotalSectors32 = sectors
	}
	return bpb
}

// patchPartitionTable writes the single primary partition entry and the
// boot signature into the trailing 66 bytes of p.  Applied to both the
// MBR and the volume boot record.
func patchPartitionTable(p []byte) {
	entry := p[partitionOffset:]
	entry[4] = partitionFAT16Lb
	binary.LittleEndian.PutUint32(entry[8:], 1) // first volume sector
	sectors := uint32(volumeSectorCount)
	entry[12] = byte(sectors)
	entry[13] = byte(sectors >> 8)
	entry[14] = byte(sectors >> 16)
	p[SectorSize-2] = 0x55
	p[SectorSize-1] = 0xaa
}

// mbrSector synthesizes sector 0: empty boot code, partition table and
// the disk serial number.
func mbrSector(p []byte, serial uint32) {
	patchPartitionTable(p)
	binary.LittleEndian.PutUint32(p[mbrSerialOffset:], serial)
}

// vbrSector synthesizes sector 1, the FAT16 volume boot record.  The
// partition table and serial are placed here a second time; some hosts
// probe either sector.
func vbrSector(p []byte, serial uint32) {
	bpb := bootParams(serial)
	n, err := binary.Encode(p, binary.LittleEndian, &bpb)
	debug.AssertErrNil(err)
	debug.Assert(n == bootSectorLen, "boot parameter block size")
	patchPartitionTable(p)
	binary.LittleEndian.PutUint32(p[mbrSerialOffset:], serial)
}
