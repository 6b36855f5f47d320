package vdisk

import "encoding/binary"

const (
	entriesPerFATSector = SectorSize / 2
	fatChainEnd         = 0xffff
)

// fatSector synthesizes one sector of the allocation table.  The content
// is a pure function of the sector index and the static region table, so
// both FAT copies are served from it.
func fatSector(index uint32, p []byte) {
	for i := 0; i < entriesPerFATSector; i++ {
		entry := fatEntry(index*entriesPerFATSector + uint32(i))
		binary.LittleEndian.PutUint16(p[2*i:], entry)
	}
}

// fatEntry returns the chain link for FAT entry n.  Every region is
// allocated contiguously over its full virtual span, so interior clusters
// link to their successor and the last cluster of each region terminates
// the chain.  Clusters behind the last region are marked end-of-chain as
// well: the volume reports no free space, since nothing would back a host
// allocating there.
func fatEntry(n uint32) uint16 {
	switch n {
	case 0:
		return 0xff00 | mediaType
	case 1:
		return fatChainEnd
	}

	c := n - 2
	if c >= ClusterCount {
		return 0
	}

	r, rel, ok := regionAt(c)
	if !ok || rel == r.clusters()-1 {
		return fatChainEnd
	}
	return uint16(n + 1)
}
