package cart

// CIC is the lockout chip region reported by the CIC hello exchange.
type CIC uint8

const (
	CICPal     CIC = 0
	CICNtsc    CIC = 1
	CICInvalid CIC = 0xff
)

func (c CIC) String() string {
	switch c {
	case CICPal:
		return "PAL"
	case CICNtsc:
		return "NTSC"
	}
	return "Failed"
}

// CIC variants, identified by a CRC32 over the bootcode at 0x40.
var cicNames = map[uint32]string{
	0x9af30466: "6101",
	0x12706049: "7101",
	0x6d089c64: "6102",
	0x211ba9fb: "6103",
	0x520d9abb: "6105",
	0x266c376c: "6106",
	0x0e018159: "8303",
	0xcd19fef1: "iQue 1",
	0xb98ced9a: "iQue 2",
	0xe71c2766: "iQue 3",
}

// CICName maps a bootcode checksum to the variant's common name.
func CICName(crc uint32) string {
	if name, ok := cicNames[crc]; ok {
		return name
	}
	return "Unknown"
}

// Info holds the cartridge identity gathered once during bus bring-up.
// All fields are read-only afterwards.
type Info struct {
	ROMSize uint32
	CIC     CIC
	CICName string

	// Title holds the raw 20 header bytes at 0x20.  Japanese releases
	// encode it as Shift-JIS.
	Title [20]byte

	// GameCode is category, unique id (2 bytes) and region from the
	// header at 0x3b, Version the byte at 0x3f.
	GameCode [4]byte
	Version  byte

	SRAM      bool
	FlashRAM  bool
	FlashType byte
}

// HasSave reports whether any bus-addressed save chip was detected.
// EEPROMs hang off the serial bus instead and are tracked separately.
func (i *Info) HasSave() bool {
	return i.SRAM || i.FlashRAM
}
