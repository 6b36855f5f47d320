package vdisk

import (
	"bytes"
	"fmt"

	"github.com/nopjne/dreamdump64/cart"
	"golang.org/x/text/encoding/japanese"
)

func presence(ok bool) string {
	if ok {
		return "OK!"
	}
	return "Not present"
}

func eepromStatus(size int) string {
	switch size {
	case 512:
		return "4K OK!"
	case 2048:
		return "16K OK!"
	}
	return "Not present"
}

// titleString decodes the raw header title.  Japanese releases use
// Shift-JIS; plain ASCII titles pass through the decoder unchanged.
func titleString(raw []byte) string {
	raw = bytes.TrimRight(raw, "\x00 ")
	s, err := japanese.ShiftJIS.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(s)
}

// report formats the cart tester summary served as CARTTEST.TXT.  The
// output is at most one sector; the rest of the file reads as zeroes.
func report(eepromSize int, info *cart.Info) []byte {
	return fmt.Appendf(nil,
		"\nCart tester report:\n\n"+
			"    EEPROM     - %s\n"+
			"    SRAM       - %s\n"+
			"    FlashRam   - %s\n"+
			"    CIC        - %s %s\n"+
			"    Romsize    - %dMB\n"+
			"    RomName    - %s\n"+
			"    RomID      - %02X%02X %c%c\n"+
			"    CartType   - %c\n"+
			"    RomRegion  - %c\n"+
			"    RomVersion - %02X\n",
		eepromStatus(eepromSize),
		presence(info.SRAM),
		presence(info.FlashRAM),
		info.CIC, info.CICName,
		info.ROMSize>>20,
		titleString(info.Title[:]),
		info.GameCode[1], info.GameCode[2], info.GameCode[1], info.GameCode[2],
		info.GameCode[0],
		info.GameCode[3],
		info.Version)
}
