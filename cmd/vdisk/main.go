// Command vdisk builds the virtual FAT16 volume from a ROM image and
// optional savegame files, writing it out as a disk image.  It serves as
// a host-side testbed for the volume layout: the image it produces is
// byte-identical to what the cartridge exposes over mass storage, minus
// the volume serial.
package main

import (
	"flag"
	"fmt"
	"hash/crc32"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash"
	"github.com/diskfs/go-diskfs/partition/mbr"
	"github.com/spf13/afero"

	"github.com/nopjne/dreamdump64/cart"
	"github.com/nopjne/dreamdump64/joybus"
	"github.com/nopjne/dreamdump64/simcart"
	"github.com/nopjne/dreamdump64/vdisk"
)

const usageString = `Virtual cartridge disk image builder.

Usage: %s [flags] <romfile>

`

var (
	romfile  string
	outfile  = flag.String("o", "vdisk.img", "output image path")
	savefile = flag.String("save", "", "savegame file, .fla or .sra")
	eepfile  = flag.String("eep", "", "EEPROM file, 512 or 2048 bytes")
	verify   = flag.Bool("verify", true, "read the image back and check it")
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), usageString, os.Args[0])
	flag.PrintDefaults()
}

var fs = afero.NewOsFs()

func main() {
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 1 {
		romfile = flag.Arg(0)
	} else {
		flag.Usage()
		os.Exit(1)
	}

	log.SetFlags(0)
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	rom, err := loadROM(fs, romfile)
	if err != nil {
		return err
	}
	info := romInfo(rom)

	bus := &simcart.Bus{ROM: rom}
	save := &simcart.SaveRAM{}
	port := &simcart.EEPROMPort{}

	if *savefile != "" {
		save.Mem, err = afero.ReadFile(fs, *savefile)
		if err != nil {
			return err
		}
		switch strings.ToLower(filepath.Ext(*savefile)) {
		case ".fla":
			info.FlashRAM = true
		default:
			info.SRAM = true
		}
	}
	if *eepfile != "" {
		port.Chip, err = afero.ReadFile(fs, *eepfile)
		if err != nil {
			return err
		}
		if n := len(port.Chip); n != 512 && n != 2048 {
			return fmt.Errorf("%s: EEPROM must be 512 or 2048 bytes, got %d", *eepfile, n)
		}
	}

	eeprom := joybus.NewEEPROM(port, joybus.WithClock(&simcart.Clock{Step: time.Microsecond}))
	eeprom.Probe()

	disk := vdisk.New(bus, eeprom, save, save, info)
	if err := writeImage(fs, *outfile, disk); err != nil {
		return err
	}
	fmt.Printf("%s: %d sectors, rom %q, xxhash %016x\n",
		*outfile, disk.Sectors(), titleArg(info), xxhash.Sum64(rom))

	if *verify {
		return verifyImage(fs, *outfile, rom)
	}
	return nil
}

// loadROM reads the ROM image and normalizes it to bus byte order.
// Byteswapped images (.n64, first byte 0x37) are flipped in place.
func loadROM(fs afero.Fs, name string) ([]byte, error) {
	rom, err := afero.ReadFile(fs, name)
	if err != nil {
		return nil, err
	}
	if len(rom) < 0x1000 || len(rom)%2 != 0 {
		return nil, fmt.Errorf("%s: too short for a ROM image", name)
	}
	if rom[0] == 0x37 {
		for i := 0; i < len(rom); i += 2 {
			rom[i], rom[i+1] = rom[i+1], rom[i]
		}
	}
	return rom, nil
}

// romInfo gathers the identity a real cartridge probe would, from the
// image header instead of the bus.
func romInfo(rom []byte) *cart.Info {
	info := &cart.Info{
		ROMSize: uint32(len(rom)),
		Version: rom[0x3f],
	}
	copy(info.Title[:], rom[0x20:])
	copy(info.GameCode[:], rom[0x3b:])

	info.CICName = cart.CICName(crc32.ChecksumIEEE(rom[0x40:0x1000]))
	switch info.GameCode[3] {
	case 'D', 'F', 'H', 'I', 'P', 'S', 'U', 'W', 'X', 'Y':
		info.CIC = cart.CICPal
	default:
		info.CIC = cart.CICNtsc
	}
	return info
}

func titleArg(info *cart.Info) string {
	return strings.TrimRight(string(info.Title[:]), "\x00 ")
}

func writeImage(fs afero.Fs, name string, disk *vdisk.Disk) error {
	f, err := fs.Create(name)
	if err != nil {
		return err
	}
	defer f.Close()

	buf := make([]byte, 64*vdisk.SectorSize)
	for off := int64(0); off < disk.Size(); off += int64(len(buf)) {
		if _, err := disk.ReadAt(buf, off); err != nil {
			return err
		}
		if _, err := f.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

// verifyImage reads the image back: the partition table must parse and
// the big endian ROM file must hash equal to the source image.
func verifyImage(fs afero.Fs, name string, rom []byte) error {
	f, err := fs.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	table, err := mbr.Read(f, vdisk.SectorSize, vdisk.SectorSize)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	part := table.Partitions[0]
	if part.Type != mbr.Fat16bLBA {
		return fmt.Errorf("%s: unexpected partition type %#02x", name, byte(part.Type))
	}

	off, size, err := findFile(f, int64(part.Start)*vdisk.SectorSize, "ROMF    Z64")
	if err != nil {
		return err
	}
	if size != uint32(len(rom)) {
		return fmt.Errorf("%s: ROMF.Z64 is %d bytes, want %d", name, size, len(rom))
	}

	h := xxhash.New()
	if _, err := io.Copy(h, io.NewSectionReader(f, off, int64(size))); err != nil {
		return err
	}
	if h.Sum64() != xxhash.Sum64(rom) {
		return fmt.Errorf("%s: ROMF.Z64 differs from source image", name)
	}
	return nil
}

// findFile walks the volume's root directory for a short name and
// returns the image offset and size of the file's data.
func findFile(f io.ReaderAt, volume int64, short string) (int64, uint32, error) {
	bpb := make([]byte, vdisk.SectorSize)
	if _, err := f.ReadAt(bpb, volume); err != nil {
		return 0, 0, err
	}
	sectorsPerCluster := int64(bpb[0x0d])
	reserved := int64(le16(bpb[0x0e:]))
	fats := int64(bpb[0x10])
	rootEntries := int64(le16(bpb[0x11:]))
	sectorsPerFAT := int64(le16(bpb[0x16:]))

	rootDir := volume + (reserved+fats*sectorsPerFAT)*vdisk.SectorSize
	dataArea := rootDir + rootEntries*32/vdisk.SectorSize*vdisk.SectorSize

	entry := make([]byte, 32)
	for i := int64(0); i < rootEntries; i++ {
		if _, err := f.ReadAt(entry, rootDir+i*32); err != nil {
			return 0, 0, err
		}
		if entry[0] == 0 {
			break
		}
		if entry[11]&0x08 != 0 { // long name or label
			continue
		}
		if string(entry[:11]) != short {
			continue
		}
		cluster := int64(le16(entry[26:]))
		size := uint32(le16(entry[28:])) | uint32(le16(entry[30:]))<<16
		return dataArea + (cluster-2)*sectorsPerCluster*vdisk.SectorSize, size, nil
	}
	return 0, 0, fmt.Errorf("%q not found in root directory", short)
}

func le16(p []byte) uint16 { return uint16(p[0]) | uint16(p[1])<<8 }
