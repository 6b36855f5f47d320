package joybus_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/nopjne/dreamdump64/joybus"
	"github.com/nopjne/dreamdump64/simcart"
)

func testEEPROM(port joybus.Port) (*joybus.EEPROM, *simcart.Clock) {
	clock := &simcart.Clock{Step: time.Microsecond}
	e := joybus.NewEEPROM(port, joybus.WithClock(clock),
		joybus.WithProbeTimeout(time.Millisecond),
		joybus.WithRecvTimeout(time.Millisecond))
	return e, clock
}

func TestProbe(t *testing.T) {
	tests := map[string]struct {
		chip    int
		dev     joybus.Device
		size    int
		blocks  int
		present bool
		err     error
	}{
		"4k":     {512, joybus.EEPROM4k, 512, 64, true, nil},
		"16k":    {2048, joybus.EEPROM16k, 2048, 256, true, nil},
		"absent": {0, 0, 0, 0, false, joybus.ErrTimeout},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			port := &simcart.EEPROMPort{}
			if tc.chip > 0 {
				port.Chip = make([]byte, tc.chip)
			}
			e, _ := testEEPROM(port)

			dev, err := e.Probe()
			if !errors.Is(err, tc.err) {
				t.Fatalf("expected %v, got %v", tc.err, err)
			}
			if dev != tc.dev {
				t.Errorf("expected device %#04x, got %#04x", uint16(tc.dev), uint16(dev))
			}
			if e.Size() != tc.size || e.Blocks() != tc.blocks {
				t.Errorf("expected size %d/%d, got %d/%d",
					tc.size, tc.blocks, e.Size(), e.Blocks())
			}
			if e.Present() != tc.present {
				t.Errorf("expected present=%v", tc.present)
			}
		})
	}
}

// scriptPort answers every command with a fixed word sequence.
type scriptPort struct {
	script []uint32
	rx     []uint32
}

func (p *scriptPort) Send([]uint32) { p.rx = append(p.rx[:0], p.script...) }
func (p *scriptPort) TryRecv() (uint32, bool) {
	if len(p.rx) == 0 {
		return 0, false
	}
	w := p.rx[0]
	p.rx = p.rx[1:]
	return w, true
}

func TestProbeBadResponse(t *testing.T) {
	tests := map[string][]uint32{
		"firstWordSet":  {0xff, 0x80, 0},
		"unknownDevice": {0, 0x42, 0},
	}
	for name, script := range tests {
		t.Run(name, func(t *testing.T) {
			e, _ := testEEPROM(&scriptPort{script: script})
			if _, err := e.Probe(); !errors.Is(err, joybus.ErrNoResponse) {
				t.Fatalf("expected ErrNoResponse, got %v", err)
			}
			if e.Present() || e.Size() != 0 {
				t.Error("chip not disabled after failed probe")
			}
		})
	}
}

func probed(t *testing.T, port *simcart.EEPROMPort) *joybus.EEPROM {
	t.Helper()
	e, _ := testEEPROM(port)
	if _, err := e.Probe(); err != nil {
		t.Fatal("probe:", err)
	}
	port.Sent = nil
	return e
}

func TestReadBlock(t *testing.T) {
	port := &simcart.EEPROMPort{Chip: make([]byte, 512)}
	for i := range port.Chip {
		port.Chip[i] = byte(i)
	}
	e := probed(t, port)

	buf := make([]byte, 16)
	if err := e.ReadBlock(2, buf); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf, port.Chip[16:32]) {
		t.Errorf("expected %x, got %x", port.Chip[16:32], buf)
	}
}

func TestWriteBlock(t *testing.T) {
	for name, busy := range map[string]bool{"idle": false, "busy": true} {
		t.Run(name, func(t *testing.T) {
			port := &simcart.EEPROMPort{Chip: make([]byte, 512), Busy: busy}
			clock := &simcart.Clock{Step: time.Microsecond}
			e := joybus.NewEEPROM(port, joybus.WithClock(clock))
			if _, err := e.Probe(); err != nil {
				t.Fatal("probe:", err)
			}
			slept := clock.Slept

			data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
			if err := e.WriteBlock(3, data); err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(port.Chip[24:32], data) {
				t.Errorf("expected %x at block 3, got %x", data, port.Chip[24:32])
			}

			waited := clock.Slept - slept
			if busy && waited < time.Millisecond {
				t.Errorf("no write cycle delay, slept %v", waited)
			}
			if !busy && waited >= time.Millisecond {
				t.Errorf("unexpected write cycle delay, slept %v", waited)
			}
		})
	}
}

func TestRetry(t *testing.T) {
	tests := map[string]struct {
		drop  int
		sends int
		err   error
	}{
		"noFault":   {0, 1, nil},
		"recovered": {10, 11, nil},
		"exhausted": {11, 11, joybus.ErrNoResponse},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			port := &simcart.EEPROMPort{Chip: make([]byte, 512)}
			e := probed(t, port)
			port.Drop = tc.drop

			buf := make([]byte, 8)
			if err := e.ReadBlock(0, buf); !errors.Is(err, tc.err) {
				t.Fatalf("expected %v, got %v", tc.err, err)
			}
			if len(port.Sent) != tc.sends {
				t.Errorf("expected %d commands on the wire, got %d", tc.sends, len(port.Sent))
			}
			if tc.err == nil {
				return
			}

			// Exhausting the retries disables the chip for good.
			if e.Present() || e.Size() != 0 {
				t.Error("chip still enabled after retry exhaustion")
			}
			port.Sent = nil
			if err := e.ReadBlock(0, buf); !errors.Is(err, joybus.ErrDisabled) {
				t.Errorf("expected ErrDisabled, got %v", err)
			}
			if err := e.WriteBlock(0, buf); !errors.Is(err, joybus.ErrDisabled) {
				t.Errorf("expected ErrDisabled, got %v", err)
			}
			if len(port.Sent) != 0 {
				t.Errorf("%d commands sent to a disabled chip", len(port.Sent))
			}
		})
	}
}
