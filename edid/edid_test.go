package edid

import (
	"errors"
	"testing"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

// block builds a valid base block for a Dell display.
func block() []byte {
	b := make([]byte, BlockSize)
	copy(b, Header)
	b[8], b[9] = 0x10, 0xac   // "DEL"
	b[10], b[11] = 0x34, 0x12 // product 0x1234
	b[12], b[13], b[14], b[15] = 0x78, 0x56, 0x34, 0x12
	b[16], b[17] = 12, 30 // week 12 of 2020
	b[18], b[19] = 1, 4

	name := b[54+18 : 54+36]
	copy(name, []byte{0, 0, 0, 0xfc, 0})
	copy(name[5:], "DELL U2720Q\n ")

	serial := b[54+36 : 54+54]
	copy(serial, []byte{0, 0, 0, 0xff, 0})
	copy(serial[5:], "ABC123\n      ")

	var sum byte
	for _, c := range b[:BlockSize-1] {
		sum += c
	}
	b[BlockSize-1] = -sum
	return b
}

func TestParse(t *testing.T) {
	// The block does not have to start at the beginning of the buffer.
	buf := append([]byte{0xde, 0xad, 0xbe, 0xef}, block()...)
	info, err := Parse(buf)
	if err != nil {
		t.Fatal(err)
	}
	checks := []struct {
		name      string
		got, want interface{}
	}{
		{"Manufacturer", info.Manufacturer, "DEL"},
		{"ProductCode", info.ProductCode, uint16(0x1234)},
		{"Serial", info.Serial, uint32(0x12345678)},
		{"Week", info.Week, 12},
		{"Year", info.Year, 2020},
		{"Version", info.Version, 1},
		{"Revision", info.Revision, 4},
		{"Name", info.Name, "DELL U2720Q"},
		{"SerialText", info.SerialText, "ABC123"},
		{"ChecksumOK", info.ChecksumOK, true},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want error
	}{
		{"empty", nil, ErrNoHeader},
		{"no header", make([]byte, 256), ErrNoHeader},
		{"truncated", block()[:100], ErrShortBlock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.in); !errors.Is(err, tt.want) {
				t.Errorf("Parse() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseBadChecksum(t *testing.T) {
	b := block()
	b[BlockSize-1]++
	info, err := Parse(b)
	if err != nil {
		t.Fatal(err)
	}
	if info.ChecksumOK {
		t.Error("ChecksumOK = true")
	}
}

func TestManufacturer(t *testing.T) {
	tests := []struct {
		v    uint16
		want string
	}{
		{0x10ac, "DEL"},
		{0x4c2d, "SAM"},
		{0x1e6d, "GSM"},
	}
	for _, tt := range tests {
		if got := manufacturer(tt.v); got != tt.want {
			t.Errorf("manufacturer(0x%04x) = %q, want %q", tt.v, got, tt.want)
		}
	}
}

func readIO(b []byte) i2ctest.IO {
	r := make([]byte, 4*BlockSize)
	copy(r[40:], b)
	return i2ctest.IO{Addr: Addr, R: r}
}

func TestRead(t *testing.T) {
	bus := &i2ctest.Playback{Ops: []i2ctest.IO{readIO(block())}, DontPanic: true}
	info, err := Read(bus)
	if err != nil {
		t.Fatal(err)
	}
	if info.Manufacturer != "DEL" {
		t.Errorf("Manufacturer = %q", info.Manufacturer)
	}
	if err := bus.Close(); err != nil {
		t.Error(err)
	}
}

func TestScan(t *testing.T) {
	open := func(ops ...i2ctest.IO) i2creg.Opener {
		return func() (i2c.BusCloser, error) {
			return &i2ctest.Playback{Ops: ops, DontPanic: true}, nil
		}
	}
	if err := i2creg.Register("edidtest-display", nil, -1, open(readIO(block()))); err != nil {
		t.Fatal(err)
	}
	defer i2creg.Unregister("edidtest-display")
	if err := i2creg.Register("edidtest-empty", nil, -1, open(i2ctest.IO{Addr: Addr, R: make([]byte, 4*BlockSize)})); err != nil {
		t.Fatal(err)
	}
	defer i2creg.Unregister("edidtest-empty")

	displays, err := Scan(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(displays) != 1 {
		t.Fatalf("found %d displays, want 1", len(displays))
	}
	if displays[0].Bus != "edidtest-display" || displays[0].Info.Name != "DELL U2720Q" {
		t.Errorf("display = %+v", displays[0])
	}
}
