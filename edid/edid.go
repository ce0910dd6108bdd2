package edid

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
)

// Addr is the 7-bit I²C address of the EDID EEPROM.
const Addr uint16 = 0x50

// BlockSize is the size of the EDID base block.
const BlockSize = 128

// Header marks the start of an EDID block.
var Header = []byte{0x00, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x00}

var (
	// ErrNoHeader is returned when no EDID header is found.
	ErrNoHeader = errors.New("edid: header not found")
	// ErrShortBlock is returned when the header is found too close to the
	// end of the data for a complete block.
	ErrShortBlock = errors.New("edid: block truncated")
)

// Descriptor tags.
const (
	tagSerial = 0xff
	tagName   = 0xfc
)

// Info is the identification of a display.
type Info struct {
	Manufacturer string // Three letter PNP ID
	ProductCode  uint16
	Serial       uint32
	SerialText   string // From the serial number descriptor, if any
	Name         string // From the display name descriptor, if any
	Week         int    // Week of manufacture, 0 if unspecified
	Year         int
	Version      int
	Revision     int

	// ChecksumOK is false when the block does not sum to zero. Such blocks
	// are still decoded.
	ChecksumOK bool

	Raw []byte // The 128-byte base block
}

// String returns a human readable description.
func (i *Info) String() string {
	s := fmt.Sprintf("%s %04x serial %d (%d/%d) EDID %d.%d", i.Manufacturer, i.ProductCode, i.Serial, i.Week, i.Year, i.Version, i.Revision)
	if i.Name != "" {
		s = i.Name + ": " + s
	}
	return s
}

// Parse locates the EDID header in b and decodes the block that follows.
func Parse(b []byte) (*Info, error) {
	start := bytes.Index(b, Header)
	if start < 0 {
		return nil, ErrNoHeader
	}
	if len(b)-start < BlockSize {
		return nil, ErrShortBlock
	}
	e := make([]byte, BlockSize)
	copy(e, b[start:])

	info := &Info{
		Manufacturer: manufacturer(binary.BigEndian.Uint16(e[8:10])),
		ProductCode:  binary.LittleEndian.Uint16(e[10:12]),
		Serial:       binary.LittleEndian.Uint32(e[12:16]),
		Week:         int(e[16]),
		Year:         1990 + int(e[17]),
		Version:      int(e[18]),
		Revision:     int(e[19]),
		Raw:          e,
	}
	var sum byte
	for _, c := range e {
		sum += c
	}
	info.ChecksumOK = sum == 0

	// Four 18-byte descriptors follow the fixed fields.
	for off := 54; off < 126; off += 18 {
		d := e[off : off+18]
		if d[0] != 0 || d[1] != 0 || d[2] != 0 {
			continue // Detailed timing
		}
		switch d[3] {
		case tagName:
			info.Name = descriptorText(d[5:])
		case tagSerial:
			info.SerialText = descriptorText(d[5:])
		}
	}
	return info, nil
}

// manufacturer decodes three 5-bit letters, 'A' being 1.
func manufacturer(v uint16) string {
	var m [3]byte
	for i := 2; i >= 0; i-- {
		m[i] = 'A' - 1 + byte(v&0x1f)
		v >>= 5
	}
	return string(m[:])
}

func descriptorText(b []byte) string {
	if i := bytes.IndexByte(b, 0x0a); i >= 0 {
		b = b[:i]
	}
	return strings.TrimSpace(string(b))
}

// Read reads and decodes the EDID of the display on bus b.
func Read(b i2c.Bus) (*Info, error) {
	d := &i2c.Dev{Bus: b, Addr: Addr}
	buf := make([]byte, 4*BlockSize)
	if err := d.Tx(nil, buf); err != nil {
		return nil, fmt.Errorf("edid: read %s: %w", b, err)
	}
	return Parse(buf)
}

// Display is a display found by Scan.
type Display struct {
	Bus    string // Bus name, usable with i2creg.Open
	Number int    // Bus number, -1 if unknown
	Info   *Info
}

// Scan probes every registered I²C bus and returns the ones a display
// answers on. Buses that cannot be opened or carry no EDID are skipped.
//
// host.Init must have been called for the system buses to be registered.
func Scan(log *zap.Logger) ([]Display, error) {
	if log == nil {
		log = zap.NewNop()
	}
	refs := i2creg.All()
	if len(refs) == 0 {
		return nil, errors.New("edid: no I²C bus found")
	}
	var out []Display
	for _, ref := range refs {
		b, err := ref.Open()
		if err != nil {
			log.Debug("open failed", zap.String("bus", ref.Name), zap.Error(err))
			continue
		}
		info, err := Read(b)
		if cerr := b.Close(); cerr != nil {
			log.Debug("close failed", zap.String("bus", ref.Name), zap.Error(cerr))
		}
		if err != nil {
			log.Debug("no display", zap.String("bus", ref.Name), zap.Error(err))
			continue
		}
		log.Info("display found", zap.String("bus", ref.Name), zap.Stringer("edid", info))
		out = append(out, Display{Bus: ref.Name, Number: ref.Number, Info: info})
	}
	return out, nil
}
