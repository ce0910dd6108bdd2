package ddcci

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"time"

	"go.uber.org/zap"
)

// DDC/CI opcodes.
const (
	OpGetVCP          byte = 0x01
	OpGetVCPReply     byte = 0x02
	OpSetVCP          byte = 0x03
	OpTimingReply     byte = 0x4e // Opcode inside a timing report
	OpTimingRequest   byte = 0x07
	OpSaveSettings    byte = 0x0c
	OpSelfTestReply   byte = 0xa1
	OpSelfTestRequest byte = 0xb1
	OpCapsReply       byte = 0xe3
	OpCapsRequest     byte = 0xf3
	OpEnableAppReport byte = 0xf5
)

// Delays required by the display before each request, and after the ones
// that make it busy.
const (
	getVCPDelay    = 40 * time.Millisecond
	setVCPDelay    = 50 * time.Millisecond
	saveDelay      = 200 * time.Millisecond
	timingDelay    = 40 * time.Millisecond
	capsReplyDelay = 50 * time.Millisecond
)

// Result codes of a VCP reply.
const (
	ResultOK          byte = 0x00
	ResultUnsupported byte = 0x01
)

// VCP types.
const (
	TypeSetParameter byte = 0x00
	TypeMomentary    byte = 0x01
)

// Capability strings are read in fragments of at most capsFragment bytes.
const (
	capsFragment     = 32
	maxCapsLength    = 8 << 10
	maxCapsFragments = 256
)

// ErrCapabilitiesTooLong is returned when a display keeps sending capability
// fragments past any sane length.
var ErrCapabilitiesTooLong = errors.New("ddcci: capabilities string too long")

// VCPReply is the decoded answer to GetVCP.
type VCPReply struct {
	Code    byte   // VCP code that was requested
	Result  byte   // ResultOK or ResultUnsupported
	Type    byte   // TypeSetParameter or TypeMomentary
	Max     uint16 // Maximum value
	Current uint16 // Current value

	Validation Validation
}

// Supported reports whether the display accepted the VCP code.
func (r VCPReply) Supported() bool {
	return r.Result == ResultOK
}

// GetVCP reads the current and maximum value of a VCP code.
//
// A display that does not know code answers with Supported() false; this is
// not an error.
func (d *Dev) GetVCP(ctx context.Context, code byte) (VCPReply, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.send(ctx, Command{Opcode: OpGetVCP, Args: []byte{code}}, getVCPDelay); err != nil {
		return VCPReply{}, err
	}
	p, v, err := d.receive(ctx, 8, 0)
	if err != nil {
		return VCPReply{}, err
	}

	r := VCPReply{Code: code}
	if len(p) < 8 {
		v.Length = false
		v.Opcode = len(p) > 0 && p[0] == OpGetVCPReply
		r.Validation = v
		return r, nil
	}
	v.Opcode = p[0] == OpGetVCPReply
	v.Echo = p[2] == code
	r.Result = p[1]
	r.Type = p[3]
	r.Max = binary.BigEndian.Uint16(p[4:6])
	r.Current = binary.BigEndian.Uint16(p[6:8])
	r.Validation = v
	if !r.Supported() {
		d.log.Debug("unsupported vcp code", zap.Uint8("code", code))
	}
	return r, nil
}

// SetVCP sets a VCP code to value. The display does not reply.
func (d *Dev) SetVCP(ctx context.Context, code byte, value uint16) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	cmd := Command{Opcode: OpSetVCP, Args: []byte{code, byte(value >> 8), byte(value)}}
	if err := d.send(ctx, cmd, setVCPDelay); err != nil {
		return err
	}
	d.hold(setVCPDelay)
	return nil
}

// SaveSettings asks the display to persist its current settings. The display
// is given 200ms before the next operation, whoever issues it.
func (d *Dev) SaveSettings(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.send(ctx, Command{Opcode: OpSaveSettings}, saveDelay); err != nil {
		return err
	}
	d.hold(saveDelay)
	return nil
}

// Timing is a timing report. Fields are split at their boundaries but not
// interpreted.
type Timing struct {
	Raw        [6]byte
	Status     byte
	Horizontal uint16 // Horizontal frequency, as reported
	Vertical   uint16 // Vertical frequency, as reported

	Validation Validation
}

// TimingReport requests the display's timing report.
func (d *Dev) TimingReport(ctx context.Context) (Timing, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.send(ctx, Command{Opcode: OpTimingRequest}, timingDelay); err != nil {
		return Timing{}, err
	}
	p, v, err := d.receive(ctx, 6, 0)
	if err != nil {
		return Timing{}, err
	}
	var t Timing
	n := copy(t.Raw[:], p)
	if n < len(t.Raw) {
		v.Length = false
	}
	v.Opcode = t.Raw[0] == OpTimingReply
	t.Status = t.Raw[1]
	t.Horizontal = binary.BigEndian.Uint16(t.Raw[2:4])
	t.Vertical = binary.BigEndian.Uint16(t.Raw[4:6])
	t.Validation = v
	d.hold(DefaultDelay)
	return t, nil
}

// Fragment is one chunk of the capabilities string.
type Fragment struct {
	Offset uint16 // Offset echoed by the display
	Data   []byte

	Validation Validation
}

// Capabilities requests the fragment of the capabilities string starting at
// offset. An empty fragment marks the end of the string.
func (d *Dev) Capabilities(ctx context.Context, offset uint16) (Fragment, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.capabilities(ctx, offset)
}

func (d *Dev) capabilities(ctx context.Context, offset uint16) (Fragment, error) {
	cmd := Command{Opcode: OpCapsRequest, Args: []byte{byte(offset >> 8), byte(offset)}}
	if err := d.send(ctx, cmd, DefaultDelay); err != nil {
		return Fragment{}, err
	}
	p, v, err := d.receive(ctx, 3+capsFragment, 0)
	if err != nil {
		return Fragment{}, err
	}
	d.hold(capsReplyDelay)

	if len(p) < 3 {
		v.Length = false
		v.Opcode = len(p) > 0 && p[0] == OpCapsReply
		return Fragment{Offset: offset, Validation: v}, nil
	}
	f := Fragment{
		Offset: binary.BigEndian.Uint16(p[1:3]),
		Data:   p[3:],
	}
	v.Opcode = p[0] == OpCapsReply
	v.Echo = f.Offset == offset
	f.Validation = v
	return f, nil
}

// Caps is a complete capabilities string with the diagnostics of every
// fragment it was assembled from.
type Caps struct {
	Raw       string
	Fragments []Validation
}

// OK reports whether every fragment passed its checks.
func (c Caps) OK() bool {
	for _, v := range c.Fragments {
		if !v.OK() {
			return false
		}
	}
	return true
}

// ReadCapabilities reads the whole capabilities string, fragment by fragment,
// until the display returns an empty fragment.
//
// Malformed fragments are kept and reading goes on; their diagnostics are
// part of the result. The bus is held for the whole read.
func (d *Dev) ReadCapabilities(ctx context.Context) (Caps, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var (
		caps   Caps
		buf    bytes.Buffer
		offset uint16
	)
	for i := 0; ; i++ {
		if i == maxCapsFragments || buf.Len() > maxCapsLength {
			return caps, ErrCapabilitiesTooLong
		}
		f, err := d.capabilities(ctx, offset)
		if err != nil {
			return caps, err
		}
		caps.Fragments = append(caps.Fragments, f.Validation)
		if !f.Validation.OK() {
			d.log.Warn("malformed capabilities fragment",
				zap.Uint16("offset", offset),
				zap.Strings("failed", f.Validation.Failed()),
			)
		}
		if len(f.Data) == 0 {
			break
		}
		buf.Write(f.Data)
		offset += uint16(len(f.Data))
	}
	caps.Raw = string(bytes.TrimRight(buf.Bytes(), "\x00"))
	return caps, nil
}

// EnableApplicationReport turns application message reporting on or off.
func (d *Dev) EnableApplicationReport(ctx context.Context, enable bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var arg byte
	if enable {
		arg = 0x01
	}
	return d.send(ctx, Command{Opcode: OpEnableAppReport, Args: []byte{arg}}, DefaultDelay)
}

// SelfTest runs the display self-test and returns its status byte.
func (d *Dev) SelfTest(ctx context.Context) (byte, Validation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.send(ctx, Command{Opcode: OpSelfTestRequest}, DefaultDelay); err != nil {
		return 0, Validation{}, err
	}
	p, v, err := d.receive(ctx, 2, 0)
	if err != nil {
		return 0, Validation{}, err
	}
	if len(p) < 2 {
		v.Length = false
		v.Opcode = len(p) > 0 && p[0] == OpSelfTestReply
		return 0, v, nil
	}
	v.Opcode = p[0] == OpSelfTestReply
	return p[1], v, nil
}
