package ddcci

import (
	"errors"
	"fmt"
	"strings"
)

// Addressing bytes used on the wire.
//
// i2c-dev emits the address/rw byte itself, so DestWrite is only part of the
// checksum of outgoing frames and DestRead never reaches software.
const (
	DestWrite     byte = 0x6e // Display address 0x37 with the write bit.
	DestRead      byte = 0x6f // Display address 0x37 with the read bit.
	HostSource    byte = 0x51 // Source marker of host to display messages.
	HostWrite     byte = 0x50 // Synthetic leading byte of display to host messages.
	DisplaySource byte = 0x6e // Source marker of display to host messages.
)

// lengthFlag is set in the length byte of every MCCS message; the other
// seven bits hold the payload length.
const (
	lengthFlag = 0x80
	maxPayload = 0x7f
)

// Command is one semantic request sent to the display.
type Command struct {
	Opcode byte
	Args   []byte
}

// String returns the command as it is written on the wire.
func (c Command) String() string {
	return Dump(Encode(c.Opcode, c.Args...))
}

// Encode builds the wire frame for opcode and args:
//
//	dest, source, length|0x80, opcode, args..., checksum
//
// The length counts the opcode and args. Keeping it within 7 bits is the
// caller's job.
func Encode(opcode byte, args ...byte) []byte {
	b := make([]byte, 0, len(args)+5)
	b = append(b, DestWrite, HostSource, byte(1+len(args))|lengthFlag, opcode)
	b = append(b, args...)
	return append(b, Checksum(0, b))
}

// Decode splits a frame read from the bus into its payload and records every
// integrity check in the returned Validation. raw starts at the source byte.
//
// All checks are evaluated, and a payload is returned even when some fail.
// The checksum covers every byte of raw; displays answering with a shorter
// frame than was read pad with zeros, which leave it unchanged. The payload
// is cut to the declared length whenever the frame holds it.
func Decode(raw []byte, source byte) ([]byte, Validation) {
	v := Validation{Opcode: true, Echo: true}
	if len(raw) > 0 {
		v.Source = raw[0] == source
	}
	if len(raw) < 3 {
		return nil, v
	}
	declared := int(raw[1] &^ lengthFlag)
	v.Length = len(raw) >= declared+3
	v.Checksum = Checksum(syntheticLead(source), raw) == 0

	end := len(raw) - 1
	if v.Length {
		end = 2 + declared
	}
	payload := make([]byte, end-2)
	copy(payload, raw[2:end])
	return payload, v
}

// Checksum XORs every byte of b into seed.
func Checksum(seed byte, b []byte) byte {
	for _, c := range b {
		seed ^= c
	}
	return seed
}

// Verify reports whether a complete wire frame, including its leading address
// byte, checksums to zero. Frames addressed for reading are checked against
// HostWrite instead of the address byte seen on the wire.
func Verify(frame []byte) bool {
	if len(frame) == 0 {
		return false
	}
	lead := frame[0]
	if lead&1 == 1 {
		lead = HostWrite
	}
	return Checksum(lead, frame[1:]) == 0
}

// syntheticLead returns the byte standing in for the address byte when
// checksumming a message sent by source.
func syntheticLead(source byte) byte {
	if source == HostSource {
		return DestWrite
	}
	return HostWrite
}

// Dump formats b as space separated hex.
func Dump(b []byte) string {
	var sb strings.Builder
	for i, c := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02x", c)
	}
	return sb.String()
}

// Validation records the integrity checks run on a reply. A false field marks
// a failed check. Opcode and Echo are only evaluated by operations that know
// which reply to expect; Decode leaves them true.
type Validation struct {
	Source   bool // First byte matched the expected source marker.
	Checksum bool // Message XORed to zero.
	Length   bool // Enough bytes for the declared length.
	Opcode   bool // Reply opcode matched the request.
	Echo     bool // Reply echoed the requested code or offset.
}

// OK reports whether every check passed.
func (v Validation) OK() bool {
	return v.Source && v.Checksum && v.Length && v.Opcode && v.Echo
}

// Failed lists the names of the failed checks.
func (v Validation) Failed() []string {
	var out []string
	for _, c := range []struct {
		name string
		ok   bool
	}{
		{"source address", v.Source},
		{"checksum", v.Checksum},
		{"length", v.Length},
		{"opcode", v.Opcode},
		{"echo", v.Echo},
	} {
		if !c.ok {
			out = append(out, c.name)
		}
	}
	return out
}

func (v Validation) String() string {
	if v.OK() {
		return "ok"
	}
	return "failed: " + strings.Join(v.Failed(), ", ")
}

// Err returns nil when every check passed, or a *ValidationError.
func (v Validation) Err() error {
	if v.OK() {
		return nil
	}
	return &ValidationError{Validation: v}
}

// ValidationError is returned by Validation.Err for callers that choose to
// treat a malformed reply as fatal.
type ValidationError struct {
	Validation Validation
}

func (e *ValidationError) Error() string {
	return "ddcci: reply " + e.Validation.String()
}

// IsValidationError reports whether err wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
