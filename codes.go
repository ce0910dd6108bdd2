package ddcci

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Common MCCS VCP codes. 0x00-0xdf are standard, 0xe0-0xff belong to the
// manufacturer.
const (
	CodeDegauss       byte = 0x01
	CodeNewControl    byte = 0x02
	CodeFactoryReset  byte = 0x04
	CodeBrightness    byte = 0x10
	CodeContrast      byte = 0x12
	CodeColorPreset   byte = 0x14
	CodeRedGain       byte = 0x16
	CodeGreenGain     byte = 0x18
	CodeBlueGain      byte = 0x1a
	CodeInputSource   byte = 0x60
	CodeAudioVolume   byte = 0x62
	CodeAudioMute     byte = 0x8d
	CodeSharpness     byte = 0x87
	CodeDisplayUsage  byte = 0xc0
	CodeControllerID  byte = 0xc8
	CodeFirmware      byte = 0xc9
	CodePowerMode     byte = 0xd6
	CodeMCCSVersion   byte = 0xdf
	CodeManufacturer0 byte = 0xe0
)

// Power mode values for CodePowerMode.
const (
	PowerOn      = 0x01
	PowerStandby = 0x04
	PowerOff     = 0x05
)

var codeNames = map[string]byte{
	"degauss":       CodeDegauss,
	"new-control":   CodeNewControl,
	"factory-reset": CodeFactoryReset,
	"brightness":    CodeBrightness,
	"contrast":      CodeContrast,
	"color-preset":  CodeColorPreset,
	"red-gain":      CodeRedGain,
	"green-gain":    CodeGreenGain,
	"blue-gain":     CodeBlueGain,
	"input-source":  CodeInputSource,
	"volume":        CodeAudioVolume,
	"mute":          CodeAudioMute,
	"sharpness":     CodeSharpness,
	"usage-time":    CodeDisplayUsage,
	"controller-id": CodeControllerID,
	"firmware":      CodeFirmware,
	"power-mode":    CodePowerMode,
	"mccs-version":  CodeMCCSVersion,
}

// LookupCode returns the VCP code known under name.
func LookupCode(name string) (byte, bool) {
	c, ok := codeNames[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

// ParseCode accepts a code name or a number ("0x10", "16").
func ParseCode(s string) (byte, error) {
	if c, ok := LookupCode(s); ok {
		return c, nil
	}
	n, err := strconv.ParseUint(strings.TrimSpace(s), 0, 8)
	if err != nil {
		return 0, fmt.Errorf("ddcci: unknown VCP code %q", s)
	}
	return byte(n), nil
}

// CodeName returns the name of code, or its hex form.
func CodeName(code byte) string {
	for name, c := range codeNames {
		if c == code {
			return name
		}
	}
	if code >= CodeManufacturer0 {
		return fmt.Sprintf("manufacturer-0x%02x", code)
	}
	return fmt.Sprintf("0x%02x", code)
}

// CodeNames returns every known code name, sorted.
func CodeNames() []string {
	names := make([]string, 0, len(codeNames))
	for name := range codeNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
