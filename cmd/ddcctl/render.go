package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"periph.io/x/devices/v3/ddcci"
	"periph.io/x/devices/v3/ddcci/edid"
)

// Color palette
var (
	successColor = lipgloss.Color("#43BF6D") // Green
	errorColor   = lipgloss.Color("#FF5555") // Red
	warningColor = lipgloss.Color("#FFA500") // Orange
	mutedColor   = lipgloss.Color("#626262") // Gray
	accentColor  = lipgloss.Color("#7D56F4") // Purple
)

var (
	okStyle      = lipgloss.NewStyle().Foreground(successColor)
	failStyle    = lipgloss.NewStyle().Foreground(errorColor)
	warningStyle = lipgloss.NewStyle().Foreground(warningColor)
	mutedStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	labelStyle   = lipgloss.NewStyle().Foreground(accentColor).Bold(true)
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
)

func renderOK(msg string) string {
	return okStyle.Render("✓ " + msg)
}

func renderWarning(msg string) string {
	return warningStyle.Render("! " + msg)
}

// renderValidation lists every check with its outcome.
func renderValidation(v ddcci.Validation) string {
	checks := []struct {
		name string
		ok   bool
	}{
		{"source", v.Source},
		{"checksum", v.Checksum},
		{"length", v.Length},
		{"opcode", v.Opcode},
		{"echo", v.Echo},
	}
	parts := make([]string, 0, len(checks))
	for _, c := range checks {
		if c.ok {
			parts = append(parts, okStyle.Render("✓ "+c.name))
		} else {
			parts = append(parts, failStyle.Render("✗ "+c.name))
		}
	}
	return strings.Join(parts, "  ")
}

func renderVCP(r ddcci.VCPReply) string {
	name := labelStyle.Render(ddcci.CodeName(r.Code))
	code := mutedStyle.Render(fmt.Sprintf("(0x%02x)", r.Code))
	if !r.Supported() {
		return fmt.Sprintf("%s %s %s", name, code, failStyle.Render("not supported"))
	}
	kind := "set parameter"
	if r.Type == ddcci.TypeMomentary {
		kind = "momentary"
	}
	return fmt.Sprintf("%s %s current %d, max %d %s", name, code, r.Current, r.Max, mutedStyle.Render(kind))
}

func renderTiming(t ddcci.Timing) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s 0x%02x\n", labelStyle.Render("status    "), t.Status)
	fmt.Fprintf(&b, "%s %d\n", labelStyle.Render("horizontal"), t.Horizontal)
	fmt.Fprintf(&b, "%s %d\n", labelStyle.Render("vertical  "), t.Vertical)
	fmt.Fprintf(&b, "%s %s", labelStyle.Render("raw       "), mutedStyle.Render(ddcci.Dump(t.Raw[:])))
	return b.String()
}

func renderFragment(i int, v ddcci.Validation) string {
	return fmt.Sprintf("%s %s", mutedStyle.Render(fmt.Sprintf("fragment %3d", i)), renderValidation(v))
}

func renderDisplays(displays []edid.Display) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-6s %-4s %-16s %-8s %s", "BUS", "MFR", "NAME", "PRODUCT", "SERIAL")))
	for _, d := range displays {
		serial := d.Info.SerialText
		if serial == "" {
			serial = fmt.Sprintf("%d", d.Info.Serial)
		}
		line := fmt.Sprintf("%-6s %-4s %-16s %04x     %s", d.Bus, d.Info.Manufacturer, d.Info.Name, d.Info.ProductCode, serial)
		if !d.Info.ChecksumOK {
			line += " " + warningStyle.Render("(bad EDID checksum)")
		}
		b.WriteString("\n" + line)
	}
	return b.String()
}
