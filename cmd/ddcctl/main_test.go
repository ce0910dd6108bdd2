package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/i2c/i2ctest"

	"periph.io/x/devices/v3/ddcci"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		in      string
		want    uint16
		wantErr bool
	}{
		{"0", 0, false},
		{"60", 60, false},
		{"0x0f", 0x0f, false},
		{"65535", 65535, false},
		{"65536", 0, true},
		{"-1", 0, true},
		{"bright", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseValue(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseValue(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseValue(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestCheck(t *testing.T) {
	bad := ddcci.Validation{Source: true, Checksum: false, Length: true, Opcode: true, Echo: true}
	defer func(s bool) { strict = s }(strict)

	var buf bytes.Buffer
	strict = false
	if err := check(&buf, "reply", bad); err != nil {
		t.Fatalf("lenient check() = %v", err)
	}
	if !strings.Contains(buf.String(), "reply failed: checksum") {
		t.Errorf("warning = %q", buf.String())
	}

	buf.Reset()
	strict = true
	err := check(&buf, "reply", bad)
	if !ddcci.IsValidationError(errors.Unwrap(err)) {
		t.Errorf("strict check() = %v, want validation error", err)
	}
	if buf.Len() != 0 {
		t.Errorf("strict check printed %q", buf.String())
	}

	if err := check(&buf, "reply", ddcci.Validation{Source: true, Checksum: true, Length: true, Opcode: true, Echo: true}); err != nil {
		t.Errorf("check(ok) = %v", err)
	}
}

func TestRenderValidation(t *testing.T) {
	got := renderValidation(ddcci.Validation{Source: true, Checksum: false, Length: true, Opcode: true, Echo: false})
	for _, want := range []string{"✓ source", "✗ checksum", "✓ length", "✓ opcode", "✗ echo"} {
		if !strings.Contains(got, want) {
			t.Errorf("renderValidation() = %q, missing %q", got, want)
		}
	}
}

func TestRenderVCP(t *testing.T) {
	r := ddcci.VCPReply{Code: ddcci.CodeBrightness, Max: 100, Current: 40}
	if got := renderVCP(r); !strings.Contains(got, "brightness") || !strings.Contains(got, "current 40, max 100") {
		t.Errorf("renderVCP() = %q", got)
	}
	r.Result = ddcci.ResultUnsupported
	if got := renderVCP(r); !strings.Contains(got, "not supported") {
		t.Errorf("renderVCP(unsupported) = %q", got)
	}
}

func TestGetCommand(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("DDCCTL_LOG_LEVEL", "")

	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: ddcci.Addr, W: []byte{0x51, 0x82, 0x01, 0x10, 0xac}},
			{Addr: ddcci.Addr, R: []byte{0x6e, 0x88, 0x02, 0x00, 0x10, 0x00, 0x00, 0x10, 0x00, 0x32, 0x86}},
		},
		DontPanic: true,
	}
	closer := &closeRecorder{Playback: bus}
	opener := func() (i2c.BusCloser, error) { return closer, nil }
	if err := i2creg.Register("ddcctl-test", nil, -1, opener); err != nil {
		t.Fatal(err)
	}
	defer i2creg.Unregister("ddcctl-test")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"--bus", "ddcctl-test", "get", "brightness"})
	defer rootCmd.SetArgs(nil)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := out.String(); !strings.Contains(got, "current 50, max 16") {
		t.Errorf("output = %q", got)
	}
	if !closer.closed {
		t.Fatal("bus not closed")
	}
	if closer.err != nil {
		t.Errorf("transfers left over: %v", closer.err)
	}
}

// closeRecorder keeps the outcome of Close, which verifies that every
// recorded transfer was played.
type closeRecorder struct {
	*i2ctest.Playback
	closed bool
	err    error
}

func (c *closeRecorder) Close() error {
	c.closed = true
	c.err = c.Playback.Close()
	return c.err
}

func TestCodesCommandSortsAliases(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("DDCCTL_LOG_LEVEL", "")
	if err := os.MkdirAll(filepath.Join(dir, "ddcctl"), 0o700); err != nil {
		t.Fatal(err)
	}
	conf := "aliases:\n  zeta: 0xe3\n  alpha: 0xe1\n  mid: 0xe2\n"
	if err := os.WriteFile(filepath.Join(dir, "ddcctl", "config.yaml"), []byte(conf), 0o600); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 5; i++ {
		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetArgs([]string{"codes"})
		if err := rootCmd.ExecuteContext(context.Background()); err != nil {
			t.Fatal(err)
		}
		got := out.String()
		a := strings.Index(got, "alpha (alias)")
		m := strings.Index(got, "mid (alias)")
		z := strings.Index(got, "zeta (alias)")
		if a < 0 || !(a < m && m < z) {
			t.Fatalf("aliases out of order:\n%s", got)
		}
	}
	rootCmd.SetArgs(nil)
}

func TestOpenDeviceWithoutBus(t *testing.T) {
	defer func(c string) { busName = c }(busName)
	busName = ""
	cfg.Bus = ""
	if _, _, err := openDevice(); err == nil {
		t.Fatal("openDevice() without a bus succeeded")
	}
}

// setRecorder records every value written.
type setRecorder struct {
	values []uint16
	err    error
}

func (s *setRecorder) SetVCP(ctx context.Context, code byte, value uint16) error {
	s.values = append(s.values, value)
	return s.err
}

func keyMsg(t tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: t}
}

func TestTuneStep(t *testing.T) {
	rec := &setRecorder{}
	m := newTuneModel(context.Background(), rec, ddcci.VCPReply{Code: ddcci.CodeBrightness, Max: 100, Current: 95})

	next, cmd := m.Update(keyMsg(tea.KeyRight))
	m = next.(tuneModel)
	if m.target != 96 || cmd == nil {
		t.Fatalf("target = %d, cmd = %v", m.target, cmd)
	}
	next, _ = m.Update(cmd())
	m = next.(tuneModel)
	if m.value != 96 || m.writing {
		t.Errorf("value = %d writing = %v", m.value, m.writing)
	}

	// Clamped at the maximum.
	next, cmd = m.Update(keyMsg(tea.KeyPgUp))
	m = next.(tuneModel)
	if m.target != 100 {
		t.Errorf("target = %d, want 100", m.target)
	}
	next, _ = m.Update(cmd())
	m = next.(tuneModel)

	next, cmd = m.Update(keyMsg(tea.KeyRight))
	m = next.(tuneModel)
	if m.target != 100 || cmd != nil {
		t.Errorf("target = %d, cmd = %v at the maximum", m.target, cmd)
	}
	if want := []uint16{96, 100}; !equalValues(rec.values, want) {
		t.Errorf("written %v, want %v", rec.values, want)
	}
}

func TestTuneCoalescesWrites(t *testing.T) {
	rec := &setRecorder{}
	m := newTuneModel(context.Background(), rec, ddcci.VCPReply{Code: ddcci.CodeBrightness, Max: 100, Current: 50})

	next, first := m.Update(keyMsg(tea.KeyRight))
	m = next.(tuneModel)
	for i := 0; i < 3; i++ {
		var cmd tea.Cmd
		next, cmd = m.Update(keyMsg(tea.KeyRight))
		m = next.(tuneModel)
		if cmd != nil {
			t.Fatal("second write started while one is pending")
		}
	}
	next, second := m.Update(first())
	m = next.(tuneModel)
	if second == nil {
		t.Fatal("pending target not written")
	}
	next, third := m.Update(second())
	m = next.(tuneModel)
	if third != nil {
		t.Error("unexpected write after the target was reached")
	}
	if want := []uint16{51, 54}; !equalValues(rec.values, want) {
		t.Errorf("written %v, want %v", rec.values, want)
	}
	if m.value != 54 {
		t.Errorf("value = %d, want 54", m.value)
	}
}

func TestTuneWriteError(t *testing.T) {
	rec := &setRecorder{err: errors.New("bus gone")}
	m := newTuneModel(context.Background(), rec, ddcci.VCPReply{Code: ddcci.CodeContrast, Max: 100, Current: 0})

	next, cmd := m.Update(keyMsg(tea.KeyLeft))
	m = next.(tuneModel)
	if cmd != nil || m.target != 0 {
		t.Fatalf("target = %d below zero", m.target)
	}
	next, cmd = m.Update(keyMsg(tea.KeyRight))
	m = next.(tuneModel)
	next, cmd = m.Update(cmd())
	m = next.(tuneModel)
	if m.err == nil || cmd == nil {
		t.Fatalf("err = %v, cmd = %v", m.err, cmd)
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("write error does not quit")
	}
}

func TestTuneQuit(t *testing.T) {
	m := newTuneModel(context.Background(), &setRecorder{}, ddcci.VCPReply{Max: 10})
	_, cmd := m.Update(keyMsg(tea.KeyEsc))
	if cmd == nil {
		t.Fatal("esc does not quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("esc does not quit")
	}
	if v := m.View(); !strings.Contains(v, "0/10") {
		t.Errorf("View() = %q", v)
	}
}

func equalValues(a, b []uint16) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
