package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"periph.io/x/devices/v3/ddcci"
)

func init() {
	rootCmd.AddCommand(tuneCmd)
}

var tuneCmd = &cobra.Command{
	Use:   "tune <code>",
	Short: "Adjust a VCP value interactively",
	Long: `Show a slider for a continuous VCP value (brightness, contrast, volume...)
and write every change to the display as it is made.

Keys: ←/→ step by 1, PgUp/PgDn step by 10, q or Esc to quit.`,
	Example: "  ddcctl --bus 4 tune brightness",
	Args:    cobra.ExactArgs(1),
	RunE:    runTune,
}

func runTune(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return errors.New("tune needs an interactive terminal; use 'ddcctl set' instead")
	}
	code, err := cfg.ResolveCode(args[0])
	if err != nil {
		return err
	}
	dev, done, err := openDevice()
	if err != nil {
		return err
	}
	defer done()

	ctx := cmd.Context()
	r, err := dev.GetVCP(ctx, code)
	if err != nil {
		return err
	}
	if err := check(cmd.OutOrStdout(), "reply", r.Validation); err != nil {
		return err
	}
	if !r.Supported() {
		return fmt.Errorf("%s is not supported by this display", ddcci.CodeName(code))
	}
	if r.Type != ddcci.TypeSetParameter || r.Max == 0 {
		return fmt.Errorf("%s is not a continuous value", ddcci.CodeName(code))
	}

	m := newTuneModel(ctx, dev, r)
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		m.setWidth(w)
	}
	final, err := tea.NewProgram(m, tea.WithContext(ctx)).Run()
	if err != nil {
		return err
	}
	return final.(tuneModel).err
}

// vcpSetter is the part of *ddcci.Dev the slider writes through.
type vcpSetter interface {
	SetVCP(ctx context.Context, code byte, value uint16) error
}

type tuneKeyMap struct {
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Quit     key.Binding
}

func defaultTuneKeys() tuneKeyMap {
	return tuneKeyMap{
		Up: key.NewBinding(
			key.WithKeys("right", "l", "+"),
			key.WithHelp("→", "+1"),
		),
		Down: key.NewBinding(
			key.WithKeys("left", "h", "-"),
			key.WithHelp("←", "-1"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "up", "k"),
			key.WithHelp("pgup", "+10"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "down", "j"),
			key.WithHelp("pgdn", "-10"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// writtenMsg reports the outcome of one SetVCP.
type writtenMsg struct {
	value uint16
	err   error
}

// tuneModel keeps at most one write in flight. Key presses while a write
// is pending only move the target; the latest target is written once the
// pending write completes.
type tuneModel struct {
	ctx  context.Context
	dev  vcpSetter
	code byte
	max  uint16

	value   uint16 // Last value the display accepted
	target  uint16
	writing bool
	err     error

	keys tuneKeyMap
	bar  progress.Model
}

func newTuneModel(ctx context.Context, dev vcpSetter, r ddcci.VCPReply) tuneModel {
	cur := r.Current
	if cur > r.Max {
		cur = r.Max
	}
	return tuneModel{
		ctx:    ctx,
		dev:    dev,
		code:   r.Code,
		max:    r.Max,
		value:  cur,
		target: cur,
		keys:   defaultTuneKeys(),
		bar: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(40),
		),
	}
}

func (m *tuneModel) setWidth(w int) {
	w -= 20
	if w < 20 {
		w = 20
	}
	if w > 60 {
		w = 60
	}
	m.bar.Width = w
}

func (m tuneModel) Init() tea.Cmd {
	return nil
}

func (m tuneModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.setWidth(msg.Width)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up):
			m.step(1)
		case key.Matches(msg, m.keys.Down):
			m.step(-1)
		case key.Matches(msg, m.keys.PageUp):
			m.step(10)
		case key.Matches(msg, m.keys.PageDown):
			m.step(-10)
		default:
			return m, nil
		}
		return m, m.flush()

	case writtenMsg:
		m.writing = false
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		m.value = msg.value
		return m, m.flush()
	}
	return m, nil
}

func (m *tuneModel) step(delta int) {
	t := int(m.target) + delta
	if t < 0 {
		t = 0
	}
	if t > int(m.max) {
		t = int(m.max)
	}
	m.target = uint16(t)
}

// flush starts a write of the target if none is pending and the display
// does not have it yet.
func (m *tuneModel) flush() tea.Cmd {
	if m.writing || m.target == m.value {
		return nil
	}
	m.writing = true
	ctx, dev, code, v := m.ctx, m.dev, m.code, m.target
	return func() tea.Msg {
		return writtenMsg{value: v, err: dev.SetVCP(ctx, code, v)}
	}
}

func (m tuneModel) View() string {
	pct := float64(m.target) / float64(m.max)
	status := mutedStyle.Render("sent")
	if m.target != m.value {
		status = warningStyle.Render("writing")
	}
	help := mutedStyle.Render(fmt.Sprintf("%s %s  %s %s  %s %s  %s %s  %s %s",
		m.keys.Down.Help().Key, m.keys.Down.Help().Desc,
		m.keys.Up.Help().Key, m.keys.Up.Help().Desc,
		m.keys.PageDown.Help().Key, m.keys.PageDown.Help().Desc,
		m.keys.PageUp.Help().Key, m.keys.PageUp.Help().Desc,
		m.keys.Quit.Help().Key, m.keys.Quit.Help().Desc))
	return fmt.Sprintf("\n  %s %s\n\n  %s %d/%d\n\n  %s\n",
		labelStyle.Render(ddcci.CodeName(m.code)), status,
		m.bar.ViewAs(pct), m.target, m.max,
		help)
}
