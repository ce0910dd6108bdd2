package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/spf13/cobra"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"periph.io/x/devices/v3/ddcci"
	"periph.io/x/devices/v3/ddcci/edid"
	"periph.io/x/devices/v3/ddcci/internal/logging"
)

// Command flags
var (
	saveAfterSet  bool
	showFragments bool
)

func init() {
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(timingCmd)
	rootCmd.AddCommand(capsCmd)
	rootCmd.AddCommand(selfTestCmd)
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(codesCmd)

	setCmd.Flags().BoolVar(&saveAfterSet, "save", false, "Ask the display to persist its settings afterwards")
	capsCmd.Flags().BoolVar(&showFragments, "fragments", false, "Show the checks of every fragment")
}

// openDevice opens the configured bus and binds the DDC/CI address.
// The returned function releases both.
func openDevice() (*ddcci.Dev, func(), error) {
	name := cfg.ResolveBus(busName)
	if name == "" {
		return nil, nil, errors.New("no bus given; use --bus or run 'ddcctl detect'")
	}
	if _, err := host.Init(); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize periph.io: %w", err)
	}
	b, err := i2creg.Open(name)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open I²C bus %q: %w", name, err)
	}
	dev, err := newDevice(b)
	if err != nil {
		b.Close()
		return nil, nil, err
	}
	return dev, func() {
		_ = dev.Halt()
		_ = b.Close()
	}, nil
}

func newDevice(b i2c.Bus) (*ddcci.Dev, error) {
	return ddcci.NewI2C(b, &ddcci.Opts{Logger: logging.GetLogger()})
}

// check reports a failed validation, or fails in strict mode.
func check(w io.Writer, what string, v ddcci.Validation) error {
	if v.OK() {
		return nil
	}
	if strict {
		return fmt.Errorf("%s: %w", what, v.Err())
	}
	fmt.Fprintln(w, renderWarning(what+" "+v.String()))
	return nil
}

var getCmd = &cobra.Command{
	Use:   "get <code>",
	Short: "Read a VCP value",
	Example: `  ddcctl --bus 4 get brightness
  ddcctl --bus 4 get 0x12`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

func runGet(cmd *cobra.Command, args []string) error {
	code, err := cfg.ResolveCode(args[0])
	if err != nil {
		return err
	}
	dev, done, err := openDevice()
	if err != nil {
		return err
	}
	defer done()

	r, err := dev.GetVCP(cmd.Context(), code)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if err := check(out, "reply", r.Validation); err != nil {
		return err
	}
	fmt.Fprintln(out, renderVCP(r))
	return nil
}

var setCmd = &cobra.Command{
	Use:   "set <code> <value>",
	Short: "Change a VCP value",
	Example: `  ddcctl --bus 4 set brightness 60
  ddcctl --bus 4 set input-source 0x0f --save`,
	Args: cobra.ExactArgs(2),
	RunE: runSet,
}

func runSet(cmd *cobra.Command, args []string) error {
	code, err := cfg.ResolveCode(args[0])
	if err != nil {
		return err
	}
	value, err := parseValue(args[1])
	if err != nil {
		return err
	}
	dev, done, err := openDevice()
	if err != nil {
		return err
	}
	defer done()

	if err := dev.SetVCP(cmd.Context(), code, value); err != nil {
		return err
	}
	if saveAfterSet {
		if err := dev.SaveSettings(cmd.Context()); err != nil {
			return err
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderOK(fmt.Sprintf("%s set to %d", ddcci.CodeName(code), value)))
	return nil
}

// parseValue accepts decimal or 0x-prefixed 16-bit values.
func parseValue(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q: must be 0-65535", s)
	}
	return uint16(v), nil
}

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Ask the display to persist its current settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dev, done, err := openDevice()
		if err != nil {
			return err
		}
		defer done()
		if err := dev.SaveSettings(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderOK("settings saved"))
		return nil
	},
}

var timingCmd = &cobra.Command{
	Use:   "timing",
	Short: "Show the display timing report",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dev, done, err := openDevice()
		if err != nil {
			return err
		}
		defer done()

		t, err := dev.TimingReport(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if err := check(out, "timing report", t.Validation); err != nil {
			return err
		}
		fmt.Fprintln(out, renderTiming(t))
		return nil
	},
}

var capsCmd = &cobra.Command{
	Use:   "caps",
	Short: "Read the capabilities string",
	Long: `Read the capabilities string of the display.

The string is read in fragments. Malformed fragments are reported but do
not stop the read.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dev, done, err := openDevice()
		if err != nil {
			return err
		}
		defer done()

		caps, err := dev.ReadCapabilities(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for i, v := range caps.Fragments {
			if showFragments {
				fmt.Fprintln(out, renderFragment(i, v))
				continue
			}
			if err := check(out, fmt.Sprintf("fragment %d", i), v); err != nil {
				return err
			}
		}
		fmt.Fprintln(out, caps.Raw)
		return nil
	},
}

var selfTestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Run the display self-test",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dev, done, err := openDevice()
		if err != nil {
			return err
		}
		defer done()

		status, v, err := dev.SelfTest(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if err := check(out, "self-test reply", v); err != nil {
			return err
		}
		if status != 0 {
			fmt.Fprintln(out, renderWarning(fmt.Sprintf("self-test status 0x%02x", status)))
			return nil
		}
		fmt.Fprintln(out, renderOK("self-test passed"))
		return nil
	},
}

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Find displays by their EDID",
	Long: `Probe every I²C bus for a display identification block (EDID) and list
the displays found. Use the bus of a display with --bus.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := host.Init(); err != nil {
			return fmt.Errorf("failed to initialize periph.io: %w", err)
		}
		displays, err := edid.Scan(logging.GetLogger())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(displays) == 0 {
			fmt.Fprintln(out, "No displays found.")
			fmt.Fprintln(out, "\nTroubleshooting:")
			fmt.Fprintln(out, "  - Load the i2c-dev kernel module (modprobe i2c-dev)")
			fmt.Fprintln(out, "  - Check read/write access to /dev/i2c-*")
			fmt.Fprintln(out, "  - Enable DDC/CI in the display's on-screen menu")
			return nil
		}
		fmt.Fprintln(out, renderDisplays(displays))
		return nil
	},
}

var codesCmd = &cobra.Command{
	Use:   "codes",
	Short: "List known VCP code names",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		for _, name := range ddcci.CodeNames() {
			code, _ := ddcci.LookupCode(name)
			fmt.Fprintf(out, "0x%02x  %s\n", code, name)
		}
		aliases := make([]string, 0, len(cfg.Aliases))
		for name := range cfg.Aliases {
			aliases = append(aliases, name)
		}
		sort.Strings(aliases)
		for _, name := range aliases {
			fmt.Fprintf(out, "0x%02x  %s (alias)\n", cfg.Aliases[name], name)
		}
	},
}
