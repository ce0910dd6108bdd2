// Ddcctl queries and changes monitor settings over DDC/CI.
//
// It talks to the display through the Linux i2c-dev interface; the user
// needs read/write access to /dev/i2c-N (usually through the i2c group).
//
// Usage:
//
//	ddcctl [command] [flags]
//
// Run 'ddcctl detect' to find which bus a display is on, then
// 'ddcctl --bus N get brightness'.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"periph.io/x/devices/v3/ddcci/internal/config"
	"periph.io/x/devices/v3/ddcci/internal/logging"
	"periph.io/x/devices/v3/ddcci/internal/version"
)

// Global flags
var (
	busName    string
	configPath string
	logLevel   string
	strict     bool
)

// cfg is loaded before any command runs.
var cfg = config.Default()

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logging.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ddcctl",
	Short: "Monitor control over DDC/CI",
	Long: `Query and change monitor settings (brightness, contrast, input...)
over the DDC/CI channel of the video cable.

VCP codes can be given by name (brightness, contrast, ...), as numbers
(0x10, 16), or by an alias from the configuration file.`,
	Version:           version.Version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVarP(&busName, "bus", "b", "", "I²C bus number, name or display nickname")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file (default: ~/.config/ddcctl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); debug dumps bus traffic")
	rootCmd.PersistentFlags().BoolVar(&strict, "strict", false, "Fail when a reply does not pass its checks")

	rootCmd.AddCommand(versionCmd)
}

// setup loads the configuration and the logger. Flags win over the file.
func setup(cmd *cobra.Command, args []string) error {
	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg = c

	level := logLevel
	if level == "" {
		level = cfg.LogLevel
	}
	if err := logging.Initialize(level); err != nil {
		return err
	}
	if !cmd.Flags().Changed("strict") {
		strict = cfg.Strict
	}
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "ddcctl %s (commit: %s)\n", version.Version, version.Commit)
	},
}
