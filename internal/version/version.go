// Package version holds the build version of ddcctl.
package version

import (
	"runtime/debug"
)

// These variables can be set at build time via ldflags:
//
//	go build -ldflags="-X periph.io/x/devices/v3/ddcci/internal/version.Version=v1.2.3 \
//	                   -X periph.io/x/devices/v3/ddcci/internal/version.Commit=abc123"
var (
	Version = ""
	Commit  = ""
)

func init() {
	if Version == "" || Commit == "" {
		populateFromBuildInfo()
	}
	if Version == "" {
		Version = "dev"
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

// populateFromBuildInfo fills in whatever the Go build info knows.
func populateFromBuildInfo() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if Version == "" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" && Commit == "" {
			Commit = setting.Value
			if len(Commit) > 12 {
				Commit = Commit[:12]
			}
		}
	}
}
