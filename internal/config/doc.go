// Package config loads the ddcctl configuration file.
//
// The file is optional. It lives in the OS configuration directory
// ($XDG_CONFIG_HOME/ddcctl/config.yaml or ~/.config/ddcctl/config.yaml) or at
// the path given with --config. Files ending in .toml are read as TOML,
// anything else as YAML:
//
//	bus: "4"
//	log_level: warn
//	strict: false
//	displays:
//	  left: "4"
//	  right: "5"
//	aliases:
//	  input: 0x60
//	  dimming: 0xe2
//
// Command line flags override the file.
package config
