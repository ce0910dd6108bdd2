// Package logging provides the zap logger used by ddcctl.
//
// Logging is silent unless a level is given on the command line or through
// the DDCCTL_LOG_LEVEL environment variable. At debug level every bus
// transfer is dumped in hex, which is the first thing to look at when a
// display does not answer as expected.
package logging
