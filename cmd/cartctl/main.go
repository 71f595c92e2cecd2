// Cartctl drives video-cart robots and 9-pin VTRs over RS-422.
//
// It sends catalog commands, scans ports for responding units, decodes raw
// timecode and lists the available commands and serial ports. Device
// behaviour (checksum, acknowledgement byte, timing, line settings) comes
// from a YAML profile file or one of the built-in profiles.
//
// Usage:
//
//	cartctl [command] [flags]
//
// See 'cartctl --help' for available commands.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cedinu/flexicart-control/engine"
	"github.com/cedinu/flexicart-control/logger"
	"github.com/cedinu/flexicart-control/profile"
	"github.com/cedinu/flexicart-control/transport"
)

var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	profileFile string
	profileName string
	logLevel    string
	logBackend  string
	dialTimeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "cartctl",
	Short: "Video cart robot and VTR control utility",
	Long: `Control broadcast video-cart robots and 9-pin VTRs over RS-422.

Commands are sent through the protocol engine: macro commands such as load
or eject are acknowledged first and then polled until the device reports
completion.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogger()
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&profileFile, "profile-file", "", "YAML profile file (built-in profiles when empty)")
	rootCmd.PersistentFlags().StringVarP(&profileName, "profile", "P", "", "Profile name (file default when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logBackend, "logger", "slog", "Log backend (slog, zap)")
	rootCmd.PersistentFlags().DurationVar(&dialTimeout, "dial-timeout", transport.DefaultDialTimeout, "Connect timeout for tcp:// ports")
}

func setupLogger() error {
	level := logger.ParseLevel(logLevel)

	switch logBackend {
	case "slog":
		logger.SetLogger(logger.NewSlog(level, false))
	case "zap":
		l, err := logger.NewZap(level)
		if err != nil {
			return fmt.Errorf("failed to build zap logger: %w", err)
		}
		logger.SetLogger(l)
	default:
		return fmt.Errorf("unknown logger %q (want slog or zap)", logBackend)
	}

	return nil
}

// loadProfile resolves the selected profile from --profile-file or the
// built-in set.
func loadProfile() (*profile.Profile, error) {
	f := profile.Builtin()
	if profileFile != "" {
		var err error
		if f, err = profile.Load(profileFile); err != nil {
			return nil, err
		}
	}

	return f.Get(profileName)
}

// newEngine builds an engine for the selected profile. Ports are opened on
// demand: tcp://host:port reaches a serial device server, anything else is a
// local serial port.
func newEngine() (*engine.Engine, *profile.Profile, error) {
	p, err := loadProfile()
	if err != nil {
		return nil, nil, err
	}

	opts, err := p.Options()
	if err != nil {
		return nil, nil, err
	}
	l := logger.GetLogger()
	opts = append(opts, engine.WithLogger(l))

	cfg, err := engine.NewConfig(opts...)
	if err != nil {
		return nil, nil, err
	}

	return engine.New(cfg, transport.AutoOpener(p.SerialConfig(), dialTimeout, l)), p, nil
}
