package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/joshuapare/mixkit/internal/logging"
	"github.com/joshuapare/mixkit/mixin/config"
)

var (
	// Global flags
	verbose    bool
	quiet      bool
	jsonOut    bool
	noColor    bool
	configPath string

	// Resolved in PersistentPreRunE
	cfg    config.Config
	stdout io.Writer = os.Stdout
)

var rootCmd = &cobra.Command{
	Use:   "mixctl",
	Short: "Inspect mixin modules and exercise the mixin runtime",
	Long: `mixctl loads mixin modules (Go plugins or built-in demo modules) into a
registry and reports what they define. It also computes mixin buffer layouts
and runs the reference plugin scenario end to end.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", "", "Runtime configuration file (.toml or .hcl)")
}

// setup loads the configuration and installs the logger.
func setup(cmd *cobra.Command, _ []string) error {
	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.Default().Normalize()
	}
	if err != nil {
		return err
	}

	logCfg := logging.DefaultConfig(logging.ProfileRuntime)
	if lvl, ok := logging.ParseLevel(cfg.Log.Level); ok {
		logCfg.Level = lvl
	}
	if cfg.Log.Timestamp != nil {
		logCfg.Timestamp = *cfg.Log.Timestamp
	}
	logCfg.NoColor = cfg.Log.NoColor || noColor
	switch {
	case quiet:
		logCfg.Level = zerolog.ErrorLevel
	case verbose:
		logCfg.Level = zerolog.DebugLevel
	}
	logCfg.Out = cmd.ErrOrStderr()
	logging.Apply(logCfg)
	return nil
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(stdout, format, args...)
	}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...any) {
	if verbose && !quiet {
		fmt.Fprintf(stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v any) error {
	encoder := json.NewEncoder(stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
