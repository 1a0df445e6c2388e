// Package cmd implements all CLI commands for h3xy
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tomrford/h3xy/pkg/config"
	"github.com/tomrford/h3xy/pkg/errlog"
)

const version = "1.0.0"

var (
	// Global configuration instance
	cfg *config.Config

	// Global error/warning sink (stderr plus the optional /E log file)
	logger *errlog.Logger

	// Global flags
	errorLogFlag   string
	logVersionFlag bool
	quietFlag      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "h3xy",
	Short: "h3xy - Process microcontroller hex files",
	Long: `h3xy is a command-line tool for processing address-tagged byte images
used to program non-volatile memory.

It parses Intel HEX, Motorola S-Record, HEX-ASCII, and raw binary files,
runs a fixed-order operation pipeline over them (range filter, merge, cut,
fill, align, swap, address mapping, checksum), and writes the result back
out in any supported format or streams it to a connected device.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		logger, err = errlog.New(errorLogFlag, quietFlag)
		if err != nil {
			return fmt.Errorf("failed to open error log: %w", err)
		}
		if logVersionFlag {
			logger.Version(version)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logger.Close()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVar(&errorLogFlag, "error-log", "", "Error log file; errors and warnings are teed here in addition to stderr")
	rootCmd.PersistentFlags().BoolVar(&logVersionFlag, "log-version", false, "Write the h3xy version to the error log before running")
	rootCmd.PersistentFlags().BoolVar(&quietFlag, "quiet", false, "Suppress informational output")

	// Disable default completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// Helper function for printing output (respects quiet mode)
func printInfo(format string, args ...interface{}) {
	if logger != nil {
		logger.Info(format, args...)
	} else if !quietFlag {
		fmt.Printf(format+"\n", args...)
	}
}

// Helper function for printing errors (always shown)
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
