package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
	version = "dev" // Will be set by build flags
)

var rootCmd = &cobra.Command{
	Use:   "spectrum-server",
	Short: "Histogramming server for nuclear-physics event streams",
	Long: `Spectrum Server consumes streams of decoded physics events and
increments gated, folded spectra. Bound spectra are published through an
Xamine-compatible shared memory region and served to remote viewers over
the mirror protocol.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	rootCmd.AddCommand(serveCmd)
}

// Commands are defined in separate files:
// - serveCmd in serve.go

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
