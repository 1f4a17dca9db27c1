package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	logLevel        string // Log verbosity level
	presetsFilePath string // Path to presets.yaml
	outputFormat    string // text, yaml or json
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "cachemiss",
	Short: "Analytical cache-miss model for matrix multiplication",
	Long: "Estimate compulsory, capacity and conflict misses of the row-major i-j-k matrix " +
		"multiplication loop on a set-associative cache, profile operand reuse and recommend tile sizes.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
		if _, ok := reportFormats[outputFormat]; !ok {
			logrus.Fatalf("Invalid output format %q (want text, yaml or json)", outputFormat)
		}
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags shared by every subcommand
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().StringVar(&presetsFilePath, "presets-filepath", "presets.yaml", "Path to presets.yaml")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "Output format (text, yaml, json)")
}
