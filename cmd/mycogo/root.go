package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/mycogo/pkg/log"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "mycogo",
	Short: "Mushroom edibility classifier",
	Long: "Mycogo trains a gradient-boosted classifier on the secondary mushroom\n" +
		"dataset and serves edible/poisonous predictions over HTTP.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.Version = version
}

// setupLogging validates the level before handing it to the logger,
// which panics on unknown levels.
func setupLogging(level string) error {
	switch level {
	case "debug", "info", "warn", "error":
		log.SetupLogger(level)
		return nil
	default:
		return fmt.Errorf("invalid log level %q (use debug, info, warn or error)", level)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
