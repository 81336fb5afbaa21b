package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/mj1618/quadview/internal/config"
	"github.com/mj1618/quadview/internal/output"
	"github.com/mj1618/quadview/internal/version"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "quadview",
	Short: "Tile four browser windows around a controller window",
	Long: `quadview opens four windows on a target page and keeps them tiled in a
2x2 grid or a 1+3 layout against a controller window, following it as it
moves or resizes.`,
	SilenceUsage: true,
}

// logger is shared by the commands; --debug lowers its level.
var logger = log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, Prefix: "quadview"})

func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(fmt.Sprintf("%s (commit: %s, built: %s)", version.Version, version.Commit, version.BuildDate)),
	); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version.Version, version.Commit, version.BuildDate)
	rootCmd.PersistentFlags().String("format", "yaml", "Output format: yaml, json")
	rootCmd.PersistentFlags().Bool("pretty", false, "Indent JSON output")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("config", "", "Config file (default "+config.DefaultPath()+")")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if debug, _ := rootCmd.PersistentFlags().GetBool("debug"); debug {
			log.SetLevel(log.DebugLevel)
			logger.SetLevel(log.DebugLevel)
		}

		format, _ := rootCmd.PersistentFlags().GetString("format")
		switch format {
		case "yaml":
			output.OutputFormat = output.FormatYAML
		case "json":
			output.OutputFormat = output.FormatJSON
		default:
			return fmt.Errorf("unsupported format: %s (use yaml or json)", format)
		}
		output.PrettyOutput, _ = rootCmd.PersistentFlags().GetBool("pretty")
		return nil
	}
}

// loadConfig reads the file named by --config, or the default location.
func loadConfig() (config.Config, error) {
	path, _ := rootCmd.PersistentFlags().GetString("config")
	return config.Load(path)
}

// componentLogger returns a child logger for one component, at the
// shared logger's level.
func componentLogger(prefix string) *log.Logger {
	return logger.WithPrefix(prefix)
}
