package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/penwyp/go-heatmap-monitor/internal/util"
)

var (
	// Logging related
	debug    bool
	logLevel string

	// Display related
	timezone string

	rootCmd = &cobra.Command{
		Use:   "go-heatmap-monitor [command]",
		Short: "Scrolling terminal heat map of time series data",
		Long: `go-heatmap-monitor bins timestamped measurements into fixed time columns and
value clusters, and scrolls the resulting heat map across the terminal.

Input records are JSON objects {"key": "<epoch seconds>", "value": "<integer>"}, either
one per line (JSON Lines) or as a single JSON array, optionally zstd-compressed (.zst).

Examples:
  go-heatmap-monitor play --demo                        # Scroll a synthetic latency stream
  go-heatmap-monitor play --file latency.jsonl --watch  # Follow a growing points file
  go-heatmap-monitor bin --file latency.jsonl -o json   # Bin once and print the grid
  go-heatmap-monitor bin --dir ./data --last 1h         # Bin the last hour of a directory`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initLogging()
		},
	}
)

const defaultLogFile = "~/.go-heatmap-monitor/logs/app.log"

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"Enable debug mode (mirrors logs to stderr)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&timezone, "timezone", "Local",
		"Timezone for column times (e.g., Asia/Shanghai, UTC)")
}

func initLogging() error {
	level := logLevel
	if debug {
		level = "debug"
	}

	logFile := expandPath(defaultLogFile)
	if err := ensureDir(filepath.Dir(logFile)); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	util.InitLogger(level, logFile, debug)

	if timezone == "auto" {
		timezone = "Local"
	}
	if err := util.InitializeTimeProvider(timezone); err != nil {
		return fmt.Errorf("failed to initialize timezone: %w", err)
	}
	return nil
}

func Execute() error {
	defer util.CloseLogger()
	return rootCmd.Execute()
}

// Helper functions

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return absPath
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}
