package commands

import (
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/penwyp/go-heatmap-monitor/internal/analyzer"
	"github.com/penwyp/go-heatmap-monitor/internal/core/constants"
)

var (
	binFiles      []string
	binDir        string
	outputFormat  string
	binLast       string
	binLimit      int
	binClusters   int
	binInterval   time.Duration
	binStrict     bool
	binTimeLayout string
)

var binCmd = &cobra.Command{
	Use:   "bin",
	Short: "Bin points files once and print the grid",
	Long: `Parses the given files (and every points file below --dir), bins them into columns and
value clusters and prints the result.

Examples:
  go-heatmap-monitor bin --file a.jsonl --file b.json.zst
  go-heatmap-monitor bin --dir ./data --output summary
  go-heatmap-monitor bin --file a.jsonl --last 30m --limit 20 -o csv`,
	RunE: runBin,
}

func init() {
	rootCmd.AddCommand(binCmd)

	binCmd.Flags().StringSliceVarP(&binFiles, "file", "f", nil,
		"Points file; may be repeated")
	binCmd.Flags().StringVar(&binDir, "dir", "",
		"Directory scanned for .jsonl, .json and .zst points files")

	binCmd.Flags().StringVarP(&outputFormat, "output", "o", "table",
		"Output format (table, json, csv, summary)")
	binCmd.Flags().StringVar(&outputFormat, "format", "",
		"Alias for --output")
	binCmd.Flags().StringVar(&binTimeLayout, "time-layout", time.DateTime,
		"Go time layout for column times")

	binCmd.Flags().StringVarP(&binLast, "last", "l", "",
		"Look-back window ending at the newest point (e.g., 90s, 30m, 1d12h)")
	binCmd.Flags().IntVar(&binLimit, "limit", 0,
		"Keep only the newest N columns (0 = unlimited)")
	binCmd.Flags().IntVar(&binClusters, "clusters", constants.DefaultClusters,
		"Number of value ranges per column")
	binCmd.Flags().DurationVar(&binInterval, "interval", time.Duration(constants.DefaultColumnIntervalMs)*time.Millisecond,
		"Time span of one column")
	binCmd.Flags().BoolVar(&binStrict, "strict", false,
		"Fail on the first malformed record or unreadable file")
}

func runBin(cmd *cobra.Command, args []string) error {
	// Handle format alias
	if format := cmd.Flags().Lookup("format"); format != nil && format.Changed {
		outputFormat = format.Value.String()
	}

	files := make([]string, 0, len(binFiles)+len(args))
	for _, f := range append(binFiles, args...) {
		files = append(files, expandPath(f))
	}

	config := &analyzer.Config{
		Files:        files,
		DataDir:      expand(binDir),
		OutputFormat: outputFormat,
		Timezone:     timezone,
		TimeLayout:   binTimeLayout,
		Last:         binLast,
		Limit:        binLimit,
		Clusters:     binClusters,
		IntervalMs:   binInterval.Milliseconds(),
		Concurrency:  runtime.NumCPU(),
		Strict:       binStrict,
		Output:       cmd.OutOrStdout(),
	}
	return analyzer.New(config).Run()
}
