package commands

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/penwyp/go-heatmap-monitor/internal/application/play"
	"github.com/penwyp/go-heatmap-monitor/internal/core/constants"
	"github.com/penwyp/go-heatmap-monitor/internal/core/model"
)

var (
	// Source flags
	playFile   string
	playDemo   bool
	playWatch  bool
	playStrict bool

	// Pipeline flags
	playClusters     int
	playInterval     time.Duration
	playPlotWidth    int
	playColumnWidth  int
	playCacheLimit   int
	playTick         time.Duration
	playMaxRetries   int
	playRetryTimeout time.Duration
	playScale        string

	// Display flags
	playColor            bool
	playCellWidth        int
	playTimeLayout       string
	playSnapshotDir      string
	playRefreshPerSecond float64
	playSpeedStep        time.Duration
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Scroll a heat map of a points file or a demo stream",
	Long: `Reveals one binned column per tick into a fixed-width window, newest on the right.
When the cache runs out of unrevealed columns more data is fetched from the source with
bounded retries.

Keys: space pause, +/- speed, h/l step, j/k select row, r reset, s snapshot, ? help, q quit.`,
	RunE: runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)

	// Source flags
	playCmd.Flags().StringVarP(&playFile, "file", "f", "",
		"Points file (.jsonl, .json, optionally .zst)")
	playCmd.Flags().BoolVar(&playDemo, "demo", false,
		"Play a synthetic latency stream instead of a file")
	playCmd.Flags().BoolVarP(&playWatch, "watch", "w", false,
		"Watch the file and pick up appended points")
	playCmd.Flags().BoolVar(&playStrict, "strict", false,
		"Fail on malformed records instead of skipping them")

	// Pipeline flags
	playCmd.Flags().IntVar(&playClusters, "clusters", constants.DefaultClusters,
		"Number of value ranges per column")
	playCmd.Flags().DurationVar(&playInterval, "interval", time.Duration(constants.DefaultColumnIntervalMs)*time.Millisecond,
		"Time span of one column")
	playCmd.Flags().IntVar(&playPlotWidth, "plot-width", constants.DefaultPlotWidth,
		"Plot width in pixels")
	playCmd.Flags().IntVar(&playColumnWidth, "column-width", constants.DefaultPlotColumnWidth,
		"Column width in pixels; the window holds plot-width/column-width columns")
	playCmd.Flags().IntVar(&playCacheLimit, "cache-limit", constants.DefaultCacheLimit,
		"Columns kept in memory before the oldest are evicted")
	playCmd.Flags().DurationVar(&playTick, "tick", constants.DefaultTickInterval,
		"Delay between revealed columns")
	playCmd.Flags().IntVar(&playMaxRetries, "max-retries", constants.DefaultMaxRetries,
		"Fetch attempts when the cache runs dry (0 = unlimited)")
	playCmd.Flags().DurationVar(&playRetryTimeout, "retry-timeout", constants.DefaultRetryTimeout,
		"Delay between fetch attempts")
	playCmd.Flags().StringVar(&playScale, "scale", string(model.ScaleFixed),
		"Value scale for appended data (fixed, rescale)")

	// Display flags
	playCmd.Flags().BoolVar(&playColor, "color", false,
		"Draw truecolor cells instead of shade glyphs")
	playCmd.Flags().IntVar(&playCellWidth, "cell-width", 2,
		"Terminal cells per column")
	playCmd.Flags().StringVar(&playTimeLayout, "time-layout", "15:04:05",
		"Go time layout for the time axis")
	playCmd.Flags().StringVar(&playSnapshotDir, "snapshot-dir", ".",
		"Directory for PNG snapshots")
	playCmd.Flags().Float64Var(&playRefreshPerSecond, "refresh-per-second", 4,
		"Status refresh rate (0.1-20 Hz)")
	playCmd.Flags().DurationVar(&playSpeedStep, "speed-step", 50*time.Millisecond,
		"Tick change per +/- key press")
}

func runPlay(cmd *cobra.Command, args []string) error {
	config := &play.PlayConfig{
		DataFile:      playFile,
		Watch:         playWatch,
		Demo:          playDemo,
		Strict:        playStrict,
		Timezone:      timezone,
		TimeLayout:    playTimeLayout,
		Color:         playColor,
		CellWidth:     playCellWidth,
		SnapshotDir:   expand(playSnapshotDir),
		UIRefreshRate: playRefreshPerSecond,
		SpeedStep:     playSpeedStep,
		Core: model.Config{
			Clusters:         playClusters,
			ColumnIntervalMs: playInterval.Milliseconds(),
			ScalePolicy:      model.ScalePolicy(playScale),
			PlotColumnWidth:  playColumnWidth,
			PlotWidth:        playPlotWidth,
			CacheLimit:       playCacheLimit,
			TickInterval:     playTick,
			MaxRetries:       playMaxRetries,
			RetryTimeout:     playRetryTimeout,
		},
	}
	if playFile != "" {
		config.DataFile = expandPath(playFile)
	}

	orchestrator, err := play.NewOrchestrator(config)
	if err != nil {
		return err
	}

	// Set up signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	return orchestrator.Run(ctx)
}

// expand keeps empty paths empty
func expand(path string) string {
	if path == "" {
		return ""
	}
	return expandPath(path)
}
