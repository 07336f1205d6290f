package analyzer

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"runtime"
	"sort"
	"strconv"
	"time"

	"github.com/penwyp/go-heatmap-monitor/internal/core/binner"
	"github.com/penwyp/go-heatmap-monitor/internal/core/model"
	"github.com/penwyp/go-heatmap-monitor/internal/data/parser"
	"github.com/penwyp/go-heatmap-monitor/internal/data/scanner"
	"github.com/penwyp/go-heatmap-monitor/internal/presentation/formatter"
	"github.com/penwyp/go-heatmap-monitor/internal/util"
)

// Config drives one-shot binning of points files
type Config struct {
	Files        []string
	DataDir      string
	OutputFormat string
	Timezone     string
	TimeLayout   string
	Last         string // look-back window ending at the newest point, e.g. 30m, 2h, 1d12h
	Limit        int    // newest columns to keep, 0 keeps all
	Clusters     int
	IntervalMs   int64
	Concurrency  int
	Strict       bool
	Output       io.Writer
}

type Analyzer struct {
	config  *Config
	scanner *scanner.FileScanner
	parser  *parser.Parser
}

func New(config *Config) *Analyzer {
	if config.Concurrency == 0 {
		config.Concurrency = runtime.NumCPU()
	}
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.OutputFormat == "" {
		config.OutputFormat = "table"
	}
	if config.TimeLayout == "" {
		config.TimeLayout = time.DateTime
	}

	a := &Analyzer{
		config: config,
		parser: parser.NewParser(config.Concurrency, config.Strict),
	}
	if config.DataDir != "" {
		a.scanner = scanner.NewFileScanner(config.DataDir)
	}
	return a
}

func (a *Analyzer) Run() error {
	startTime := time.Now()
	util.LogInfo("Starting heat map binning...")

	if err := util.InitializeTimeProvider(a.config.Timezone); err != nil {
		return fmt.Errorf("failed to initialize timezone: %w", err)
	}
	formatterImpl, err := formatter.New(a.config.OutputFormat)
	if err != nil {
		return err
	}

	// Phase 1: Collect files
	scanStart := time.Now()
	files, err := a.collectFiles()
	if err != nil {
		return err
	}
	scanDuration := time.Since(scanStart)
	util.LogDebug(fmt.Sprintf("Phase 1 - File collection duration: %v, found %d files", scanDuration, len(files)))

	if len(files) == 0 {
		return fmt.Errorf("no points files found")
	}

	// Phase 2: Parse
	parseStart := time.Now()
	points, stats, err := a.parse(files)
	if err != nil {
		return err
	}
	parseElapsed := time.Since(parseStart)
	util.LogDebug(fmt.Sprintf("Phase 2 - Parsing duration: %v, %s", parseElapsed, stats))

	if len(points) == 0 {
		return fmt.Errorf("no valid data points found")
	}

	// Phase 3: Filter by look-back window
	filterStart := time.Now()
	points, err = a.filterLast(points)
	if err != nil {
		return err
	}
	filterDuration := time.Since(filterStart)
	util.LogDebug(fmt.Sprintf("Phase 3 - Filtering duration: %v, points after filtering: %d", filterDuration, len(points)))

	// Phase 4: Bin
	binStart := time.Now()
	grid, err := binner.Bin(points, a.config.Clusters, a.config.IntervalMs)
	if err != nil {
		return fmt.Errorf("failed to bin points: %w", err)
	}
	if a.config.Limit > 0 && grid.Len() > a.config.Limit {
		util.LogDebug(fmt.Sprintf("Applying column limit: %d -> %d", grid.Len(), a.config.Limit))
		grid.Columns = grid.Columns[grid.Len()-a.config.Limit:]
	}
	binDuration := time.Since(binStart)
	util.LogDebug(fmt.Sprintf("Phase 4 - Binning duration: %v, columns: %d", binDuration, grid.Len()))

	// Phase 5: Format and output
	outputStart := time.Now()
	err = formatterImpl.Format(a.config.Output, formatter.NewGridView(grid, a.config.TimeLayout))
	outputDuration := time.Since(outputStart)
	util.LogDebug(fmt.Sprintf("Phase 5 - Formatting and output duration: %v", outputDuration))

	util.LogDebug(fmt.Sprintf("Total duration: %v (scan:%v parse:%v filter:%v bin:%v output:%v)",
		time.Since(startTime), scanDuration, parseElapsed, filterDuration, binDuration, outputDuration))
	return err
}

func (a *Analyzer) collectFiles() ([]string, error) {
	files := append([]string(nil), a.config.Files...)
	if a.scanner != nil {
		found, err := a.scanner.Scan()
		if err != nil {
			return nil, fmt.Errorf("failed to scan files: %w", err)
		}
		files = append(files, found...)
	}
	return dedupe(files), nil
}

// parse reads every file concurrently. In strict mode the first failure aborts;
// otherwise failing files are skipped and counted.
func (a *Analyzer) parse(files []string) ([]model.DataPoint, *ParseStats, error) {
	stats := NewParseStats()
	results := a.parser.ParseFiles(files)

	if a.config.Strict {
		points, err := parser.Merge(results)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse points: %w", err)
		}
		stats.totalFiles = int64(len(files))
		stats.points = int64(len(points))
		return points, stats, nil
	}

	var points []model.DataPoint
	for result := range results {
		stats.IncrementTotal()
		if result.Error != nil {
			stats.IncrementFailure(result.File, result.Error)
			util.LogWarn(fmt.Sprintf("Failed to parse file %s: %v", result.File, result.Error))
			continue
		}
		stats.AddPoints(len(result.Points))
		points = append(points, result.Points...)
	}
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Timestamp < points[j].Timestamp
	})

	if stats.Failures() == stats.Total() {
		return nil, stats, fmt.Errorf("failed to parse all %d files: %w", stats.Total(), stats.FirstError())
	}
	return points, stats, nil
}

// filterLast keeps the points inside the look-back window. Points must be sorted.
func (a *Analyzer) filterLast(points []model.DataPoint) ([]model.DataPoint, error) {
	if a.config.Last == "" || len(points) == 0 {
		return points, nil
	}
	window, err := parseDuration(a.config.Last)
	if err != nil {
		return nil, err
	}

	from := points[len(points)-1].Timestamp - float64(window.Milliseconds())
	idx := sort.Search(len(points), func(i int) bool { return points[i].Timestamp >= from })
	return points[idx:], nil
}

var durationPattern = regexp.MustCompile(`(\d+)([smhdw])`)

// parseDuration accepts concatenated components like 1d12h or 90s
func parseDuration(durationStr string) (time.Duration, error) {
	matches := durationPattern.FindAllStringSubmatch(durationStr, -1)
	if len(matches) == 0 {
		return 0, fmt.Errorf("invalid duration format: %s", durationStr)
	}

	var total time.Duration
	for _, match := range matches {
		value, err := strconv.Atoi(match[1])
		if err != nil {
			return 0, fmt.Errorf("invalid number in duration: %s", match[1])
		}

		switch match[2] {
		case "s":
			total += time.Duration(value) * time.Second
		case "m":
			total += time.Duration(value) * time.Minute
		case "h":
			total += time.Duration(value) * time.Hour
		case "d":
			total += time.Duration(value) * 24 * time.Hour
		case "w":
			total += time.Duration(value) * 7 * 24 * time.Hour
		}
	}
	return total, nil
}

func dedupe(files []string) []string {
	seen := make(map[string]bool, len(files))
	out := files[:0]
	for _, f := range files {
		if seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}
