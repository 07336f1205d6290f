package display

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/penwyp/go-heatmap-monitor/internal/core/model"
	"github.com/penwyp/go-heatmap-monitor/internal/core/scroll"
	"github.com/penwyp/go-heatmap-monitor/internal/util"
)

const defaultTermWidth = 80

var shades = []rune{' ', '░', '▒', '▓', '█'}

// DisplayConfig controls the terminal heat map
type DisplayConfig struct {
	Out        io.Writer
	CellWidth  int    // terminal cells per column
	TimeLayout string // layout for the time axis
	Color      bool   // truecolor backgrounds instead of shade glyphs
	Width      int    // 0 queries the terminal
	Title      string
}

// Status is the non-window part of a frame
type Status struct {
	Snapshot    scroll.Snapshot
	Interaction model.InteractionState
	Source      string
}

// TerminalDisplay draws the visible window as rows of colored cells, highest cluster on top.
type TerminalDisplay struct {
	config *DisplayConfig

	mu                sync.Mutex
	window            []*model.Column
	status            Status
	inAlternateScreen bool
	previousScreen    []string // previous frame for differential updates
	isFirstRender     bool
}

func NewTerminalDisplay(config *DisplayConfig) *TerminalDisplay {
	if config == nil {
		config = &DisplayConfig{}
	}
	if config.Out == nil {
		config.Out = os.Stdout
	}
	if config.CellWidth <= 0 {
		config.CellWidth = 2
	}
	if config.TimeLayout == "" {
		config.TimeLayout = "15:04:05"
	}
	if config.Title == "" {
		config.Title = "Heat Map Monitor"
	}
	return &TerminalDisplay{
		config:        config,
		isFirstRender: true,
	}
}

// Render implements scroll.Renderer.
func (td *TerminalDisplay) Render(update scroll.Update) {
	td.mu.Lock()
	defer td.mu.Unlock()
	td.window = update.Window
	td.drawLocked()
}

// SetStatus replaces the status part of the frame and redraws.
func (td *TerminalDisplay) SetStatus(status Status) {
	td.mu.Lock()
	defer td.mu.Unlock()
	td.status = status
	if td.window == nil {
		td.window = status.Snapshot.Window
	}
	td.drawLocked()
}

// Window returns the columns currently drawn.
func (td *TerminalDisplay) Window() []*model.Column {
	td.mu.Lock()
	defer td.mu.Unlock()
	out := make([]*model.Column, len(td.window))
	copy(out, td.window)
	return out
}

// EnterAlternateScreen switches to alternate screen buffer
func (td *TerminalDisplay) EnterAlternateScreen() {
	td.mu.Lock()
	defer td.mu.Unlock()
	if td.inAlternateScreen {
		return
	}
	fmt.Fprint(td.config.Out, util.AltScreenOn+util.ClearScreen+util.MoveCursorHome+
		util.ClearScrollback+util.ResetScrollRegion+util.HideCursor)
	td.inAlternateScreen = true
	td.isFirstRender = true
}

// ExitAlternateScreen returns to normal screen buffer
func (td *TerminalDisplay) ExitAlternateScreen() {
	td.mu.Lock()
	defer td.mu.Unlock()
	if !td.inAlternateScreen {
		return
	}
	fmt.Fprint(td.config.Out, util.ClearScreen+util.MoveCursorHome+util.ShowCursor+util.AltScreenOff)
	td.inAlternateScreen = false
}

func (td *TerminalDisplay) drawLocked() {
	lines := BuildFrame(td.window, td.status, td.config, td.width())

	var sb strings.Builder
	if td.isFirstRender || len(lines) != len(td.previousScreen) {
		sb.WriteString(util.ClearScreen + util.MoveCursorHome)
		for _, line := range lines {
			sb.WriteString(line + "\r\n")
		}
		td.isFirstRender = false
	} else {
		// Only rewrite changed lines
		for i, line := range lines {
			if td.previousScreen[i] == line {
				continue
			}
			sb.WriteString(util.MoveCursor(i+1, 1) + util.ClearLine + line)
		}
	}
	td.previousScreen = lines

	if sb.Len() > 0 {
		fmt.Fprint(td.config.Out, sb.String())
	}
}

func (td *TerminalDisplay) width() int {
	if td.config.Width > 0 {
		return td.config.Width
	}
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return defaultTermWidth
}

// BuildFrame lays out one screen. The newest columns that fit into width are shown.
func BuildFrame(window []*model.Column, status Status, cfg *DisplayConfig, width int) []string {
	if status.Interaction.ShowHelp {
		return helpLines()
	}

	snap := status.Snapshot
	lines := []string{headerLine(cfg.Title, snap, status.Source), strings.Repeat("─", min(width, 100))}

	if len(window) == 0 || len(window[0].Clusters) == 0 {
		lines = append(lines, "", "  Waiting for data...", "")
		return append(lines, footerLines(status)...)
	}

	labels := make([]string, len(window[0].Clusters))
	labelWidth := 0
	for j, c := range window[0].Clusters {
		labels[j] = c.RangeLabel
		if w := util.GetDisplayWidth(c.RangeLabel); w > labelWidth {
			labelWidth = w
		}
	}

	// marker + label + " │"
	fit := (width - labelWidth - 3) / cfg.CellWidth
	if fit < 1 {
		fit = 1
	}
	if len(window) > fit {
		window = window[len(window)-fit:]
	}

	maxCount := 0
	for _, col := range window {
		if m := col.MaxCount(); m > maxCount {
			maxCount = m
		}
	}

	selected := status.Interaction.SelectedRow
	for j := len(labels) - 1; j >= 0; j-- {
		marker := " "
		if j == selected {
			marker = ">"
		}
		var row strings.Builder
		row.WriteString(marker + util.PadString(labels[j], labelWidth, false) + " │")
		for _, col := range window {
			count := 0
			if j < len(col.Clusters) {
				count = col.Clusters[j].Count
			}
			row.WriteString(cell(count, maxCount, cfg))
		}
		lines = append(lines, row.String())
	}

	axisPad := strings.Repeat(" ", labelWidth+1)
	lines = append(lines, axisPad+" └"+strings.Repeat("─", len(window)*cfg.CellWidth))

	first := util.FormatColumnKey(window[0].Key, cfg.TimeLayout)
	last := util.FormatColumnKey(window[len(window)-1].Key, cfg.TimeLayout)
	span := len(window) * cfg.CellWidth
	axis := first
	if len(window) > 1 && span > util.GetDisplayWidth(first)+util.GetDisplayWidth(last) {
		axis = first + strings.Repeat(" ", span-util.GetDisplayWidth(first)-util.GetDisplayWidth(last)) + last
	}
	lines = append(lines, axisPad+"  "+axis)

	if selected >= 0 && selected < len(labels) {
		newest := window[len(window)-1]
		lines = append(lines, fmt.Sprintf("  Row %s: %d points in the newest column, max %d in view",
			labels[selected], newest.Clusters[selected].Count, maxCount))
	} else {
		lines = append(lines, "")
	}

	return append(lines, footerLines(status)...)
}

func headerLine(title string, snap scroll.Snapshot, source string) string {
	icon := "■"
	switch snap.State {
	case model.StatePlaying:
		icon = "▶"
	case model.StatePaused:
		icon = "❚❚"
	}
	header := fmt.Sprintf("%s%s%s  %s %s  %s/column  cursor %d  pending %d  cached %d  evicted %d",
		util.ColorBold, title, util.ColorReset, icon, snap.State, util.FormatInterval(snap.Interval),
		snap.Cursor, snap.Cache.Pending, snap.Cache.Columns, snap.Cache.Evicted)
	if snap.Retrieving {
		header += "  fetching..."
	}
	if source != "" {
		header += "  " + util.ColorDim + source + util.ColorReset
	}
	return header
}

func footerLines(status Status) []string {
	var lines []string
	if status.Snapshot.LastErr != nil {
		lines = append(lines, util.ColorRed+"  Last error: "+status.Snapshot.LastErr.Error()+util.ColorReset)
	}
	if status.Interaction.StatusMessage != "" {
		lines = append(lines, "  Status: "+status.Interaction.StatusMessage)
	}
	lines = append(lines, util.ColorDim+"  space pause  +/- speed  h/l step  j/k row  r reset  s snapshot  ? help  q quit"+util.ColorReset)
	return lines
}

func helpLines() []string {
	return []string{
		"Heat Map Monitor - Help",
		strings.Repeat("═", 60),
		"",
		"Keyboard Shortcuts:",
		"",
		"  space      - Pause or resume scrolling",
		"  + / -      - Scroll faster / slower",
		"  h / Left   - Step back into revealed history",
		"  l / Right  - Reveal the next column",
		"  j / k      - Select the cluster row below / above",
		"  r          - Clear the cache and start over",
		"  s          - Save a PNG snapshot of the window",
		"  ?          - Show this help",
		"  q/Esc/Ctrl+C - Quit the program",
		"",
		"Cells darken from white to red as more points fall into a value range.",
		"",
		strings.Repeat("═", 60),
		"Press '?' to return...",
	}
}

func cell(count, maxCount int, cfg *DisplayConfig) string {
	if cfg.Color {
		r, g, b := util.HeatRGB(count, maxCount)
		return util.Background(r, g, b) + strings.Repeat(" ", cfg.CellWidth) + util.ColorReset
	}
	return strings.Repeat(string(shade(count, maxCount)), cfg.CellWidth)
}

func shade(count, maxCount int) rune {
	if count <= 0 || maxCount <= 0 {
		return shades[0]
	}
	idx := 1 + (count*(len(shades)-1)-1)/maxCount
	if idx >= len(shades) {
		idx = len(shades) - 1
	}
	return shades[idx]
}
