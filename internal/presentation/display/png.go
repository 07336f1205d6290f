package display

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"path/filepath"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/penwyp/go-heatmap-monitor/internal/core/model"
	"github.com/penwyp/go-heatmap-monitor/internal/util"
)

// ErrNothingToPlot is returned for a snapshot of an empty window.
var ErrNothingToPlot = errors.New("no columns to plot")

// SnapshotConfig sizes the PNG snapshot
type SnapshotConfig struct {
	Width      vg.Length
	Height     vg.Length
	Title      string
	TimeLayout string
	Shades     int
}

func (c *SnapshotConfig) applyDefaults() {
	if c.Width <= 0 {
		c.Width = 12 * vg.Inch
	}
	if c.Height <= 0 {
		c.Height = 5 * vg.Inch
	}
	if c.Title == "" {
		c.Title = "Heat map"
	}
	if c.TimeLayout == "" {
		c.TimeLayout = "15:04:05"
	}
	if c.Shades < 2 {
		c.Shades = 32
	}
}

// columnGrid adapts window columns to plotter.GridXYZ. X is the column key in Unix seconds,
// Y the cluster index.
type columnGrid struct {
	columns []*model.Column
}

func (g columnGrid) Dims() (c, r int) {
	return len(g.columns), len(g.columns[0].Clusters)
}

func (g columnGrid) Z(c, r int) float64 {
	clusters := g.columns[c].Clusters
	if r >= len(clusters) {
		return 0
	}
	return float64(clusters[r].Count)
}

func (g columnGrid) X(c int) float64 { return g.columns[c].Key / 1000 }

func (g columnGrid) Y(r int) float64 { return float64(r) }

// whiteToRed matches the terminal ramp: empty cells white, busy ones red.
type whiteToRed []color.Color

func (p whiteToRed) Colors() []color.Color { return p }

func newWhiteToRed(n int) whiteToRed {
	p := make(whiteToRed, n)
	for i := range p {
		v := uint8(255 - 255*i/(n-1))
		p[i] = color.RGBA{R: 255, G: v, B: v, A: 255}
	}
	return p
}

// NewSnapshotPlot builds the heat map plot of columns.
func NewSnapshotPlot(columns []*model.Column, cfg SnapshotConfig) (*plot.Plot, error) {
	cfg.applyDefaults()
	if len(columns) == 0 || len(columns[0].Clusters) == 0 {
		return nil, ErrNothingToPlot
	}

	grid := columnGrid{columns: columns}
	hm := plotter.NewHeatMap(grid, newWhiteToRed(cfg.Shades))
	if hm.Max <= hm.Min {
		hm.Max = hm.Min + 1
	}

	p := plot.New()
	p.Title.Text = cfg.Title
	p.X.Label.Text = "Time"
	p.Y.Label.Text = "Value range"
	p.X.Tick.Marker = plot.TimeTicks{Format: cfg.TimeLayout, Time: func(t float64) time.Time {
		return util.MillisToTime(t * 1000).In(util.GetTimeProvider().Location())
	}}

	ticks := make([]plot.Tick, len(columns[0].Clusters))
	for j, c := range columns[0].Clusters {
		ticks[j] = plot.Tick{Value: float64(j), Label: c.RangeLabel}
	}
	p.Y.Tick.Marker = plot.ConstantTicks(ticks)
	p.Add(hm)

	return p, nil
}

// WritePNG renders columns as a PNG to w.
func WritePNG(w io.Writer, columns []*model.Column, cfg SnapshotConfig) error {
	cfg.applyDefaults()
	p, err := NewSnapshotPlot(columns, cfg)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(cfg.Width, cfg.Height, "png")
	if err != nil {
		return fmt.Errorf("failed to create png writer: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// SaveSnapshot writes columns to path; the extension picks the image format.
func SaveSnapshot(path string, columns []*model.Column, cfg SnapshotConfig) error {
	cfg.applyDefaults()
	p, err := NewSnapshotPlot(columns, cfg)
	if err != nil {
		return err
	}
	if filepath.Ext(path) == "" {
		path += ".png"
	}
	if err := p.Save(cfg.Width, cfg.Height, path); err != nil {
		return fmt.Errorf("failed to save snapshot %s: %w", path, err)
	}
	util.LogInfof("Saved snapshot of %d columns to %s", len(columns), path)
	return nil
}

// SnapshotName returns a file name for a snapshot taken at t.
func SnapshotName(dir string, t time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("heatmap-%s.png", t.Format("20060102-150405")))
}
