package play

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penwyp/go-heatmap-monitor/internal/core/model"
	"github.com/penwyp/go-heatmap-monitor/internal/presentation/interaction"
	"github.com/penwyp/go-heatmap-monitor/internal/testing/fixtures"
	"github.com/penwyp/go-heatmap-monitor/internal/testing/vterm"
)

// newTestConfig writes six columns of points (five clusters, four visible).
func newTestConfig(t *testing.T) *PlayConfig {
	t.Helper()
	gen := fixtures.NewTestDataGenerator(t.TempDir())
	path, err := gen.WriteJSONL("points.jsonl", fixtures.Series(1000, 1000, 60, 10, 20, 30, 40, 50))
	require.NoError(t, err)

	return &PlayConfig{
		DataFile:      path,
		Timezone:      "UTC",
		UIRefreshRate: 20,
		SnapshotDir:   filepath.Join(t.TempDir(), "snapshots"),
		Core: model.Config{
			Clusters:         5,
			ColumnIntervalMs: 10000,
			PlotColumnWidth:  25,
			PlotWidth:        100,
			CacheLimit:       10,
			TickInterval:     time.Hour,
			MaxRetries:       2,
			RetryTimeout:     10 * time.Millisecond,
		},
		Output: vterm.NewScreen(40, 120),
	}
}

func TestNewOrchestratorInvalidConfig(t *testing.T) {
	_, err := NewOrchestrator(&PlayConfig{})
	assert.ErrorContains(t, err, "invalid config")

	_, err = NewOrchestrator(&PlayConfig{DataFile: filepath.Join(t.TempDir(), "missing.jsonl")})
	assert.ErrorContains(t, err, "failed to open data file")
}

func TestOrchestratorActions(t *testing.T) {
	cfg := newTestConfig(t)
	o, err := NewOrchestrator(cfg)
	require.NoError(t, err)
	defer o.Close()

	require.NoError(t, o.Engine().EnsureData(context.Background()))
	assert.Equal(t, "points.jsonl", o.dataLoader.Label())

	t.Run("step forward and back", func(t *testing.T) {
		assert.False(t, o.handleAction(interaction.ActionStepForward))
		o.handleAction(interaction.ActionStepForward)
		assert.Len(t, o.Engine().Snapshot().Window, 2)

		o.handleAction(interaction.ActionStepBack)
		assert.Equal(t, "Already at the oldest cached column", o.stateManager.GetInteractionState().StatusMessage)
		assert.Len(t, o.Engine().Snapshot().Window, 2)
	})

	t.Run("row selection", func(t *testing.T) {
		o.handleAction(interaction.ActionRowUp)
		assert.Equal(t, 0, o.stateManager.GetInteractionState().SelectedRow)
		for i := 0; i < 10; i++ {
			o.handleAction(interaction.ActionRowUp)
		}
		assert.Equal(t, 4, o.stateManager.GetInteractionState().SelectedRow)
		o.handleAction(interaction.ActionRowDown)
		assert.Equal(t, 3, o.stateManager.GetInteractionState().SelectedRow)
	})

	t.Run("snapshot", func(t *testing.T) {
		o.handleAction(interaction.ActionSnapshot)
		assert.Equal(t, 1, o.stateManager.Snapshots())

		matches, err := filepath.Glob(filepath.Join(cfg.SnapshotDir, "heatmap-*.png"))
		require.NoError(t, err)
		require.Len(t, matches, 1)
		info, err := os.Stat(matches[0])
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	})

	t.Run("help", func(t *testing.T) {
		o.handleKeyboard(interaction.KeyEvent{Key: '?', Type: interaction.KeyChar})
		assert.True(t, o.stateManager.GetInteractionState().ShowHelp)
		assert.False(t, o.handleKeyboard(interaction.KeyEvent{Type: interaction.KeyEscape}), "esc closes help first")
		assert.False(t, o.stateManager.GetInteractionState().ShowHelp)
	})

	t.Run("pause and speed", func(t *testing.T) {
		o.Engine().Start(time.Hour)
		o.handleAction(interaction.ActionTogglePause)
		assert.Equal(t, model.StatePaused, o.Engine().State())
		assert.Equal(t, "Paused", o.stateManager.GetInteractionState().StatusMessage)

		o.handleAction(interaction.ActionSlower)
		assert.Equal(t, time.Hour+cfg.SpeedStep, o.Engine().Interval())
		o.handleAction(interaction.ActionFaster)
		o.handleAction(interaction.ActionFaster)
		assert.Equal(t, time.Hour-cfg.SpeedStep, o.Engine().Interval())
		assert.Equal(t, "Speed: 59m 59s per column", o.stateManager.GetInteractionState().StatusMessage)

		o.handleAction(interaction.ActionTogglePause)
		assert.Equal(t, model.StatePlaying, o.Engine().State())
	})

	t.Run("reset", func(t *testing.T) {
		o.handleAction(interaction.ActionReset)
		assert.Empty(t, o.Engine().Snapshot().Window)
		assert.Equal(t, "Cache cleared", o.stateManager.GetInteractionState().StatusMessage)

		o.handleAction(interaction.ActionSnapshot)
		assert.Equal(t, "Nothing to snapshot yet", o.stateManager.GetInteractionState().StatusMessage)
	})

	assert.True(t, o.handleAction(interaction.ActionQuit))
}

func TestOrchestratorRun(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Core.TickInterval = 5 * time.Millisecond
	screen := cfg.Output.(*vterm.Screen)

	r, w := io.Pipe()
	defer w.Close()
	cfg.Input = r

	o, err := NewOrchestrator(cfg)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- o.Run(context.Background()) }()

	assert.Eventually(t, func() bool { return screen.Contains("cursor 6") }, 3*time.Second, 10*time.Millisecond)
	assert.True(t, screen.AltScreen())
	assert.True(t, screen.Contains("points.jsonl"))

	_, err = w.Write([]byte("?"))
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return screen.Contains("Keyboard Shortcuts:") }, 2*time.Second, 10*time.Millisecond)

	_, err = w.Write([]byte("q"))
	require.NoError(t, err)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		require.FailNow(t, "run did not return after quit")
	}
	assert.False(t, screen.AltScreen())
}

func TestOrchestratorRunStopsOnContext(t *testing.T) {
	cfg := newTestConfig(t)
	r, w := io.Pipe()
	defer w.Close()
	cfg.Input = r

	o, err := NewOrchestrator(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		require.FailNow(t, "run did not return after cancel")
	}
	assert.Equal(t, model.StateStopped, o.Engine().State())
}
