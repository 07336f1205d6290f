package play

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/penwyp/go-heatmap-monitor/internal/core/model"
	"github.com/penwyp/go-heatmap-monitor/internal/core/scroll"
	"github.com/penwyp/go-heatmap-monitor/internal/data/source"
	"github.com/penwyp/go-heatmap-monitor/internal/presentation/display"
	"github.com/penwyp/go-heatmap-monitor/internal/presentation/interaction"
	"github.com/penwyp/go-heatmap-monitor/internal/util"
)

// Orchestrator coordinates all components for the play command
type Orchestrator struct {
	config *PlayConfig

	// Core components
	dataLoader   *DataLoader
	engine       *scroll.Engine
	stateManager *StateManager

	// UI components
	display  DisplayController
	keyboard InputHandler

	preloadDone chan struct{}
}

// NewOrchestrator creates a new Orchestrator instance
func NewOrchestrator(config *PlayConfig) (*Orchestrator, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dataLoader, err := NewDataLoader(config)
	if err != nil {
		return nil, err
	}

	termDisplay := display.NewTerminalDisplay(&display.DisplayConfig{
		Out:        config.Output,
		CellWidth:  config.CellWidth,
		TimeLayout: config.TimeLayout,
		Color:      config.Color,
	})

	retriever := source.NewRetriever(dataLoader.Source(), config.Core.MaxRetries, config.Core.RetryTimeout)
	engine, err := scroll.NewEngine(config.Core, nil, retriever, termDisplay)
	if err != nil {
		dataLoader.Close()
		return nil, fmt.Errorf("failed to create scroll engine: %w", err)
	}

	return &Orchestrator{
		config:       config,
		dataLoader:   dataLoader,
		engine:       engine,
		stateManager: NewStateManager(),
		display:      termDisplay,
	}, nil
}

// Engine exposes the scroll engine
func (o *Orchestrator) Engine() *scroll.Engine {
	return o.engine
}

// Run starts the orchestrator main loop
func (o *Orchestrator) Run(ctx context.Context) error {
	util.LogInfo("Starting Heat Map Monitor...")

	defer o.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := util.InitializeTimeProvider(o.config.Timezone); err != nil {
		return fmt.Errorf("failed to initialize timezone: %w", err)
	}

	// Phase 1: Initialize keyboard
	if o.config.Input != nil {
		o.keyboard = interaction.NewKeyboardReaderFrom(o.config.Input)
	} else {
		keyboard, err := interaction.NewKeyboardReader()
		if err != nil {
			return fmt.Errorf("failed to initialize keyboard: %w", err)
		}
		o.keyboard = keyboard
	}
	defer o.keyboard.Close()

	o.display.EnterAlternateScreen()
	defer o.display.ExitAlternateScreen()

	// Phase 2: Fetch the first batch in the background so keys stay responsive
	o.stateManager.SetStatusMessage("Loading data...")
	o.updateDisplay()
	o.preloadDone = make(chan struct{})
	go o.preload(ctx)

	// Phase 3: Start scrolling
	o.engine.Start(o.config.Core.TickInterval)

	uiTicker := time.NewTicker(o.config.uiPeriod())
	defer uiTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			util.LogInfo("Shutting down Heat Map Monitor...")
			return nil

		case <-uiTicker.C:
			o.updateDisplay()

		case keyEvent, ok := <-o.keyboard.Events():
			if !ok {
				util.LogInfo("Input closed, shutting down")
				return nil
			}
			if o.handleKeyboard(keyEvent) {
				return nil
			}
			o.updateDisplay()
		}
	}
}

func (o *Orchestrator) preload(ctx context.Context) {
	defer close(o.preloadDone)

	err := o.engine.EnsureData(ctx)
	switch {
	case err == nil:
		o.stateManager.SetStatusMessage("")
	case errors.Is(err, context.Canceled), errors.Is(err, source.ErrPollCanceled):
	default:
		util.LogWarnf("Initial load: %v", err)
		o.stateManager.SetStatusMessage("No data yet: " + err.Error())
	}
}

// updateDisplay redraws the status part of the frame
func (o *Orchestrator) updateDisplay() {
	o.display.SetStatus(display.Status{
		Snapshot:    o.engine.Snapshot(),
		Interaction: o.stateManager.GetInteractionState(),
		Source:      o.dataLoader.Label(),
	})
}

// handleKeyboard applies one key press and reports whether to exit
func (o *Orchestrator) handleKeyboard(event interaction.KeyEvent) bool {
	state := o.stateManager.GetInteractionState()
	action := interaction.Resolve(event, state.ShowHelp)
	if action != interaction.ActionNone {
		util.LogDebugf("Key %q -> %s", event.Key, action)
	}
	return o.handleAction(action)
}

func (o *Orchestrator) handleAction(action interaction.Action) bool {
	switch action {
	case interaction.ActionQuit:
		return true

	case interaction.ActionTogglePause:
		switch o.engine.Toggle() {
		case model.StatePaused:
			o.stateManager.SetStatusMessage("Paused")
		case model.StatePlaying:
			o.stateManager.SetStatusMessage("Playing")
		}

	case interaction.ActionFaster:
		interval := o.engine.SetSpeed(o.config.SpeedStep)
		o.stateManager.SetStatusMessage("Speed: " + util.FormatInterval(interval) + " per column")

	case interaction.ActionSlower:
		interval := o.engine.SetSpeed(-o.config.SpeedStep)
		o.stateManager.SetStatusMessage("Speed: " + util.FormatInterval(interval) + " per column")

	case interaction.ActionStepBack:
		if !o.engine.StepBack() {
			o.stateManager.SetStatusMessage("Already at the oldest cached column")
		} else {
			o.stateManager.SetStatusMessage("")
		}

	case interaction.ActionStepForward:
		if !o.engine.StepForward() {
			o.stateManager.SetStatusMessage("No unrevealed columns")
		} else {
			o.stateManager.SetStatusMessage("")
		}

	case interaction.ActionRowUp, interaction.ActionRowDown:
		o.stateManager.UpdateInteractionState(func(s *model.InteractionState) {
			s.SelectedRow = interaction.MoveRow(s.SelectedRow, o.config.Core.Clusters, action == interaction.ActionRowUp)
		})

	case interaction.ActionReset:
		o.engine.Reset()
		o.stateManager.SetStatusMessage("Cache cleared")
		util.LogInfo("Cache and window reset by user")

	case interaction.ActionSnapshot:
		o.saveSnapshot()

	case interaction.ActionToggleHelp:
		o.stateManager.UpdateInteractionState(func(s *model.InteractionState) {
			s.ShowHelp = !s.ShowHelp
		})

	case interaction.ActionCloseHelp:
		o.stateManager.UpdateInteractionState(func(s *model.InteractionState) {
			s.ShowHelp = false
		})
	}
	return false
}

// saveSnapshot writes the visible window as a PNG into the snapshot directory
func (o *Orchestrator) saveSnapshot() {
	columns := o.engine.Snapshot().Window
	if err := os.MkdirAll(o.config.SnapshotDir, 0755); err != nil {
		util.LogErrorf("Failed to create snapshot directory: %v", err)
		o.stateManager.SetStatusMessage("Snapshot failed: " + err.Error())
		return
	}

	path := display.SnapshotName(o.config.SnapshotDir, time.Now().In(util.GetTimeProvider().Location()))
	err := display.SaveSnapshot(path, columns, display.SnapshotConfig{TimeLayout: o.config.TimeLayout})
	switch {
	case errors.Is(err, display.ErrNothingToPlot):
		o.stateManager.SetStatusMessage("Nothing to snapshot yet")
	case err != nil:
		util.LogError(err.Error())
		o.stateManager.SetStatusMessage("Snapshot failed: " + err.Error())
	default:
		n := o.stateManager.RecordSnapshot()
		o.stateManager.SetStatusMessage(fmt.Sprintf("Saved %s (%d this session)", path, n))
	}
}

// Close stops the engine and releases the data source
func (o *Orchestrator) Close() error {
	o.engine.Stop()
	if o.preloadDone != nil {
		<-o.preloadDone
	}
	if err := o.dataLoader.Close(); err != nil {
		return fmt.Errorf("failed to close data source: %w", err)
	}
	return nil
}
