package play

import (
	"sync"

	"github.com/penwyp/go-heatmap-monitor/internal/core/model"
)

// StateManager manages the interaction state in a thread-safe manner
type StateManager struct {
	mu sync.RWMutex

	interactionState model.InteractionState
	snapshots        int
}

// NewStateManager creates a new StateManager with no row selected
func NewStateManager() *StateManager {
	return &StateManager{
		interactionState: model.InteractionState{SelectedRow: -1},
	}
}

// GetInteractionState returns a copy of the current interaction state
func (sm *StateManager) GetInteractionState() model.InteractionState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.interactionState
}

// UpdateInteractionState updates specific fields of interaction state
func (sm *StateManager) UpdateInteractionState(updateFunc func(*model.InteractionState)) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	updateFunc(&sm.interactionState)
}

// SetStatusMessage replaces the footer message
func (sm *StateManager) SetStatusMessage(msg string) {
	sm.UpdateInteractionState(func(s *model.InteractionState) {
		s.StatusMessage = msg
	})
}

// RecordSnapshot counts a saved snapshot and returns the new total
func (sm *StateManager) RecordSnapshot() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.snapshots++
	return sm.snapshots
}

// Snapshots returns the number of snapshots saved this session
func (sm *StateManager) Snapshots() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.snapshots
}
