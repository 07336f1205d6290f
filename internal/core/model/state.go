package model

// PlayState is the scroll engine state.
type PlayState int

const (
	StateStopped PlayState = iota
	StatePlaying
	StatePaused
)

func (s PlayState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// InteractionState represents the current UI interaction state
type InteractionState struct {
	ShowHelp      bool
	StatusMessage string // Status message to display
	SelectedRow   int    // Cluster row highlighted for inspection, -1 for none
}
