package play

import (
	"github.com/penwyp/go-heatmap-monitor/internal/core/model"
	"github.com/penwyp/go-heatmap-monitor/internal/presentation/display"
	"github.com/penwyp/go-heatmap-monitor/internal/presentation/interaction"
)

// DisplayController handles terminal display operations
type DisplayController interface {
	EnterAlternateScreen()
	ExitAlternateScreen()
	SetStatus(status display.Status)
	// Window returns the columns currently drawn
	Window() []*model.Column
}

// InputHandler processes keyboard input events
type InputHandler interface {
	// Events returns a channel of keyboard events
	Events() <-chan interaction.KeyEvent
	// Close cleans up input handler resources
	Close() error
}
