package interaction

// Action is what a key press asks the player to do
type Action int

const (
	ActionNone Action = iota
	ActionQuit
	ActionTogglePause
	ActionFaster
	ActionSlower
	ActionStepBack
	ActionStepForward
	ActionRowUp
	ActionRowDown
	ActionReset
	ActionSnapshot
	ActionToggleHelp
	ActionCloseHelp
)

func (a Action) String() string {
	switch a {
	case ActionQuit:
		return "quit"
	case ActionTogglePause:
		return "toggle-pause"
	case ActionFaster:
		return "faster"
	case ActionSlower:
		return "slower"
	case ActionStepBack:
		return "step-back"
	case ActionStepForward:
		return "step-forward"
	case ActionRowUp:
		return "row-up"
	case ActionRowDown:
		return "row-down"
	case ActionReset:
		return "reset"
	case ActionSnapshot:
		return "snapshot"
	case ActionToggleHelp:
		return "toggle-help"
	case ActionCloseHelp:
		return "close-help"
	default:
		return "none"
	}
}

// Resolve maps a key event to an action. ESC closes the help screen when it is open
// and quits otherwise.
func Resolve(event KeyEvent, helpOpen bool) Action {
	switch event.Type {
	case KeyEscape:
		if helpOpen {
			return ActionCloseHelp
		}
		return ActionQuit
	case KeyLeft:
		return ActionStepBack
	case KeyRight:
		return ActionStepForward
	case KeyUp:
		return ActionRowUp
	case KeyDown:
		return ActionRowDown
	}

	switch event.Key {
	case 3, 'q', 'Q':
		return ActionQuit
	case ' ', 'p', 'P':
		return ActionTogglePause
	case '+', '=':
		return ActionFaster
	case '-', '_':
		return ActionSlower
	case 'h':
		return ActionStepBack
	case 'l':
		return ActionStepForward
	case 'k':
		return ActionRowUp
	case 'j':
		return ActionRowDown
	case 'r', 'R':
		return ActionReset
	case 's', 'S':
		return ActionSnapshot
	case '?':
		return ActionToggleHelp
	}
	return ActionNone
}

// MoveRow moves a selected cluster row within [-1, rows-1]; -1 means no selection.
// Rows are drawn highest first, so up selects a higher cluster.
func MoveRow(selected, rows int, up bool) int {
	if rows <= 0 {
		return -1
	}
	if up {
		selected++
	} else {
		selected--
	}
	if selected >= rows {
		return rows - 1
	}
	if selected < -1 {
		return -1
	}
	return selected
}
