package player

import "github.com/gdamore/tcell/v2"

// Action represents a viewer-requested player action.
type Action uint8

const (
	ActionNone Action = iota
	ActionPlay
	ActionStop
	ActionNext
	ActionQuit
)

func (a Action) String() string {
	switch a {
	case ActionPlay:
		return "play"
	case ActionStop:
		return "stop"
	case ActionNext:
		return "next"
	case ActionQuit:
		return "quit"
	}
	return "none"
}

// keyToAction maps a tcell key event to a player action.
func keyToAction(ev *tcell.EventKey) Action {
	// Named keys.
	switch ev.Key() {
	case tcell.KeyEnter:
		return ActionPlay
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return ActionQuit
	case tcell.KeyRight, tcell.KeyTab:
		return ActionNext
	}

	// Rune keys.
	switch ev.Rune() {
	case ' ', 'p', 'P':
		return ActionPlay
	case 's', 'S':
		return ActionStop
	case 'n', 'N':
		return ActionNext
	case 'q', 'Q':
		return ActionQuit
	}
	return ActionNone
}
