package input

import (
	"github.com/gdamore/tcell/v2"
)

// Action is an engine-level command bound to a key
type Action uint8

const (
	ActionNone Action = iota
	ActionQuit
	ActionTogglePause
	ActionCycleThreading
)

func (a Action) String() string {
	switch a {
	case ActionQuit:
		return "quit"
	case ActionTogglePause:
		return "pause"
	case ActionCycleThreading:
		return "threading"
	default:
		return "none"
	}
}

// special-key bindings; rune bindings live in runeActions
var keyActions = map[tcell.Key]Action{
	tcell.KeyEscape: ActionQuit,
	tcell.KeyCtrlC:  ActionQuit,
}

var runeActions = map[rune]Action{
	'q': ActionQuit,
	'p': ActionTogglePause,
	't': ActionCycleThreading,
}

// lookup returns the engine action for ev, ActionNone for game keys
func lookup(ev *tcell.EventKey) Action {
	if ev.Key() == tcell.KeyRune {
		return runeActions[ev.Rune()]
	}
	return keyActions[ev.Key()]
}

// keyName renders a key for game consumption: the rune itself or tcell's key name
func keyName(ev *tcell.EventKey) string {
	if ev.Key() == tcell.KeyRune {
		return string(ev.Rune())
	}
	if name, ok := tcell.KeyNames[ev.Key()]; ok {
		return name
	}
	return ev.Name()
}
