package ui

import (
	"github.com/gdamore/tcell/v2"
)

// KeyAction represents an action that can be triggered by keybindings
type KeyAction struct {
	name    string
	handler func()
}

// KeyBindingManager manages all keybindings and dispatches events
type KeyBindingManager struct {
	bindings  map[tcell.Key]KeyAction // special key -> action mapping
	runeMap   map[rune]KeyAction      // rune -> action mapping
	sequences map[string]KeyAction    // two-key sequences like 'gg'
	prefixes  map[rune]bool
	pending   string // pending key sequence
}

// NewKeyBindingManager creates a new key binding manager
func NewKeyBindingManager() *KeyBindingManager {
	return &KeyBindingManager{
		bindings:  make(map[tcell.Key]KeyAction),
		runeMap:   make(map[rune]KeyAction),
		sequences: make(map[string]KeyAction),
		prefixes:  make(map[rune]bool),
	}
}

// RegisterKeyBinding registers a single key binding
func (km *KeyBindingManager) RegisterKeyBinding(action KeyAction, keys []tcell.Key, runes []rune) {
	for _, key := range keys {
		km.bindings[key] = action
	}
	for _, r := range runes {
		km.runeMap[r] = action
	}
}

// RegisterSequence binds a two-rune sequence; its first rune starts a pending sequence
func (km *KeyBindingManager) RegisterSequence(action KeyAction, seq string) {
	runes := []rune(seq)
	if len(runes) != 2 {
		return
	}
	km.sequences[seq] = action
	km.prefixes[runes[0]] = true
}

// HandleKey handles a keyboard event and returns true if it was consumed
func (km *KeyBindingManager) HandleKey(event *tcell.EventKey) bool {
	// Check for special keys first
	if event.Key() != tcell.KeyRune {
		km.pending = "" // reset pending sequence on non-rune key
		if action, ok := km.bindings[event.Key()]; ok {
			action.handler()
			return true
		}
		return false
	}

	r := event.Rune()

	if km.pending != "" {
		seq := km.pending + string(r)
		km.pending = ""
		if action, ok := km.sequences[seq]; ok {
			action.handler()
			return true
		}
		// Not a complete sequence, try current rune as standalone
		return km.handleRune(r)
	}

	if km.prefixes[r] {
		km.pending = string(r)
		return true
	}

	return km.handleRune(r)
}

func (km *KeyBindingManager) handleRune(r rune) bool {
	if action, ok := km.runeMap[r]; ok {
		action.handler()
		return true
	}
	return false
}

// ResetPending resets the pending key sequence
func (km *KeyBindingManager) ResetPending() {
	km.pending = ""
}

// Pending returns the keys typed so far of an unfinished sequence
func (km *KeyBindingManager) Pending() string {
	return km.pending
}
