// Package chrome models the page chrome (header, drawer, search overlay) as
// an explicit finite-state machine: a tagged state, a pure transition
// function and a post-transition invariant pass. The scroll-driven header
// auto-hide is a small direction-accumulating tracker layered on top.
package chrome

// Overlay enumerates the mutually exclusive full-screen overlays.
type Overlay string

const (
	OverlayNone   Overlay = "none"
	OverlayDrawer Overlay = "drawer"
	OverlaySearch Overlay = "search"
)

// InputMode tracks whether the user is navigating by pointer or keyboard.
// Keyboard users always keep the header visible.
type InputMode string

const (
	InputPointer  InputMode = "pointer"
	InputKeyboard InputMode = "keyboard"
)

// State is the complete chrome state.
type State struct {
	Overlay      Overlay   `json:"overlay"`
	InputMode    InputMode `json:"inputMode"`
	HeaderHidden bool      `json:"headerHidden"`
}

// InitialState returns the mount-time chrome state.
func InitialState() State {
	return State{Overlay: OverlayNone, InputMode: InputPointer, HeaderHidden: false}
}

// DrawerOpen reports whether the navigation drawer overlay is up.
func (s State) DrawerOpen() bool { return s.Overlay == OverlayDrawer }

// SearchOpen reports whether the search overlay is up.
func (s State) SearchOpen() bool { return s.Overlay == OverlaySearch }

// ScrollLocked reports whether page scrolling should be locked; any open
// overlay locks it.
func (s State) ScrollLocked() bool { return s.Overlay != OverlayNone }

// Action is one chrome transition input.
type Action string

const (
	ActionOpenDrawer    Action = "OPEN_DRAWER"
	ActionCloseDrawer   Action = "CLOSE_DRAWER"
	ActionToggleDrawer  Action = "TOGGLE_DRAWER"
	ActionOpenSearch    Action = "OPEN_SEARCH"
	ActionCloseSearch   Action = "CLOSE_SEARCH"
	ActionInputKeyboard Action = "INPUT_KEYBOARD"
	ActionInputPointer  Action = "INPUT_POINTER"
	ActionHeaderHide    Action = "HEADER_HIDE"
	ActionHeaderShow    Action = "HEADER_SHOW"
)

// enforceInvariants clears a hidden header whenever an overlay is open or
// the user is in keyboard mode. It runs after every transition.
func enforceInvariants(s State) State {
	if (s.Overlay != OverlayNone || s.InputMode == InputKeyboard) && s.HeaderHidden {
		s.HeaderHidden = false
	}
	return s
}

// Reduce applies one action to the state. Unknown actions leave the state
// unchanged.
func Reduce(s State, action Action) State {
	next := s

	switch action {
	case ActionOpenDrawer:
		next.Overlay = OverlayDrawer
		next.HeaderHidden = false

	case ActionCloseDrawer:
		if s.Overlay == OverlayDrawer {
			next.Overlay = OverlayNone
			next.HeaderHidden = false
		}

	case ActionToggleDrawer:
		if s.Overlay == OverlayDrawer {
			next.Overlay = OverlayNone
		} else {
			next.Overlay = OverlayDrawer
		}
		next.HeaderHidden = false

	case ActionOpenSearch:
		next.Overlay = OverlaySearch
		next.HeaderHidden = false

	case ActionCloseSearch:
		if s.Overlay == OverlaySearch {
			next.Overlay = OverlayNone
			next.HeaderHidden = false
		}

	case ActionInputKeyboard:
		next.InputMode = InputKeyboard
		next.HeaderHidden = false

	case ActionInputPointer:
		next.InputMode = InputPointer

	case ActionHeaderHide:
		if s.Overlay == OverlayNone && s.InputMode == InputPointer && !s.HeaderHidden {
			next.HeaderHidden = true
		}

	case ActionHeaderShow:
		if s.HeaderHidden {
			next.HeaderHidden = false
		}
	}

	return enforceInvariants(next)
}
