package platform

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mj1618/quadview/internal/model"
)

// WindowType is the window class requested at creation time.
type WindowType string

const (
	WindowPopup  WindowType = "popup"
	WindowNormal WindowType = "normal"
)

// CreateOptions describes a new child window.
type CreateOptions struct {
	URL    string
	Width  int
	Height int
	Type   WindowType
}

// Update is a partial window change. Nil fields are left untouched.
type Update struct {
	Rect    *model.Rect
	Focused *bool
}

// MoveTo returns an Update that applies r.
func MoveTo(r model.Rect) Update {
	return Update{Rect: &r}
}

// Focus returns an Update that focuses or defocuses a window.
func Focus(focused bool) Update {
	return Update{Focused: &focused}
}

// SurfaceGeometry is a raw reading of the controller window. Outer sizes
// include the window manager's chrome; inner sizes are the content area.
type SurfaceGeometry struct {
	Left        float64 `json:"left"`
	Top         float64 `json:"top"`
	OuterWidth  float64 `json:"outerWidth"`
	OuterHeight float64 `json:"outerHeight"`
	InnerWidth  float64 `json:"innerWidth"`
	InnerHeight float64 `json:"innerHeight"`
}

// EventKind identifies a window system notification.
type EventKind int

const (
	// EventWindowRemoved fires when any window closes.
	EventWindowRemoved EventKind = iota
	// EventWindowFocused fires when a window gains focus.
	EventWindowFocused
	// EventSurfaceClosed fires when the controller surface itself closes.
	EventSurfaceClosed
)

func (k EventKind) String() string {
	switch k {
	case EventWindowRemoved:
		return "window-removed"
	case EventWindowFocused:
		return "window-focused"
	case EventSurfaceClosed:
		return "surface-closed"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is a window system notification.
type Event struct {
	Kind   EventKind
	Window model.Handle
}

// ControlAction is a user action issued from the controller toolbar.
type ControlAction struct {
	Name string // retile, reshow, reopen, reset, reload, layout, close
	Arg  string // layout mode for "layout"
}

// Key names a field of the persisted record.
type Key string

const (
	KeyLayout             Key = "layout"
	KeyChildIDs           Key = "childIds"
	KeyControllerWindowID Key = "controllerWindowId"
)

// Patch is a partial record write. Nil fields are left untouched.
type Patch struct {
	Layout             *model.LayoutMode
	ChildIDs           *model.ChildSet
	ControllerWindowID *model.Handle
}

// Apply writes the patch's fields into s.
func (p Patch) Apply(s *model.State) {
	if p.Layout != nil {
		s.Layout = *p.Layout
	}
	if p.ChildIDs != nil {
		s.ChildIDs = p.ChildIDs.Clone()
		if s.ChildIDs == nil {
			s.ChildIDs = model.ChildSet{}
		}
	}
	if p.ControllerWindowID != nil {
		id := *p.ControllerWindowID
		s.ControllerWindowID = &id
	}
}

// SetChildren returns a Patch that replaces the child set.
func SetChildren(set model.ChildSet) Patch {
	return Patch{ChildIDs: &set}
}

// SetLayout returns a Patch that replaces the layout.
func SetLayout(m model.LayoutMode) Patch {
	return Patch{Layout: &m}
}

// Clear removes keys from s.
func Clear(s *model.State, keys ...Key) {
	for _, k := range keys {
		switch k {
		case KeyLayout:
			s.Layout = ""
		case KeyChildIDs:
			s.ChildIDs = nil
		case KeyControllerWindowID:
			s.ControllerWindowID = nil
		}
	}
}

// Diff returns the keys whose values differ between a and b.
func Diff(a, b model.State) []Key {
	var keys []Key
	if a.Layout != b.Layout {
		keys = append(keys, KeyLayout)
	}
	if !sameChildren(a.ChildIDs, b.ChildIDs) {
		keys = append(keys, KeyChildIDs)
	}
	if !sameHandle(a.ControllerWindowID, b.ControllerWindowID) {
		keys = append(keys, KeyControllerWindowID)
	}
	return keys
}

// Change reports keys rewritten by another writer.
type Change struct {
	Keys []Key
}

// Has reports whether k is among the changed keys.
func (c Change) Has(k Key) bool {
	for _, key := range c.Keys {
		if key == k {
			return true
		}
	}
	return false
}

func sameChildren(a, b model.ChildSet) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sameHandle(a, b *model.Handle) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// ProviderOptions configures a backend.
type ProviderOptions struct {
	TargetURL string
	Headless  bool
	Channel   string           // browser channel, e.g. "chrome"; empty for bundled Chromium
	Toolbar   int              // toolbar height in CSS pixels
	Layout    model.LayoutMode // selected in the toolbar until the controller reports its own
}

// ParseBounds parses a "left,top,width,height" string into a Rect.
func ParseBounds(s string) (model.Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return model.Rect{}, fmt.Errorf("invalid bounds %q: expected left,top,width,height", s)
	}
	vals := make([]int, 4)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return model.Rect{}, fmt.Errorf("invalid bounds %q: %w", s, err)
		}
		vals[i] = v
	}
	return model.Rect{Left: vals[0], Top: vals[1], Width: vals[2], Height: vals[3]}, nil
}
