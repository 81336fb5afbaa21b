package model

// Handle is the opaque identifier the window system issues for a window.
type Handle int

// Rect is a screen rectangle in integer pixels.
type Rect struct {
	Left   int `yaml:"left"   json:"left"`
	Top    int `yaml:"top"    json:"top"`
	Width  int `yaml:"width"  json:"width"`
	Height int `yaml:"height" json:"height"`
}

// IsZero reports whether r has never been set.
func (r Rect) IsZero() bool {
	return r == Rect{}
}

// ParentBounds is the measured geometry of the controller window that the
// children are tiled against.
type ParentBounds = Rect

// Window represents a window as reported by the window system.
type Window struct {
	ID      Handle `yaml:"id"                json:"id"`
	Type    string `yaml:"type,omitempty"    json:"type,omitempty"`
	URL     string `yaml:"url,omitempty"     json:"url,omitempty"`
	Bounds  Rect   `yaml:"bounds"            json:"bounds"`
	Focused bool   `yaml:"focused,omitempty" json:"focused,omitempty"`
}
