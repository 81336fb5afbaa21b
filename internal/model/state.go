package model

// State is the persisted controller record. It is always written as one
// unit so readers never observe a half-updated child set.
type State struct {
	Layout             LayoutMode `yaml:"layout,omitempty"             json:"layout,omitempty"`
	ChildIDs           ChildSet   `yaml:"childIds,flow"                json:"childIds"`
	ControllerWindowID *Handle    `yaml:"controllerWindowId,omitempty" json:"controllerWindowId,omitempty"`
}

// LayoutOrDefault returns the persisted layout, or DefaultLayout when the
// stored value is missing or unknown.
func (s State) LayoutOrDefault() LayoutMode {
	if s.Layout.Valid() {
		return s.Layout
	}
	return DefaultLayout
}
