package model

import (
	"fmt"
	"strings"
)

// LayoutMode selects how the four children are arranged.
type LayoutMode string

const (
	// TwoByTwo is an even 2x2 grid.
	TwoByTwo LayoutMode = "2x2"
	// OnePlusThree is one large main cell plus three stacked side cells.
	OnePlusThree LayoutMode = "1+3"
)

// DefaultLayout is used when nothing has been persisted yet.
const DefaultLayout = TwoByTwo

// layoutAliases maps accepted spellings to their canonical mode.
var layoutAliases = map[string]LayoutMode{
	"2x2":            TwoByTwo,
	"grid":           TwoByTwo,
	"two-by-two":     TwoByTwo,
	"1+3":            OnePlusThree,
	"1-3":            OnePlusThree,
	"main":           OnePlusThree,
	"one-plus-three": OnePlusThree,
}

// ParseLayoutMode converts a user-supplied string to a LayoutMode.
func ParseLayoutMode(s string) (LayoutMode, error) {
	if m, ok := layoutAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return m, nil
	}
	return DefaultLayout, fmt.Errorf("unknown layout: %q (expected 2x2 or 1+3)", s)
}

// Valid reports whether m is one of the known modes.
func (m LayoutMode) Valid() bool {
	return m == TwoByTwo || m == OnePlusThree
}
