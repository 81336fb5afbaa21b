// Package layout computes the four child rectangles for a parent window.
//
// Every dimension is floored. Pixels left over from integer division are
// not redistributed, so the right column and bottom row may end a few
// pixels short of the usable area.
package layout

import (
	"math"

	"github.com/mj1618/quadview/internal/model"
)

// MainColumnRatio is the share of the usable width given to the main cell
// in the OnePlusThree layout.
const MainColumnRatio = 0.65

// Geometry holds the fixed chrome dimensions subtracted from the parent.
type Geometry struct {
	ToolbarHeight int // controller toolbar above the tiled area
	Gap           int // spacing between cells and around the edge
}

// DefaultGeometry matches the controller toolbar.
func DefaultGeometry() Geometry {
	return Geometry{ToolbarHeight: 50, Gap: 8}
}

// Usable returns the area available to children: the parent inset by one
// gap on each side, with the toolbar removed from the top. Width and height
// subtract three gaps (two edges plus the one between columns or rows).
func (g Geometry) Usable(b model.ParentBounds) model.Rect {
	return model.Rect{
		Left:   b.Left + g.Gap,
		Top:    b.Top + g.ToolbarHeight + g.Gap,
		Width:  b.Width - g.Gap*3,
		Height: b.Height - g.ToolbarHeight - g.Gap*3,
	}
}

// Compute returns the target rectangle for each child slot. Index 0 is the
// main cell in both modes. Any mode other than OnePlusThree is laid out as
// TwoByTwo.
func Compute(mode model.LayoutMode, b model.ParentBounds, g Geometry) [model.ChildCount]model.Rect {
	u := g.Usable(b)
	if mode == model.OnePlusThree {
		return onePlusThree(u, g.Gap)
	}
	return twoByTwo(u, g.Gap)
}

func twoByTwo(u model.Rect, gap int) [model.ChildCount]model.Rect {
	w := floorDiv(u.Width, 2)
	h := floorDiv(u.Height, 2)
	right := u.Left + w + gap
	bottom := u.Top + h + gap
	return [model.ChildCount]model.Rect{
		{Left: u.Left, Top: u.Top, Width: w, Height: h},
		{Left: right, Top: u.Top, Width: w, Height: h},
		{Left: u.Left, Top: bottom, Width: w, Height: h},
		{Left: right, Top: bottom, Width: w, Height: h},
	}
}

func onePlusThree(u model.Rect, gap int) [model.ChildCount]model.Rect {
	mainW := int(math.Floor(float64(u.Width) * MainColumnRatio))
	sideW := u.Width - mainW
	sideH := floorDiv(u.Height-gap*2, 3)
	sideX := u.Left + mainW + gap

	// A single row has no row separator, so the main cell reclaims the two
	// gaps the grid would have reserved.
	return [model.ChildCount]model.Rect{
		{Left: u.Left, Top: u.Top, Width: mainW, Height: u.Height + gap*2},
		{Left: sideX, Top: u.Top, Width: sideW, Height: sideH},
		{Left: sideX, Top: u.Top + sideH + gap, Width: sideW, Height: sideH},
		{Left: sideX, Top: u.Top + (sideH+gap)*2, Width: sideW, Height: sideH},
	}
}

// floorDiv divides rounding toward negative infinity, unlike Go's / which
// truncates toward zero.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
