// Package sensor measures the controller window's bounds.
package sensor

import (
	"context"
	"math"
	"os"

	"github.com/charmbracelet/log"
	"github.com/mj1618/quadview/internal/model"
	"github.com/mj1618/quadview/internal/platform"
)

// DefaultMinSize is the smallest width or height worth tiling against.
// Readings at or below it are taken during minimize/restore transitions.
const DefaultMinSize = 100

// Source reports the raw geometry of the controller window.
type Source interface {
	ReadGeometry(ctx context.Context) (platform.SurfaceGeometry, error)
}

// Sensor converts raw surface readings into ParentBounds.
type Sensor struct {
	source  Source
	minSize int
	logger  *log.Logger
}

// New returns a Sensor reading from source. A minSize <= 0 selects
// DefaultMinSize.
func New(source Source, minSize int, logger *log.Logger) *Sensor {
	if minSize <= 0 {
		minSize = DefaultMinSize
	}
	if logger == nil {
		logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "sensor"})
	}
	return &Sensor{source: source, minSize: minSize, logger: logger}
}

// Measure returns the content area of the controller window in screen
// coordinates. ok is false when the reading cannot be used.
func (s *Sensor) Measure(ctx context.Context) (b model.ParentBounds, ok bool) {
	g, err := s.source.ReadGeometry(ctx)
	if err != nil {
		s.logger.Debug("geometry read failed", "err", err)
		return model.ParentBounds{}, false
	}
	b, ok = Bounds(g, s.minSize)
	if !ok {
		s.logger.Debug("unusable geometry", "reading", g)
	}
	return b, ok
}

// Bounds derives ParentBounds from a raw reading. Borders are assumed
// symmetric left and right, so the horizontal inset is half the width
// difference; all vertical chrome is assumed to sit above the content.
func Bounds(g platform.SurfaceGeometry, minSize int) (model.ParentBounds, bool) {
	insetX := math.Max(0, (g.OuterWidth-g.InnerWidth)/2)
	insetY := math.Max(0, g.OuterHeight-g.InnerHeight)

	left := g.Left + insetX
	top := g.Top + insetY
	width := g.OuterWidth - insetX*2
	height := g.OuterHeight - insetY

	for _, v := range []float64{left, top, width, height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return model.ParentBounds{}, false
		}
	}

	b := model.ParentBounds{
		Left:   int(math.Round(left)),
		Top:    int(math.Round(top)),
		Width:  int(math.Round(width)),
		Height: int(math.Round(height)),
	}
	if b.Width <= minSize || b.Height <= minSize {
		return model.ParentBounds{}, false
	}
	return b, true
}
