package cmd

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/mj1618/quadview/internal/layout"
	"github.com/mj1618/quadview/internal/model"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// DrawLayout renders the controller window and its tiles. The image is
// sized to the bounds; the toolbar strip is shaded and each tile is
// outlined and labelled with its slot index and size.
func DrawLayout(bounds model.ParentBounds, g layout.Geometry, rects [model.ChildCount]model.Rect) (*image.RGBA, error) {
	if bounds.Width <= 0 || bounds.Height <= 0 {
		return nil, fmt.Errorf("cannot draw empty bounds %dx%d", bounds.Width, bounds.Height)
	}
	img := image.NewRGBA(image.Rect(0, 0, bounds.Width, bounds.Height))

	background := color.RGBA{R: 30, G: 30, B: 30, A: 255}
	toolbar := color.RGBA{R: 60, G: 60, B: 60, A: 255}
	tileFill := color.RGBA{R: 40, G: 80, B: 140, A: 255}
	mainFill := color.RGBA{R: 60, G: 120, B: 190, A: 255}
	boxColor := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	textColor := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	outlineColor := color.RGBA{R: 0, G: 0, B: 0, A: 200}

	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)
	bar := image.Rect(0, 0, bounds.Width, g.ToolbarHeight).Intersect(img.Bounds())
	draw.Draw(img, bar, image.NewUniform(toolbar), image.Point{}, draw.Src)

	for i, r := range rects {
		// Tiles are in screen coordinates; the image origin is the
		// controller's top-left.
		x, y := r.Left-bounds.Left, r.Top-bounds.Top
		fill := tileFill
		if i == 0 {
			fill = mainFill
		}
		cell := image.Rect(x, y, x+r.Width, y+r.Height).Intersect(img.Bounds())
		draw.Draw(img, cell, image.NewUniform(fill), image.Point{}, draw.Src)
		drawRectangle(img, x, y, x+r.Width, y+r.Height, boxColor)

		label := fmt.Sprintf("[%d] %dx%d", i, r.Width, r.Height)
		drawTextWithOutline(img, label, x+r.Width/2, y+r.Height/2, textColor, outlineColor)
	}
	return img, nil
}

// isWithinBounds checks if a point is within the image bounds
func isWithinBounds(bounds image.Rectangle, x, y int) bool {
	return x >= bounds.Min.X && x < bounds.Max.X && y >= bounds.Min.Y && y < bounds.Max.Y
}

// drawRectangle draws a rectangle outline on the image
func drawRectangle(img *image.RGBA, x1, y1, x2, y2 int, c color.Color) {
	bounds := img.Bounds()

	if x1 < bounds.Min.X {
		x1 = bounds.Min.X
	}
	if y1 < bounds.Min.Y {
		y1 = bounds.Min.Y
	}
	if x2 > bounds.Max.X {
		x2 = bounds.Max.X
	}
	if y2 > bounds.Max.Y {
		y2 = bounds.Max.Y
	}
	if x2 <= x1 || y2 <= y1 {
		return
	}

	for x := x1; x < x2; x++ {
		if isWithinBounds(bounds, x, y1) {
			img.Set(x, y1, c)
		}
		if isWithinBounds(bounds, x, y2-1) {
			img.Set(x, y2-1, c)
		}
	}
	for y := y1; y < y2; y++ {
		if isWithinBounds(bounds, x1, y) {
			img.Set(x1, y, c)
		}
		if isWithinBounds(bounds, x2-1, y) {
			img.Set(x2-1, y, c)
		}
	}
}

// drawTextWithOutline draws text centered on (x, y) with a one pixel
// outline.
func drawTextWithOutline(img *image.RGBA, text string, x, y int, textColor, outlineColor color.Color) {
	// basicfont.Face7x13 glyphs are 7 pixels wide and 13 high.
	textWidth := len(text) * 7
	textHeight := 13

	offsetX := x - textWidth/2
	offsetY := y + textHeight/2

	drawAt := func(dx, dy int, c color.Color) {
		d := &font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(c),
			Face: basicfont.Face7x13,
			Dot: fixed.Point26_6{
				X: fixed.I(offsetX + dx),
				Y: fixed.I(offsetY + dy),
			},
		}
		d.DrawString(text)
	}
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx != 0 || dy != 0 {
				drawAt(dx, dy, outlineColor)
			}
		}
	}
	drawAt(0, 0, textColor)
}
