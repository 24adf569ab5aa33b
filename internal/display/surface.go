// Package display owns the pixel buffer of the LED matrix.
//
// Only the render loop draws. Other components receive the Surface and issue
// primitives through it; nothing keeps a second mutable copy of the buffer.
package display

import (
	"image"
	"image/color"

	"github.com/i474232898/weather-matrix/internal/weather"
)

// SizeClass picks the font face used by DrawText.
type SizeClass int

const (
	SizeSmall SizeClass = iota
	SizeLarge
)

// Icon edge lengths in pixels.
const (
	IconLarge  = 16
	IconMedium = 12
	IconSmall  = 8
)

// Palette used by the weather views.
var (
	ColorText      = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	ColorHighlight = color.RGBA{R: 255, G: 200, B: 0, A: 255}
	ColorSeparator = color.RGBA{R: 64, G: 64, B: 64, A: 255}
	ColorTempHigh  = color.RGBA{R: 255, G: 100, B: 100, A: 255}
	ColorTempLow   = color.RGBA{R: 100, G: 100, B: 255, A: 255}
	ColorBlack     = color.RGBA{A: 255}
)

// Surface accepts drawing primitives and a final Present.
// Coordinates are pixel offsets; text is anchored at its top-left corner.
type Surface interface {
	Bounds() image.Rectangle
	Clear()
	DrawText(text string, x, y int, c color.Color, size SizeClass)
	TextWidth(text string, size SizeClass) int
	// TextHeight is the distance from the anchor to the baseline.
	TextHeight(size SizeClass) int
	DrawIcon(cond weather.Condition, x, y, size int)
	DrawLine(p1, p2 image.Point, c color.Color)
	Present() error
}

// Presenter pushes a finished frame to the physical (or virtual) panel.
type Presenter interface {
	Present(frame *image.RGBA) error
}

// Geometry is the panel layout: rows x (cols * chain) pixels.
type Geometry struct {
	Rows        int
	Cols        int
	ChainLength int
	// Brightness in percent, 1..100.
	Brightness int
}

func (g Geometry) Width() int {
	chain := g.ChainLength
	if chain < 1 {
		chain = 1
	}
	return g.Cols * chain
}

func (g Geometry) Height() int {
	return g.Rows
}
