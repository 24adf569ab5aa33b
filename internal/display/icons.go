package display

import (
	"image"
	"image/color"
	"math"

	"github.com/i474232898/weather-matrix/internal/weather"
)

var (
	sunColor       = color.RGBA{R: 255, G: 200, A: 255}
	cloudColor     = color.RGBA{R: 200, G: 200, B: 200, A: 255}
	stormCloud     = color.RGBA{R: 100, G: 100, B: 100, A: 255}
	dropColor      = color.RGBA{G: 150, B: 255, A: 255}
	snowColor      = color.RGBA{R: 200, G: 200, B: 255, A: 255}
	lightningColor = color.RGBA{R: 255, G: 255, A: 255}
)

// drawIcon paints a size x size glyph for cond with its top-left at (x, y).
func drawIcon(img *image.RGBA, cond weather.Condition, x, y, size int) {
	switch cond {
	case weather.ConditionClear:
		drawSun(img, x, y, size)
	case weather.ConditionRain, weather.ConditionDrizzle:
		drawRain(img, x, y, size)
	case weather.ConditionSnow:
		drawSnow(img, x, y, size)
	case weather.ConditionStorm:
		drawStorm(img, x, y, size)
	case weather.ConditionMist:
		drawMist(img, x, y, size)
	default:
		drawCloud(img, x, y, size, cloudColor)
	}
}

func drawSun(img *image.RGBA, x, y, size int) {
	cx, cy := x+size/2, y+size/2
	r := size / 3
	fillEllipse(img, cx-r, cy-r, cx+r, cy+r, sunColor)

	ray := float64(size / 4)
	for deg := 0; deg < 360; deg += 45 {
		rad := float64(deg) * math.Pi / 180
		x0 := cx + int(math.Round(float64(r)*math.Cos(rad)))
		y0 := cy + int(math.Round(float64(r)*math.Sin(rad)))
		x1 := cx + int(math.Round((float64(r)+ray)*math.Cos(rad)))
		y1 := cy + int(math.Round((float64(r)+ray)*math.Sin(rad)))
		thickLine(img, x0, y0, x1, y1, sunColor)
	}
}

func drawCloud(img *image.RGBA, x, y, size int, c color.Color) {
	d := size / 2
	puffs := []image.Point{
		{X: x + size/4, Y: y + size/3},
		{X: x + size/2, Y: y + size/3},
		{X: x + size/3, Y: y + size/6},
	}
	for _, p := range puffs {
		fillEllipse(img, p.X, p.Y, p.X+d, p.Y+d, c)
	}
}

func drawRain(img *image.RGBA, x, y, size int) {
	drawCloud(img, x, y, size, cloudColor)
	length, spacing := size/3, size/4
	for i := 0; i < 3; i++ {
		dx := x + size/4 + i*spacing
		dy := y + size/2
		thickLine(img, dx, dy, dx-2, dy+length, dropColor)
	}
}

func drawSnow(img *image.RGBA, x, y, size int) {
	drawCloud(img, x, y, size, cloudColor)
	flake, spacing := float64(size/6), size/4
	for i := 0; i < 3; i++ {
		cx := x + size/4 + i*spacing
		cy := y + size/2
		for deg := 0; deg < 360; deg += 60 {
			rad := float64(deg) * math.Pi / 180
			line(img, cx, cy,
				cx+int(math.Round(flake*math.Cos(rad))),
				cy+int(math.Round(flake*math.Sin(rad))),
				snowColor)
		}
	}
}

func drawStorm(img *image.RGBA, x, y, size int) {
	drawCloud(img, x, y, size, stormCloud)
	bolt := []image.Point{
		{X: x + size/2, Y: y + size/3},
		{X: x + size/2 - size/4, Y: y + size/2},
		{X: x + size/2, Y: y + size/2},
		{X: x + size/2 - size/4, Y: y + size/2 + size/4},
	}
	for i := 1; i < len(bolt); i++ {
		thickLine(img, bolt[i-1].X, bolt[i-1].Y, bolt[i].X, bolt[i].Y, lightningColor)
	}
}

func drawMist(img *image.RGBA, x, y, size int) {
	wave, spacing := size/4, size/3
	for i := 0; i < 3; i++ {
		wy := y + size/3 + i*spacing
		thickLine(img, x+size/4, wy, x+size/4+size/2, wy+wave, cloudColor)
	}
}

// fillEllipse fills the ellipse inscribed in the box (x0,y0)-(x1,y1).
func fillEllipse(img *image.RGBA, x0, y0, x1, y1 int, c color.Color) {
	cx := float64(x0+x1) / 2
	cy := float64(y0+y1) / 2
	rx := float64(x1-x0) / 2
	ry := float64(y1-y0) / 2
	if rx <= 0 || ry <= 0 {
		img.Set(int(cx), int(cy), c)
		return
	}
	for py := y0; py <= y1; py++ {
		for px := x0; px <= x1; px++ {
			nx := (float64(px) - cx) / rx
			ny := (float64(py) - cy) / ry
			if nx*nx+ny*ny <= 1.0 {
				img.Set(px, py, c)
			}
		}
	}
}

func thickLine(img *image.RGBA, x0, y0, x1, y1 int, c color.Color) {
	line(img, x0, y0, x1, y1, c)
	line(img, x0+1, y0, x1+1, y1, c)
}

// line is Bresenham; out-of-bounds pixels are dropped by img.Set.
func line(img *image.RGBA, x0, y0, x1, y1 int, c color.Color) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := -1, -1
	if x0 < x1 {
		sx = 1
	}
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		img.Set(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
