package render

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/i474232898/weather-matrix/internal/display"
	"github.com/i474232898/weather-matrix/internal/weather"
)

const (
	padding    = 1
	separatorY = 8
	labelY     = separatorY - 1
	iconY      = 14
)

// drawCurrent: big temperature left of centre, big icon right of centre,
// humidity along the bottom.
func (r *Renderer) drawCurrent(snap *weather.Snapshot) {
	s := r.surface
	w, h := s.Bounds().Dx(), s.Bounds().Dy()

	s.DrawText(degrees(roundTemp(snap.Current.Temperature)), w/4, h/2-4, display.ColorHighlight, display.SizeLarge)
	s.DrawIcon(snap.Current.Condition, w*3/4-display.IconLarge/2, h/2-display.IconLarge/2, display.IconLarge)
	s.DrawText(fmt.Sprintf("Humidity: %d%%", snap.Current.Humidity), padding, bottomY(s), display.ColorText, display.SizeSmall)
}

// drawHourly lays half-width tiles out to the right of the screen and slides
// them left by offset pixels.
func (r *Renderer) drawHourly(snap *weather.Snapshot, offset int) {
	s := r.surface
	w, h := s.Bounds().Dx(), s.Bounds().Dy()
	tile := w / 2

	drawHeader(s, "HOURLY")

	for i, entry := range snap.Hourly {
		x := w - offset + i*tile
		if x < -tile || x > w {
			continue
		}
		cx := x + tile/2

		centerText(s, entry.Hour, cx, labelY, display.ColorText)
		s.DrawIcon(entry.Condition, x+(tile-display.IconMedium)/2, iconY, display.IconMedium)
		centerText(s, degrees(entry.Temperature), cx, bottomY(s), display.ColorText)

		if i < len(snap.Hourly)-1 {
			if sep := x + tile - 1; sep >= 0 && sep < w {
				s.DrawLine(image.Pt(sep, separatorY), image.Pt(sep, h-1), display.ColorSeparator)
			}
		}
	}
}

// drawDaily splits the screen into three columns, one per day.
func (r *Renderer) drawDaily(snap *weather.Snapshot) {
	s := r.surface
	w, h := s.Bounds().Dx(), s.Bounds().Dy()
	section := w / 3

	drawHeader(s, "3-DAY FORECAST")

	for i, day := range snap.Daily {
		x := i * section

		centerText(s, strings.ToUpper(day.Day), x+section/2, labelY, display.ColorText)
		s.DrawIcon(day.Condition, x+(section-display.IconMedium)/2, iconY, display.IconMedium)
		centerText(s, degrees(day.Low), x+section/4, bottomY(s), display.ColorTempLow)
		centerText(s, degrees(day.High), x+section*3/4, bottomY(s), display.ColorTempHigh)

		if i < len(snap.Daily)-1 {
			sep := x + section - 1
			s.DrawLine(image.Pt(sep, separatorY), image.Pt(sep, h-1), display.ColorSeparator)
		}
	}
}

func drawHeader(s display.Surface, title string) {
	w := s.Bounds().Dx()
	y := separatorY - s.TextHeight(display.SizeSmall)
	if y < 0 {
		y = 0
	}
	centerText(s, title, w/2, y, display.ColorHighlight)
	s.DrawLine(image.Pt(0, separatorY), image.Pt(w-1, separatorY), display.ColorSeparator)
}

func centerText(s display.Surface, text string, cx, y int, c color.Color) {
	s.DrawText(text, cx-s.TextWidth(text, display.SizeSmall)/2, y, c, display.SizeSmall)
}

func bottomY(s display.Surface) int {
	return s.Bounds().Dy() - s.TextHeight(display.SizeSmall)
}

func degrees(t int) string {
	return fmt.Sprintf("%d°", t)
}
