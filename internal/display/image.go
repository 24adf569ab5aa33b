package display

import (
	"image"
	"image/color"
	"image/draw"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/inconsolata"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/i474232898/weather-matrix/internal/weather"
)

// ImageSurface draws into an in-memory RGBA buffer and hands a
// brightness-scaled copy to its Presenter on Present.
type ImageSurface struct {
	mu         sync.Mutex
	buf        *image.RGBA
	brightness int
	presenter  Presenter
	small      font.Face
	large      font.Face
}

// NewImageSurface allocates the buffer for g. A nil presenter discards frames.
func NewImageSurface(g Geometry, presenter Presenter) *ImageSurface {
	if presenter == nil {
		presenter = NopPresenter{}
	}
	brightness := g.Brightness
	if brightness <= 0 || brightness > 100 {
		brightness = 100
	}
	s := &ImageSurface{
		buf:        image.NewRGBA(image.Rect(0, 0, g.Width(), g.Height())),
		brightness: brightness,
		presenter:  presenter,
		small:      smallFace(),
		large:      inconsolata.Bold8x16,
	}
	s.Clear()
	return s
}

func (s *ImageSurface) Bounds() image.Rectangle {
	return s.buf.Bounds()
}

func (s *ImageSurface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	draw.Draw(s.buf, s.buf.Bounds(), image.NewUniform(ColorBlack), image.Point{}, draw.Src)
}

func (s *ImageSurface) DrawText(text string, x, y int, c color.Color, size SizeClass) {
	s.mu.Lock()
	defer s.mu.Unlock()
	face := s.face(size)
	d := font.Drawer{
		Dst:  s.buf,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(text)
}

func (s *ImageSurface) TextWidth(text string, size SizeClass) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return font.MeasureString(s.face(size), text).Ceil()
}

func (s *ImageSurface) TextHeight(size SizeClass) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.face(size).Metrics().Ascent.Ceil()
}

func (s *ImageSurface) DrawIcon(cond weather.Condition, x, y, size int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	drawIcon(s.buf, cond, x, y, size)
}

func (s *ImageSurface) DrawLine(p1, p2 image.Point, c color.Color) {
	s.mu.Lock()
	defer s.mu.Unlock()
	line(s.buf, p1.X, p1.Y, p2.X, p2.Y, c)
}

// Present scales the buffer by brightness and hands it to the presenter.
func (s *ImageSurface) Present() error {
	s.mu.Lock()
	frame := image.NewRGBA(s.buf.Bounds())
	copy(frame.Pix, s.buf.Pix)
	s.mu.Unlock()

	if s.brightness < 100 {
		for i := 0; i < len(frame.Pix); i += 4 {
			frame.Pix[i] = scale(frame.Pix[i], s.brightness)
			frame.Pix[i+1] = scale(frame.Pix[i+1], s.brightness)
			frame.Pix[i+2] = scale(frame.Pix[i+2], s.brightness)
		}
	}
	return s.presenter.Present(frame)
}

// Snapshot returns a copy of the unscaled buffer.
func (s *ImageSurface) Snapshot() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := image.NewRGBA(s.buf.Bounds())
	copy(out.Pix, s.buf.Pix)
	return out
}

func scale(v uint8, pct int) uint8 {
	return uint8(int(v) * pct / 100)
}

func (s *ImageSurface) face(size SizeClass) font.Face {
	if size == SizeLarge {
		return s.large
	}
	return s.small
}

// smallFace is Go Mono at 8px, small enough for three text rows on a 32 row
// panel. Falls back to the 7x13 bitmap face if the font cannot be loaded.
func smallFace() font.Face {
	f, err := opentype.Parse(gomono.TTF)
	if err != nil {
		return basicfont.Face7x13
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    8,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return basicfont.Face7x13
	}
	return face
}

var _ Surface = (*ImageSurface)(nil)
