package display

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
)

// NopPresenter drops frames. Used when no output is configured.
type NopPresenter struct{}

func (NopPresenter) Present(*image.RGBA) error { return nil }

// PNGPresenter writes the latest frame to a PNG file. The file is replaced
// atomically so readers never see a partial frame.
type PNGPresenter struct {
	Path string
}

func NewPNGPresenter(path string) *PNGPresenter {
	return &PNGPresenter{Path: path}
}

func (p *PNGPresenter) Present(frame *image.RGBA) error {
	dir := filepath.Dir(p.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create frame dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".frame-*.png")
	if err != nil {
		return fmt.Errorf("create temp frame: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := png.Encode(tmp, frame); err != nil {
		tmp.Close()
		return fmt.Errorf("encode frame: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp frame: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod frame: %w", err)
	}
	return os.Rename(tmp.Name(), p.Path)
}
