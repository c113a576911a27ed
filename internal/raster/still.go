package raster

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/dj-oyu/pose-overlay/internal/pipeline"
)

// StillSource replays one decoded image as a frame stream. Each Read restores
// the pristine image into the frame buffer, which is valid until the next Read.
type StillSource struct {
	base   *image.RGBA
	frame  *RGBAFrame
	repeat int
	reads  int
}

// OpenStill decodes a JPEG or PNG file. A positive repeat ends the stream
// with an empty frame after that many reads.
func OpenStill(path string, repeat int) (*StillSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return NewStillSource(img, repeat), nil
}

// NewStillSource replays img.
func NewStillSource(img image.Image, repeat int) *StillSource {
	base := toRGBA(img)
	return &StillSource{
		base:   base,
		frame:  NewRGBAFrame(image.NewRGBA(base.Bounds())),
		repeat: repeat,
	}
}

// Size returns the dimensions of the replayed image.
func (s *StillSource) Size() image.Point {
	return s.base.Bounds().Size()
}

func (s *StillSource) Read() (pipeline.Frame, error) {
	if s.repeat > 0 && s.reads >= s.repeat {
		return NewRGBAFrame(nil), nil
	}
	s.reads++
	copy(s.frame.img.Pix, s.base.Pix)
	return s.frame, nil
}

func (s *StillSource) Close() error {
	return nil
}
