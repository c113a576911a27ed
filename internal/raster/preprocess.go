package raster

import (
	"errors"
	"fmt"
	"image"

	xdraw "golang.org/x/image/draw"

	"github.com/dj-oyu/pose-overlay/internal/pipeline"
)

var errNoImage = errors.New("raster: frame is not backed by an image")

// Preprocessor scales RGB frames to the model input and packs them as
// float32 HWC values in [0,1].
type Preprocessor struct {
	scaled *image.RGBA
}

// NewPreprocessor creates a preprocessor for a width x height model input.
func NewPreprocessor(width, height int) *Preprocessor {
	return &Preprocessor{scaled: image.NewRGBA(image.Rect(0, 0, width, height))}
}

func (p *Preprocessor) Preprocess(frame pipeline.Frame, dst []float32) error {
	f, ok := frame.(interface{ Image() image.Image })
	if !ok {
		return errNoImage
	}
	size := p.scaled.Bounds().Size()
	if want := size.X * size.Y * 3; len(dst) != want {
		return fmt.Errorf("input buffer holds %d values, want %d", len(dst), want)
	}

	src := f.Image()
	xdraw.BiLinear.Scale(p.scaled, p.scaled.Bounds(), src, src.Bounds(), xdraw.Src, nil)

	pix := p.scaled.Pix
	for y := 0; y < size.Y; y++ {
		row := pix[y*p.scaled.Stride:]
		for x := 0; x < size.X; x++ {
			i := (y*size.X + x) * 3
			dst[i] = float32(row[x*4]) / 255
			dst[i+1] = float32(row[x*4+1]) / 255
			dst[i+2] = float32(row[x*4+2]) / 255
		}
	}
	return nil
}
