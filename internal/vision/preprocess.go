package vision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/dj-oyu/pose-overlay/internal/pipeline"
)

// Preprocessor converts BGR frames into the model's RGB float32 input.
// Its intermediate Mats are reused across frames.
type Preprocessor struct {
	size    image.Point
	resized gocv.Mat
	rgb     gocv.Mat
	scaled  gocv.Mat
}

// NewPreprocessor creates a preprocessor for a width x height model input.
func NewPreprocessor(width, height int) *Preprocessor {
	return &Preprocessor{
		size:    image.Pt(width, height),
		resized: gocv.NewMat(),
		rgb:     gocv.NewMat(),
		scaled:  gocv.NewMat(),
	}
}

// Preprocess resizes frame with bilinear interpolation, swaps BGR to RGB,
// scales to [0,1] and copies the HWC result into dst.
func (p *Preprocessor) Preprocess(frame pipeline.Frame, dst []float32) error {
	if want := p.size.X * p.size.Y * 3; len(dst) != want {
		return fmt.Errorf("input buffer holds %d values, want %d", len(dst), want)
	}

	src, owned, err := toMat(frame)
	if err != nil {
		return err
	}
	if owned {
		defer src.Close()
	}

	gocv.Resize(*src, &p.resized, p.size, 0, 0, gocv.InterpolationLinear)
	gocv.CvtColor(p.resized, &p.rgb, gocv.ColorBGRToRGB)
	p.rgb.ConvertToWithParams(&p.scaled, gocv.MatTypeCV32FC3, 1.0/255, 0)

	data, err := p.scaled.DataPtrFloat32()
	if err != nil {
		return fmt.Errorf("read scaled input: %w", err)
	}
	if len(data) != len(dst) {
		return fmt.Errorf("scaled input has %d values, want %d", len(data), len(dst))
	}
	copy(dst, data)
	return nil
}

func (p *Preprocessor) Close() error {
	p.resized.Close()
	p.rgb.Close()
	return p.scaled.Close()
}
