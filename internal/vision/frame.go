// Package vision is the OpenCV backend of the pose overlay pipeline: V4L2
// capture, in-place drawing on camera frames, model input preprocessing and
// the preview window.
package vision

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// MatFrame is a BGR camera frame. The Mat belongs to the Camera that produced
// it and is overwritten by the next Read.
type MatFrame struct {
	mat *gocv.Mat
}

// NewMatFrame wraps mat without taking ownership.
func NewMatFrame(mat *gocv.Mat) *MatFrame {
	return &MatFrame{mat: mat}
}

// Mat returns the underlying image.
func (f *MatFrame) Mat() *gocv.Mat {
	return f.mat
}

func (f *MatFrame) Empty() bool {
	return f.mat == nil || f.mat.Empty()
}

func (f *MatFrame) Size() image.Point {
	if f.Empty() {
		return image.Point{}
	}
	return image.Pt(f.mat.Cols(), f.mat.Rows())
}

// Line draws a line segment of the given thickness.
func (f *MatFrame) Line(from, to image.Point, c color.RGBA, thickness int) {
	gocv.Line(f.mat, from, to, c, thickness)
}

// Circle draws a filled disc.
func (f *MatFrame) Circle(center image.Point, radius int, c color.RGBA) {
	gocv.Circle(f.mat, center, radius, c, -1)
}

// imageFrame is implemented by frames that are backed by a Go image rather
// than a Mat, such as the pure-Go raster frames.
type imageFrame interface {
	Image() image.Image
}

// toMat returns a BGR Mat for frame. When owned is true the caller must
// close the returned Mat.
func toMat(frame any) (mat *gocv.Mat, owned bool, err error) {
	switch f := frame.(type) {
	case *MatFrame:
		return f.mat, false, nil
	case imageFrame:
		m, err := gocv.ImageToMatRGB(f.Image())
		if err != nil {
			return nil, false, err
		}
		return &m, true, nil
	default:
		return nil, false, errUnsupportedFrame
	}
}
