// Package raster is a pure-Go backend for frames held as *image.RGBA: still
// image sources, polygon-rasterized overlay drawing and model input
// preprocessing. It needs no OpenCV and backs headless runs and tests.
package raster

import (
	"image"
	"image/color"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

// bezierCircle is the control point distance for a quarter circle of radius 1.
const bezierCircle = 0.5522847498

// RGBAFrame is a frame backed by an RGBA image whose bounds start at the origin.
type RGBAFrame struct {
	img *image.RGBA
	z   *vector.Rasterizer
}

// NewRGBAFrame wraps img. A nil img is an empty frame.
func NewRGBAFrame(img *image.RGBA) *RGBAFrame {
	return &RGBAFrame{img: img}
}

// RGBA returns the backing image.
func (f *RGBAFrame) RGBA() *image.RGBA { return f.img }

// Image returns the backing image.
func (f *RGBAFrame) Image() image.Image { return f.img }

func (f *RGBAFrame) Empty() bool {
	return f.img == nil || f.img.Bounds().Empty()
}

func (f *RGBAFrame) Size() image.Point {
	if f.img == nil {
		return image.Point{}
	}
	return f.img.Bounds().Size()
}

// Line fills the thickness-wide quad around the segment. Integer coordinates
// address pixel centers.
func (f *RGBAFrame) Line(from, to image.Point, c color.RGBA, thickness int) {
	if f.Empty() {
		return
	}
	if thickness < 1 {
		thickness = 1
	}

	ax, ay := float32(from.X)+0.5, float32(from.Y)+0.5
	bx, by := float32(to.X)+0.5, float32(to.Y)+0.5
	half := float32(thickness) / 2

	dx, dy := bx-ax, by-ay
	length := float32(math.Hypot(float64(dx), float64(dy)))
	if length == 0 {
		// Degenerate segment: a square of side thickness.
		dx, dy, length = 1, 0, 1
		ax -= half
		bx += half
	}
	// Unit normal scaled to half the thickness.
	nx, ny := -dy/length*half, dx/length*half

	z := f.rasterizer()
	z.MoveTo(ax+nx, ay+ny)
	z.LineTo(bx+nx, by+ny)
	z.LineTo(bx-nx, by-ny)
	z.LineTo(ax-nx, ay-ny)
	z.ClosePath()
	f.fill(z, c)
}

// Circle fills a disc approximated by four cubic Bézier arcs.
func (f *RGBAFrame) Circle(center image.Point, radius int, c color.RGBA) {
	if f.Empty() || radius < 0 {
		return
	}

	cx, cy := float32(center.X)+0.5, float32(center.Y)+0.5
	r := float32(radius) + 0.5
	k := r * bezierCircle

	z := f.rasterizer()
	z.MoveTo(cx+r, cy)
	z.CubeTo(cx+r, cy+k, cx+k, cy+r, cx, cy+r)
	z.CubeTo(cx-k, cy+r, cx-r, cy+k, cx-r, cy)
	z.CubeTo(cx-r, cy-k, cx-k, cy-r, cx, cy-r)
	z.CubeTo(cx+k, cy-r, cx+r, cy-k, cx+r, cy)
	z.ClosePath()
	f.fill(z, c)
}

func (f *RGBAFrame) rasterizer() *vector.Rasterizer {
	size := f.img.Bounds().Size()
	if f.z == nil {
		f.z = vector.NewRasterizer(size.X, size.Y)
	} else {
		f.z.Reset(size.X, size.Y)
	}
	f.z.DrawOp = xdraw.Over
	return f.z
}

func (f *RGBAFrame) fill(z *vector.Rasterizer, c color.RGBA) {
	z.Draw(f.img, f.img.Bounds(), image.NewUniform(c), image.Point{})
}

// toRGBA copies src into a new RGBA image anchored at the origin.
func toRGBA(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(dst, dst.Bounds(), src, b.Min, xdraw.Src)
	return dst
}
