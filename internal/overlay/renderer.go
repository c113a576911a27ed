// Package overlay draws the pose skeleton on top of a captured frame.
package overlay

import (
	"image"
	"image/color"

	"github.com/dj-oyu/pose-overlay/internal/pose"
)

// Canvas is a raster surface the renderer draws on in place.
type Canvas interface {
	// Line draws a segment of the given thickness in pixels.
	Line(from, to image.Point, c color.RGBA, thickness int)
	// Circle draws a filled disc.
	Circle(center image.Point, radius int, c color.RGBA)
}

// Style holds the presentation constants of the overlay.
type Style struct {
	BoneColor     color.RGBA
	JointColor    color.RGBA
	BoneThickness int
	JointRadius   int
}

// DefaultStyle returns red 3px bones and blue joints of radius 7.
func DefaultStyle() Style {
	return Style{
		BoneColor:     color.RGBA{R: 255, A: 255},
		JointColor:    color.RGBA{B: 255, A: 255},
		BoneThickness: 3,
		JointRadius:   7,
	}
}

// Renderer draws bones and joints for one frame's landmarks.
type Renderer struct {
	style Style
	bones []pose.Bone
}

// NewRenderer creates a Renderer over the given bone table.
func NewRenderer(style Style, bones []pose.Bone) *Renderer {
	return &Renderer{
		style: style,
		bones: bones,
	}
}

// Style returns the renderer's presentation constants.
func (r *Renderer) Style() Style {
	return r.style
}

// Draw renders all bones, then all joints, so joints are never covered by a bone.
// landmarks must hold every index the bone table references.
func (r *Renderer) Draw(canvas Canvas, landmarks []pose.Landmark) {
	for _, b := range r.bones {
		canvas.Line(landmarks[b.From].Point(), landmarks[b.To].Point(), r.style.BoneColor, r.style.BoneThickness)
	}

	for _, lm := range landmarks {
		canvas.Circle(lm.Point(), r.style.JointRadius, r.style.JointColor)
	}
}
