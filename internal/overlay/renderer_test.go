package overlay

import (
	"image"
	"image/color"
	"testing"

	"github.com/dj-oyu/pose-overlay/internal/pose"
)

type drawCall struct {
	kind  string
	a, b  image.Point
	color color.RGBA
	size  int
}

type recordingCanvas struct {
	calls []drawCall
}

func (c *recordingCanvas) Line(from, to image.Point, col color.RGBA, thickness int) {
	c.calls = append(c.calls, drawCall{kind: "line", a: from, b: to, color: col, size: thickness})
}

func (c *recordingCanvas) Circle(center image.Point, radius int, col color.RGBA) {
	c.calls = append(c.calls, drawCall{kind: "circle", a: center, color: col, size: radius})
}

func gridLandmarks() []pose.Landmark {
	lms := make([]pose.Landmark, pose.NumLandmarks)
	for i := range lms {
		lms[i] = pose.Landmark{X: float32(i*10) + 0.9, Y: float32(i * 5)}
	}
	return lms
}

func TestDrawBonesBeforeJoints(t *testing.T) {
	canvas := &recordingCanvas{}
	r := NewRenderer(DefaultStyle(), pose.Bones())

	r.Draw(canvas, gridLandmarks())

	if len(canvas.calls) != 35+39 {
		t.Fatalf("calls = %d, want %d", len(canvas.calls), 35+39)
	}
	for i, call := range canvas.calls {
		want := "line"
		if i >= 35 {
			want = "circle"
		}
		if call.kind != want {
			t.Fatalf("call %d = %s, want %s", i, call.kind, want)
		}
	}
}

func TestDrawUsesStyleAndTopology(t *testing.T) {
	canvas := &recordingCanvas{}
	style := DefaultStyle()
	r := NewRenderer(style, pose.Bones())
	lms := gridLandmarks()

	r.Draw(canvas, lms)

	bones := pose.Bones()
	for i, b := range bones {
		call := canvas.calls[i]
		if call.a != lms[b.From].Point() || call.b != lms[b.To].Point() {
			t.Fatalf("bone %d drawn %v-%v", i, call.a, call.b)
		}
		if call.color != style.BoneColor || call.size != 3 {
			t.Fatalf("bone %d style = %v/%d", i, call.color, call.size)
		}
	}

	joint := canvas.calls[35+12]
	if joint.a != image.Pt(120, 60) {
		t.Fatalf("joint 12 at %v, want (120,60)", joint.a)
	}
	if joint.color != style.JointColor || joint.size != 7 {
		t.Fatalf("joint style = %v/%d", joint.color, joint.size)
	}
}

func TestDefaultStylePalette(t *testing.T) {
	s := DefaultStyle()
	if s.BoneColor != (color.RGBA{R: 255, A: 255}) {
		t.Fatalf("bone color = %v", s.BoneColor)
	}
	if s.JointColor != (color.RGBA{B: 255, A: 255}) {
		t.Fatalf("joint color = %v", s.JointColor)
	}
}

func TestDrawPanicsOnShortLandmarks(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for partial landmark sequence")
		}
	}()
	r := NewRenderer(DefaultStyle(), pose.Bones())
	r.Draw(&recordingCanvas{}, gridLandmarks()[:10])
}
