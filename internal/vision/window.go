package vision

import (
	"time"

	"gocv.io/x/gocv"

	"github.com/dj-oyu/pose-overlay/internal/pipeline"
)

// Window is a HighGUI preview window.
type Window struct {
	win *gocv.Window
}

// OpenWindow creates a window titled title.
func OpenWindow(title string) *Window {
	return &Window{win: gocv.NewWindow(title)}
}

// Show presents frame. Raster frames are converted to a temporary Mat.
func (w *Window) Show(frame pipeline.Frame) error {
	mat, owned, err := toMat(frame)
	if err != nil {
		return err
	}
	if owned {
		defer mat.Close()
	}
	w.win.IMShow(*mat)
	return nil
}

// PollKey services window events for up to wait and returns the pressed
// key, or -1. Waits below one millisecond are rounded up, since a zero
// delay would block until a key is pressed.
func (w *Window) PollKey(wait time.Duration) int {
	ms := int(wait / time.Millisecond)
	if ms < 1 {
		ms = 1
	}
	return w.win.WaitKey(ms)
}

func (w *Window) Close() error {
	return w.win.Close()
}
