// Package pipeline runs the capture → preprocess → infer → decode → render →
// display loop for one camera on a single goroutine.
//
// Each frame is fully processed before the next one is read. The only
// suspension points are the capture read, the inference wait, and the bounded
// key poll that paces the loop and detects the termination key.
package pipeline

import (
	"errors"
	"image"
	"io"
	"time"

	"github.com/dj-oyu/pose-overlay/internal/overlay"
)

// State is the lifecycle state of a Loop.
type State int32

const (
	StateIdle State = iota
	StateInitializing
	StateRunning
	StateStopping
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:         "idle",
	StateInitializing: "initializing",
	StateRunning:      "running",
	StateStopping:     "stopping",
	StateFailed:       "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

var (
	// ErrEmptyFrame is returned when the capture device yields no image.
	ErrEmptyFrame = errors.New("frame is empty")
	// ErrCaptureTimeout is returned when a capture read exceeds its deadline.
	ErrCaptureTimeout = errors.New("capture read timed out")
	// ErrInferenceTimeout is returned when inference exceeds its deadline.
	ErrInferenceTimeout = errors.New("inference timed out")
)

// Frame is one captured image, owned by the loop for a single iteration.
// The renderer draws on it in place.
type Frame interface {
	overlay.Canvas
	Empty() bool
	Size() image.Point
}

// Source is an opened capture device.
type Source interface {
	io.Closer
	// Read blocks until the next frame is available. An empty frame signals
	// device loss or end of stream.
	Read() (Frame, error)
}

// Preprocessor resizes a frame to the model input, converts it to the model's
// channel order and writes it to dst as float32 values in [0,1].
type Preprocessor interface {
	Preprocess(frame Frame, dst []float32) error
}

// Display presents frames and reports key presses.
type Display interface {
	io.Closer
	Show(frame Frame) error
	// PollKey waits up to wait for a key press and returns its code, or -1.
	PollKey(wait time.Duration) int
}

// Options configures a Loop.
type Options struct {
	DisplayWidth  int
	DisplayHeight int
	InputWidth    int
	InputHeight   int

	ModelName    string
	InputTensor  string
	OutputTensor string

	DecodeAuxiliary bool

	KeyWait time.Duration
	QuitKey int

	// EmptyFrameRetries is the number of consecutive empty frames tolerated
	// before the loop fails. With zero the first empty frame is fatal.
	EmptyFrameRetries int

	// Zero disables the deadline and blocks until the call returns.
	CaptureTimeout   time.Duration
	InferenceTimeout time.Duration
}
