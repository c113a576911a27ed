package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/dj-oyu/pose-overlay/internal/inference"
	"github.com/dj-oyu/pose-overlay/internal/logger"
	"github.com/dj-oyu/pose-overlay/internal/metrics"
	"github.com/dj-oyu/pose-overlay/internal/overlay"
	"github.com/dj-oyu/pose-overlay/internal/pose"
)

// Dependencies are the collaborators a Loop acquires and drives.
type Dependencies struct {
	OpenSource   func() (Source, error)
	OpenDisplay  func() (Display, error)
	Engine       inference.Engine
	Preprocessor Preprocessor
	Renderer     *overlay.Renderer

	// Optional
	Metrics   *metrics.Metrics
	FPSWriter io.Writer
	Log       logger.Module
}

// Loop is the frame pipeline. A Loop runs once.
type Loop struct {
	opts  Options
	deps  Dependencies
	state atomic.Int32
}

// New creates a Loop.
func New(opts Options, deps Dependencies) *Loop {
	if deps.FPSWriter == nil {
		deps.FPSWriter = io.Discard
	}
	return &Loop{opts: opts, deps: deps}
}

// State returns the current lifecycle state.
func (l *Loop) State() State {
	return State(l.state.Load())
}

func (l *Loop) setState(s State) {
	l.state.Store(int32(s))
}

// session holds everything acquired during initialization.
type session struct {
	source  Source
	display Display

	rtCtx   inference.Context
	model   inference.Model
	request inference.Request

	outputTotal int
	decoder     pose.Decoder
	landmarks   []pose.Landmark

	// Set when a timed-out call may still be running on the handle.
	sourceAbandoned  bool
	requestAbandoned bool
	sizeWarned       bool
}

// Run initializes the pipeline and processes frames until the quit key is
// pressed or ctx is cancelled (nil error), or until a failure (non-nil error).
// Every acquired resource is released before Run returns.
func (l *Loop) Run(ctx context.Context) (err error) {
	if l.State() != StateIdle {
		return fmt.Errorf("pipeline already started (state %s)", l.State())
	}

	l.setState(StateInitializing)
	defer func() {
		if err != nil {
			l.setState(StateFailed)
			l.deps.Log.Error("Pipeline failed: %v", err)
			return
		}
		l.setState(StateStopping)
		l.deps.Log.Info("Pipeline stopped")
	}()

	s := &session{}
	defer l.release(s)

	if err := l.initialize(s); err != nil {
		return err
	}

	l.setState(StateRunning)
	l.deps.Log.Info("Pipeline running (display %dx%d, model input %dx%d)",
		l.opts.DisplayWidth, l.opts.DisplayHeight, l.opts.InputWidth, l.opts.InputHeight)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		stop, err := l.step(s)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
}

func (l *Loop) initialize(s *session) error {
	source, err := l.deps.OpenSource()
	if err != nil {
		return inference.Wrap(inference.StatusInitFailure, err, "failed to open camera")
	}
	s.source = source

	rtCtx, err := l.deps.Engine.CreateContext()
	if err != nil {
		return fmt.Errorf("create context: %w", err)
	}
	s.rtCtx = rtCtx

	model, err := rtCtx.LoadModel(l.opts.ModelName)
	if err != nil {
		return fmt.Errorf("load model %s: %w", l.opts.ModelName, err)
	}
	s.model = model

	info, err := model.OutputTensorInfo(l.opts.OutputTensor)
	if err != nil {
		return fmt.Errorf("output tensor %s: %w", l.opts.OutputTensor, err)
	}
	s.outputTotal = info.ElementCount()

	channels, err := pose.ChannelsPerLandmark(s.outputTotal)
	if err != nil {
		return fmt.Errorf("model %s output %s: %w", l.opts.ModelName, l.opts.OutputTensor, err)
	}
	l.deps.Log.Info("Output %s: %d values, %d channels per landmark",
		l.opts.OutputTensor, s.outputTotal, channels)

	request, err := model.CreateRequest()
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	s.request = request

	input, err := request.InputTensor(l.opts.InputTensor)
	if err != nil {
		return fmt.Errorf("input tensor %s: %w", l.opts.InputTensor, err)
	}
	want := l.opts.InputWidth * l.opts.InputHeight * 3 * 4
	if got := len(input.RawBuffer()); got != want {
		return inference.Errorf(inference.StatusTensorLookup,
			"input tensor %s holds %d bytes, expected %dx%dx3 float32 (%d bytes)",
			l.opts.InputTensor, got, l.opts.InputWidth, l.opts.InputHeight, want)
	}

	display, err := l.deps.OpenDisplay()
	if err != nil {
		return fmt.Errorf("open display: %w", err)
	}
	s.display = display

	s.decoder = pose.Decoder{
		Width:           float32(l.opts.DisplayWidth),
		Height:          float32(l.opts.DisplayHeight),
		DecodeAuxiliary: l.opts.DecodeAuxiliary,
	}
	s.landmarks = make([]pose.Landmark, 0, pose.NumLandmarks)
	return nil
}

// step processes one frame. It reports true when the quit key was pressed.
func (l *Loop) step(s *session) (bool, error) {
	begin := time.Now()

	frame, err := l.readFrame(s)
	if err != nil {
		return false, err
	}
	readEnd := time.Now()

	if err := l.packInput(s, frame); err != nil {
		return false, fmt.Errorf("preprocess: %w", err)
	}
	packEnd := time.Now()

	if err := l.infer(s); err != nil {
		if m := l.deps.Metrics; m != nil {
			m.InferenceErrors.Add(1)
		}
		return false, err
	}
	inferEnd := time.Now()

	if err := l.decode(s); err != nil {
		if m := l.deps.Metrics; m != nil {
			m.DecodeErrors.Add(1)
		}
		return false, err
	}
	decodeEnd := time.Now()

	l.checkFrameSize(s, frame)
	l.deps.Renderer.Draw(frame, s.landmarks)
	renderEnd := time.Now()

	if err := s.display.Show(frame); err != nil {
		return false, fmt.Errorf("display: %w", err)
	}
	showEnd := time.Now()

	l.observe(begin, readEnd, packEnd, inferEnd, decodeEnd, renderEnd, showEnd)

	if key := s.display.PollKey(l.opts.KeyWait); key >= 0 && key&0xFF == l.opts.QuitKey {
		l.deps.Log.Info("Quit key pressed")
		return true, nil
	}

	s.landmarks = s.landmarks[:0]
	l.reportFPS(showEnd.Sub(begin))
	return false, nil
}

func (l *Loop) readFrame(s *session) (Frame, error) {
	empties := 0
	for {
		frame, err := withTimeout(l.opts.CaptureTimeout, ErrCaptureTimeout, s.source.Read)
		if errors.Is(err, ErrCaptureTimeout) {
			s.sourceAbandoned = true
		}
		if err != nil {
			return nil, inference.Wrap(inference.StatusDeviceError, err, "capture")
		}
		if m := l.deps.Metrics; m != nil {
			m.FramesCaptured.Add(1)
		}
		if frame != nil && !frame.Empty() {
			return frame, nil
		}

		if m := l.deps.Metrics; m != nil {
			m.EmptyFrames.Add(1)
		}
		if empties >= l.opts.EmptyFrameRetries {
			return nil, inference.Wrap(inference.StatusDeviceError, ErrEmptyFrame, "capture")
		}
		empties++
		l.deps.Log.Warn("Empty frame from capture device, retrying (%d/%d)", empties, l.opts.EmptyFrameRetries)
	}
}

// packInput writes the preprocessed frame into the input tensor. The buffer
// view is only used for the duration of this call.
func (l *Loop) packInput(s *session, frame Frame) error {
	input, err := s.request.InputTensor(l.opts.InputTensor)
	if err != nil {
		return err
	}
	dst, err := inference.Float32s(input.RawBuffer())
	if err != nil {
		return fmt.Errorf("input tensor %s: %w", l.opts.InputTensor, err)
	}
	return l.deps.Preprocessor.Preprocess(frame, dst)
}

func (l *Loop) infer(s *session) error {
	_, err := withTimeout(l.opts.InferenceTimeout, ErrInferenceTimeout, func() (struct{}, error) {
		if err := s.request.Infer(); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, s.request.Wait()
	})
	if errors.Is(err, ErrInferenceTimeout) {
		s.requestAbandoned = true
	}
	if err != nil {
		return fmt.Errorf("inference: %w", err)
	}
	return nil
}

// decode copies the landmarks out of the output tensor before the next
// inference call can overwrite it.
func (l *Loop) decode(s *session) error {
	output, err := s.request.OutputTensor(l.opts.OutputTensor)
	if err != nil {
		return fmt.Errorf("output tensor %s: %w", l.opts.OutputTensor, err)
	}
	raw, err := inference.Float32s(output.RawBuffer())
	if err != nil {
		return fmt.Errorf("output tensor %s: %w", l.opts.OutputTensor, err)
	}
	s.landmarks, err = s.decoder.Decode(s.outputTotal, raw, s.landmarks)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

func (l *Loop) checkFrameSize(s *session, frame Frame) {
	if s.sizeWarned {
		return
	}
	want := image.Pt(l.opts.DisplayWidth, l.opts.DisplayHeight)
	if got := frame.Size(); got != want {
		l.deps.Log.Warn("Captured frame is %dx%d, landmarks are scaled to %dx%d", got.X, got.Y, want.X, want.Y)
		s.sizeWarned = true
	}
}

func (l *Loop) observe(begin, readEnd, packEnd, inferEnd, decodeEnd, renderEnd, showEnd time.Time) {
	if m := l.deps.Metrics; m != nil {
		m.FramesProcessed.Add(1)
		m.ObserveStage(metrics.StageRead, readEnd.Sub(begin))
		m.ObserveStage(metrics.StagePreprocess, packEnd.Sub(readEnd))
		m.ObserveStage(metrics.StageInfer, inferEnd.Sub(packEnd))
		m.ObserveStage(metrics.StageDecode, decodeEnd.Sub(inferEnd))
		m.ObserveStage(metrics.StageRender, renderEnd.Sub(decodeEnd))
		m.ObserveStage(metrics.StageShow, showEnd.Sub(renderEnd))
	}

	if l.deps.Log.Enabled(logger.DEBUG) {
		l.deps.Log.Debug("read: %v, preprocess: %v, infer: %v, decode: %v, render: %v, show: %v, sum: %v",
			readEnd.Sub(begin), packEnd.Sub(readEnd), inferEnd.Sub(packEnd),
			decodeEnd.Sub(inferEnd), renderEnd.Sub(decodeEnd), showEnd.Sub(renderEnd), showEnd.Sub(begin))
	}
}

// reportFPS writes the instantaneous frame rate as "<fps>fps".
func (l *Loop) reportFPS(elapsed time.Duration) {
	if elapsed <= 0 {
		return
	}
	fps := 1000 / (float64(elapsed) / float64(time.Millisecond))
	if m := l.deps.Metrics; m != nil {
		m.SetFPS(fps)
	}
	fmt.Fprintf(l.deps.FPSWriter, "%sfps\n", strconv.FormatFloat(fps, 'g', 6, 64))
}

func (l *Loop) release(s *session) {
	closeAll := []struct {
		name      string
		c         io.Closer
		abandoned bool
	}{
		{"display", s.display, false},
		{"request", s.request, s.requestAbandoned},
		{"model", s.model, s.requestAbandoned},
		{"context", s.rtCtx, s.requestAbandoned},
		{"capture", s.source, s.sourceAbandoned},
	}

	for _, item := range closeAll {
		if item.c == nil {
			continue
		}
		if item.abandoned {
			l.deps.Log.Warn("Leaking %s: a timed-out call may still be using it", item.name)
			continue
		}
		if err := item.c.Close(); err != nil {
			l.deps.Log.Warn("Failed to release %s: %v", item.name, err)
		}
	}
}
