package pipeline

import (
	"errors"
	"image"
	"image/color"
	"sync"
	"time"

	"github.com/dj-oyu/pose-overlay/internal/inference"
	"github.com/dj-oyu/pose-overlay/internal/overlay"
	"github.com/dj-oyu/pose-overlay/internal/pose"
)

const (
	testInputW = 4
	testInputH = 4
)

type fakeFrame struct {
	empty   bool
	size    image.Point
	lines   int
	circles []image.Point
}

func newFrame() *fakeFrame {
	return &fakeFrame{size: image.Pt(640, 480)}
}

func (f *fakeFrame) Empty() bool       { return f.empty }
func (f *fakeFrame) Size() image.Point { return f.size }

func (f *fakeFrame) Line(_, _ image.Point, _ color.RGBA, _ int) {
	f.lines++
}

func (f *fakeFrame) Circle(center image.Point, _ int, _ color.RGBA) {
	f.circles = append(f.circles, center)
}

// fakeSource replays frames, then returns empty frames.
type fakeSource struct {
	mu     sync.Mutex
	frames []*fakeFrame
	reads  int
	closed bool
}

func (s *fakeSource) Read() (Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if len(s.frames) == 0 {
		return &fakeFrame{empty: true}, nil
	}
	f := s.frames[0]
	s.frames = s.frames[1:]
	return f, nil
}

func (s *fakeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type fakePreprocessor struct {
	calls  int
	lastN  int
	frames []Frame
}

func (p *fakePreprocessor) Preprocess(frame Frame, dst []float32) error {
	p.calls++
	p.lastN = len(dst)
	p.frames = append(p.frames, frame)
	for i := range dst {
		dst[i] = 0.5
	}
	return nil
}

type fakeDisplay struct {
	keys   []int
	shown  int
	waits  []time.Duration
	closed bool
}

func (d *fakeDisplay) Show(Frame) error {
	d.shown++
	return nil
}

func (d *fakeDisplay) PollKey(wait time.Duration) int {
	d.waits = append(d.waits, wait)
	if len(d.keys) == 0 {
		return -1
	}
	k := d.keys[0]
	d.keys = d.keys[1:]
	return k
}

func (d *fakeDisplay) Close() error {
	d.closed = true
	return nil
}

// fakeEngine is an in-memory runtime with one request.
type fakeEngine struct {
	output     []float32
	outputDims []int
	inputBytes int

	failContext bool
	failLoad    bool
	failInfer   error
	waitBlock   chan struct{}

	created  bool
	infers   int
	closed   []string
	closedMu sync.Mutex
}

func newEngine(output []float32) *fakeEngine {
	return &fakeEngine{
		output:     output,
		outputDims: []int{1, len(output)},
		inputBytes: testInputW * testInputH * 3 * 4,
	}
}

func (e *fakeEngine) markClosed(name string) {
	e.closedMu.Lock()
	defer e.closedMu.Unlock()
	e.closed = append(e.closed, name)
}

func (e *fakeEngine) isClosed(name string) bool {
	e.closedMu.Lock()
	defer e.closedMu.Unlock()
	for _, n := range e.closed {
		if n == name {
			return true
		}
	}
	return false
}

func (e *fakeEngine) CreateContext() (inference.Context, error) {
	e.created = true
	if e.failContext {
		return nil, inference.Errorf(inference.StatusInitFailure, "no runtime")
	}
	return fakeContext{e}, nil
}

type fakeContext struct{ e *fakeEngine }

func (c fakeContext) LoadModel(name string) (inference.Model, error) {
	if c.e.failLoad {
		return nil, inference.Errorf(inference.StatusModelLoad, "cannot load %s", name)
	}
	return fakeModel{c.e}, nil
}

func (c fakeContext) Close() error { c.e.markClosed("context"); return nil }

type fakeModel struct{ e *fakeEngine }

func (m fakeModel) OutputTensorInfo(name string) (inference.TensorInfo, error) {
	if name != "Identity" {
		return inference.TensorInfo{}, inference.Errorf(inference.StatusTensorLookup, "no output %s", name)
	}
	return inference.TensorInfo{Name: name, Shape: m.e.outputDims}, nil
}

func (m fakeModel) CreateRequest() (inference.Request, error) {
	return &fakeRequest{
		e:      m.e,
		input:  make([]float32, m.e.inputBytes/4),
		output: make([]float32, len(m.e.output)),
	}, nil
}

func (m fakeModel) Close() error { m.e.markClosed("model"); return nil }

type fakeRequest struct {
	e      *fakeEngine
	input  []float32
	output []float32
}

type bufTensor []float32

func (t bufTensor) RawBuffer() []byte { return inference.Bytes(t) }

func (r *fakeRequest) InputTensor(name string) (inference.Tensor, error) {
	if name != "input_1" {
		return nil, inference.Errorf(inference.StatusTensorLookup, "no input %s", name)
	}
	return bufTensor(r.input), nil
}

func (r *fakeRequest) OutputTensor(name string) (inference.Tensor, error) {
	if name != "Identity" {
		return nil, inference.Errorf(inference.StatusTensorLookup, "no output %s", name)
	}
	return bufTensor(r.output), nil
}

func (r *fakeRequest) Infer() error {
	r.e.infers++
	if r.e.failInfer != nil {
		return r.e.failInfer
	}
	copy(r.output, r.e.output)
	return nil
}

func (r *fakeRequest) Wait() error {
	if r.e.waitBlock != nil {
		<-r.e.waitBlock
	}
	return nil
}

func (r *fakeRequest) Close() error { r.e.markClosed("request"); return nil }

var errInferFailed = errors.New("kernel failed")

// centeredOutput returns a 39x5 output whose landmarks all sit at the model center.
func centeredOutput() []float32 {
	out := make([]float32, pose.NumLandmarks*5)
	for i := 0; i < pose.NumLandmarks; i++ {
		out[i*5] = 128
		out[i*5+1] = 128
	}
	return out
}

func testOptions() Options {
	return Options{
		DisplayWidth:  640,
		DisplayHeight: 480,
		InputWidth:    testInputW,
		InputHeight:   testInputH,
		ModelName:     "pose_detection_lite",
		InputTensor:   "input_1",
		OutputTensor:  "Identity",
		KeyWait:       33 * time.Millisecond,
		QuitKey:       'q',
	}
}

type harness struct {
	source  *fakeSource
	display *fakeDisplay
	engine  *fakeEngine
	pre     *fakePreprocessor
}

func newHarness(frames int, keys ...int) *harness {
	src := &fakeSource{}
	for i := 0; i < frames; i++ {
		src.frames = append(src.frames, newFrame())
	}
	return &harness{
		source:  src,
		display: &fakeDisplay{keys: keys},
		engine:  newEngine(centeredOutput()),
		pre:     &fakePreprocessor{},
	}
}

func (h *harness) deps() Dependencies {
	return Dependencies{
		OpenSource:   func() (Source, error) { return h.source, nil },
		OpenDisplay:  func() (Display, error) { return h.display, nil },
		Engine:       h.engine,
		Preprocessor: h.pre,
		Renderer:     overlay.NewRenderer(overlay.DefaultStyle(), pose.Bones()),
	}
}
