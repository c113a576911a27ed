// Package tflite runs the pose model on the TensorFlow Lite C runtime.
package tflite

import (
	"fmt"
	"os"
	"path/filepath"
	"unsafe"

	"github.com/mattn/go-tflite"

	"github.com/dj-oyu/pose-overlay/internal/inference"
	"github.com/dj-oyu/pose-overlay/internal/logger"
)

// Engine resolves model names to .tflite files under ModelDir.
type Engine struct {
	ModelDir string
	Threads  int
}

// CreateContext creates interpreter options shared by every model of the context.
func (e Engine) CreateContext() (inference.Context, error) {
	if e.ModelDir != "" {
		if _, err := os.Stat(e.ModelDir); err != nil {
			return nil, inference.Wrap(inference.StatusInitFailure, err, "model directory %s", e.ModelDir)
		}
	}

	options := tflite.NewInterpreterOptions()
	if options == nil {
		return nil, inference.Errorf(inference.StatusInitFailure, "failed to create interpreter options")
	}
	if e.Threads > 0 {
		options.SetNumThread(e.Threads)
	}
	options.SetErrorReporter(func(msg string, _ interface{}) {
		logger.Warn("TFLite", "%s", msg)
	}, nil)

	return &tfContext{dir: e.ModelDir, options: options}, nil
}

type tfContext struct {
	dir     string
	options *tflite.InterpreterOptions
}

func (c *tfContext) LoadModel(name string) (inference.Model, error) {
	path := name
	if filepath.Ext(path) == "" {
		path += ".tflite"
	}
	if c.dir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(c.dir, path)
	}

	model := tflite.NewModelFromFile(path)
	if model == nil {
		return nil, inference.Errorf(inference.StatusModelLoad, "cannot load model %s", path)
	}

	// The probe interpreter answers tensor metadata queries.
	probe, err := newInterpreter(model, c.options)
	if err != nil {
		model.Delete()
		return nil, err
	}

	logger.Info("TFLite", "Loaded model %s (%d inputs, %d outputs)",
		path, probe.GetInputTensorCount(), probe.GetOutputTensorCount())

	return &tfModel{path: path, model: model, options: c.options, probe: probe}, nil
}

func (c *tfContext) Close() error {
	if c.options != nil {
		c.options.Delete()
		c.options = nil
	}
	return nil
}

type tfModel struct {
	path    string
	model   *tflite.Model
	options *tflite.InterpreterOptions
	probe   *tflite.Interpreter
}

func (m *tfModel) OutputTensorInfo(name string) (inference.TensorInfo, error) {
	t := outputByName(m.probe, name)
	if t == nil {
		return inference.TensorInfo{}, inference.Errorf(inference.StatusTensorLookup, "model %s has no output tensor %q", m.path, name)
	}
	return tensorInfo(t), nil
}

func (m *tfModel) CreateRequest() (inference.Request, error) {
	interp, err := newInterpreter(m.model, m.options)
	if err != nil {
		return nil, err
	}
	return &tfRequest{interp: interp}, nil
}

func (m *tfModel) Close() error {
	if m.probe != nil {
		m.probe.Delete()
		m.probe = nil
	}
	if m.model != nil {
		m.model.Delete()
		m.model = nil
	}
	return nil
}

// tfRequest invokes synchronously; Wait reports the outcome of the last Infer.
type tfRequest struct {
	interp  *tflite.Interpreter
	pending error
}

func (r *tfRequest) InputTensor(name string) (inference.Tensor, error) {
	for i := 0; i < r.interp.GetInputTensorCount(); i++ {
		if t := r.interp.GetInputTensor(i); t != nil && t.Name() == name {
			return tfTensor{t}, nil
		}
	}
	return nil, inference.Errorf(inference.StatusTensorLookup, "no input tensor %q", name)
}

func (r *tfRequest) OutputTensor(name string) (inference.Tensor, error) {
	t := outputByName(r.interp, name)
	if t == nil {
		return nil, inference.Errorf(inference.StatusTensorLookup, "no output tensor %q", name)
	}
	return tfTensor{t}, nil
}

func (r *tfRequest) Infer() error {
	r.pending = nil
	if status := r.interp.Invoke(); status != tflite.OK {
		r.pending = inference.Errorf(inference.StatusInferFailure, "invoke returned status %d", status)
		return r.pending
	}
	return nil
}

func (r *tfRequest) Wait() error {
	err := r.pending
	r.pending = nil
	return err
}

func (r *tfRequest) Close() error {
	if r.interp != nil {
		r.interp.Delete()
		r.interp = nil
	}
	return nil
}

type tfTensor struct {
	t *tflite.Tensor
}

func (t tfTensor) RawBuffer() []byte {
	size := int(t.t.ByteSize())
	if size == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(t.t.Data()), size)
}

func newInterpreter(model *tflite.Model, options *tflite.InterpreterOptions) (*tflite.Interpreter, error) {
	interp := tflite.NewInterpreter(model, options)
	if interp == nil {
		return nil, inference.Errorf(inference.StatusRequestFailure, "cannot create interpreter")
	}
	if status := interp.AllocateTensors(); status != tflite.OK {
		interp.Delete()
		return nil, inference.Errorf(inference.StatusRequestFailure, "allocate tensors returned status %d", status)
	}
	return interp, nil
}

func outputByName(interp *tflite.Interpreter, name string) *tflite.Tensor {
	for i := 0; i < interp.GetOutputTensorCount(); i++ {
		if t := interp.GetOutputTensor(i); t != nil && t.Name() == name {
			return t
		}
	}
	return nil
}

func tensorInfo(t *tflite.Tensor) inference.TensorInfo {
	shape := make([]int, t.NumDims())
	for i := range shape {
		shape[i] = t.Dim(i)
	}
	return inference.TensorInfo{Name: t.Name(), Shape: shape}
}

// String implements fmt.Stringer for log lines.
func (e Engine) String() string {
	return fmt.Sprintf("tflite(dir=%s, threads=%d)", e.ModelDir, e.Threads)
}
