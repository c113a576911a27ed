// Package inference defines the contract between the frame pipeline and a
// pose-estimation runtime.
//
// The pipeline treats the runtime as a pure function from input tensor to
// output tensor. Every step is fallible and callers short-circuit on the
// first error. Tensor buffers are valid only until the next inference call on
// the same request and must never be retained across iterations.
package inference

import (
	"fmt"
	"io"
)

// Engine creates runtime contexts.
type Engine interface {
	CreateContext() (Context, error)
}

// Context owns the runtime and loads models.
type Context interface {
	io.Closer
	LoadModel(name string) (Model, error)
}

// Model is a loaded pose model.
type Model interface {
	io.Closer
	OutputTensorInfo(name string) (TensorInfo, error)
	CreateRequest() (Request, error)
}

// Request is a reusable inference request bound to one model.
type Request interface {
	io.Closer
	InputTensor(name string) (Tensor, error)
	OutputTensor(name string) (Tensor, error)

	// Infer starts inference on the current input tensor contents.
	Infer() error
	// Wait blocks until the inference started by Infer completes.
	Wait() error
}

// Tensor exposes the raw backing memory of a request tensor.
type Tensor interface {
	RawBuffer() []byte
}

// TensorInfo describes a model tensor.
type TensorInfo struct {
	Name  string
	Shape []int
}

// ElementCount returns the product of the tensor dimensions.
func (ti TensorInfo) ElementCount() int {
	if len(ti.Shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range ti.Shape {
		n *= d
	}
	return n
}

// Status classifies which step of the runtime failed.
type Status int

const (
	StatusInitFailure Status = iota
	StatusModelLoad
	StatusTensorLookup
	StatusRequestFailure
	StatusInferFailure
	StatusDeviceError
)

var statusNames = map[Status]string{
	StatusInitFailure:    "InitFailure",
	StatusModelLoad:      "ModelLoad",
	StatusTensorLookup:   "TensorLookup",
	StatusRequestFailure: "RequestFailure",
	StatusInferFailure:   "InferFailure",
	StatusDeviceError:    "DeviceError",
}

// String returns the status name
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "Unknown"
}

// Error is a runtime failure tagged with the failing step.
type Error struct {
	Status  Status
	Message string
	Err     error
}

// Errorf creates an Error for status.
func Errorf(status Status, format string, args ...interface{}) *Error {
	return &Error{Status: status, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error for status around err.
func Wrap(status Status, err error, format string, args ...interface{}) *Error {
	return &Error{Status: status, Message: fmt.Sprintf(format, args...), Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Status, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}
