package inference

import (
	"fmt"
	"unsafe"
)

const float32Size = int(unsafe.Sizeof(float32(0)))

// Float32s reinterprets a raw tensor buffer as contiguous float32 values in
// native byte order. The returned slice aliases buf.
func Float32s(buf []byte) ([]float32, error) {
	if len(buf) == 0 {
		return nil, nil
	}
	if len(buf)%float32Size != 0 {
		return nil, fmt.Errorf("buffer of %d bytes is not a whole number of float32 values", len(buf))
	}
	if uintptr(unsafe.Pointer(&buf[0]))%unsafe.Alignof(float32(0)) != 0 {
		return nil, fmt.Errorf("buffer is not aligned for float32 access")
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&buf[0])), len(buf)/float32Size), nil
}

// Bytes reinterprets float32 values as their raw backing bytes.
// The returned slice aliases values.
func Bytes(values []float32) []byte {
	if len(values) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&values[0])), len(values)*float32Size)
}
