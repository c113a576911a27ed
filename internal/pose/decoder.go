package pose

import (
	"errors"
	"fmt"
	"math"
)

const (
	// ModelInputSize is the coordinate range of the model output (256x256 crop).
	ModelInputSize = 256.0

	// rawScoreLimit keeps sigmoid inputs inside float32 range.
	rawScoreLimit = 80.0
)

// ErrTensorShape reports an output tensor that cannot be split into landmark slots.
var ErrTensorShape = errors.New("output tensor shape does not match landmark layout")

// Decoder converts the model's flat output tensor into landmarks in display space.
type Decoder struct {
	Width  float32 // display width in pixels
	Height float32 // display height in pixels

	// DecodeAuxiliary enables Z, Visibility and Presence decoding.
	DecodeAuxiliary bool
}

// ChannelsPerLandmark returns the number of values per landmark slot for an
// output tensor of total elements.
func ChannelsPerLandmark(total int) (int, error) {
	if total <= 0 || total%NumLandmarks != 0 {
		return 0, fmt.Errorf("%w: %d elements is not a multiple of %d landmarks", ErrTensorShape, total, NumLandmarks)
	}
	channels := total / NumLandmarks
	if channels < 2 {
		return 0, fmt.Errorf("%w: %d channels per landmark, need at least x and y", ErrTensorShape, channels)
	}
	return channels, nil
}

// Decode appends NumLandmarks landmarks decoded from raw to dst[:0] and returns
// the result. total is the element count reported by the model.
func (d Decoder) Decode(total int, raw []float32, dst []Landmark) ([]Landmark, error) {
	channels, err := ChannelsPerLandmark(total)
	if err != nil {
		return dst[:0], err
	}
	if len(raw) < total {
		return dst[:0], fmt.Errorf("%w: buffer holds %d values, model reports %d", ErrTensorShape, len(raw), total)
	}

	dst = dst[:0]
	for i := 0; i < NumLandmarks; i++ {
		base := raw[i*channels : (i+1)*channels]

		lm := Landmark{
			X: (base[0] / ModelInputSize) * d.Width,
			Y: (base[1] / ModelInputSize) * d.Height,
		}
		if d.DecodeAuxiliary {
			if channels > 2 {
				lm.Z = base[2]
			}
			if channels > 3 {
				lm.Visibility = sigmoid(base[3])
			}
			if channels > 4 {
				lm.Presence = sigmoid(base[4])
			}
		}
		dst = append(dst, lm)
	}
	return dst, nil
}

func sigmoid(x float32) float32 {
	if x > rawScoreLimit {
		x = rawScoreLimit
	} else if x < -rawScoreLimit {
		x = -rawScoreLimit
	}
	return float32(1.0 / (1.0 + math.Exp(-float64(x))))
}
