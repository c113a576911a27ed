package pose

import "image"

// NumLandmarks is the number of keypoints the pose model emits per frame.
const NumLandmarks = 39

// Landmark is one decoded joint estimate for the current frame.
// X and Y are pixel coordinates in the display frame. Z, Visibility and
// Presence are only filled when auxiliary decoding is enabled.
type Landmark struct {
	X          float32
	Y          float32
	Z          float32
	Visibility float32
	Presence   float32
}

// Point returns the pixel position of the landmark, truncated toward zero.
func (l Landmark) Point() image.Point {
	return image.Pt(int(l.X), int(l.Y))
}
