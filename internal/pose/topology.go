package pose

import "fmt"

// Bone connects two landmark indices with a visible segment.
type Bone struct {
	From int
	To   int
}

// skeleton is the fixed bone table of the 39-point body model.
// Order only affects draw order when bones overlap.
var skeleton = [35]Bone{
	{0, 1}, {1, 2}, {2, 3}, {3, 7}, {0, 4}, {4, 5}, {5, 6}, {6, 8},
	{9, 10},
	{11, 12}, {11, 13}, {13, 15}, {15, 17}, {17, 19}, {19, 15}, {15, 21},
	{12, 14}, {14, 16}, {16, 18}, {16, 22}, {18, 20}, {20, 16},
	{12, 24}, {11, 23}, {24, 23},
	{24, 26}, {26, 28}, {28, 32}, {28, 30}, {32, 30},
	{23, 25}, {25, 27}, {27, 29}, {27, 31}, {29, 31},
}

// Bones returns a copy of the skeleton table.
func Bones() []Bone {
	bones := make([]Bone, len(skeleton))
	copy(bones, skeleton[:])
	return bones
}

// ValidateTopology checks that every bone references a landmark in [0, n).
func ValidateTopology(bones []Bone, n int) error {
	for i, b := range bones {
		if b.From < 0 || b.From >= n || b.To < 0 || b.To >= n {
			return fmt.Errorf("bone %d (%d,%d) out of range for %d landmarks", i, b.From, b.To, n)
		}
	}
	return nil
}
