// Package segment labels connected regions of a single channel image.
package segment

import "fmt"

// Connectivity selects the neighborhood of a pixel.
type Connectivity int

// Supported neighborhoods.
const (
	Four  Connectivity = 4
	Eight Connectivity = 8
)

// Segment describes one connected region. Ranges are half open.
type Segment struct {
	Label  uint32
	XBegin int
	XEnd   int
	YBegin int
	YEnd   int
	Pixels int
}

// Width returns the width of the bounding box.
func (s Segment) Width() int { return s.XEnd - s.XBegin }

// Height returns the height of the bounding box.
func (s Segment) Height() int { return s.YEnd - s.YBegin }

var (
	offsets4 = [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	offsets8 = [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}, {1, 1}, {-1, 1}, {1, -1}, {-1, -1}}
)

// Label assigns a label to every pixel of pix whose value is >= threshold,
// giving connected pixels the same label. Label 0 is background; labels of
// segments start at 1 and are unique. segments[i].Label == i+1.
func Label(pix []uint8, width, height int, threshold uint8, conn Connectivity) (labels []uint32, segments []Segment, err error) {
	if len(pix) != width*height {
		return nil, nil, fmt.Errorf("segment: %d pixels for %dx%d image", len(pix), width, height)
	}
	var offsets [][2]int
	switch conn {
	case Four:
		offsets = offsets4
	case Eight:
		offsets = offsets8
	default:
		return nil, nil, fmt.Errorf("segment: unsupported connectivity %d", conn)
	}

	labels = make([]uint32, len(pix))
	var stack []int32
	for start, v := range pix {
		if v < threshold || labels[start] != 0 {
			continue
		}
		seg := Segment{
			Label:  uint32(len(segments) + 1),
			XBegin: start % width,
			XEnd:   start%width + 1,
			YBegin: start / width,
			YEnd:   start/width + 1,
		}
		labels[start] = seg.Label
		stack = append(stack[:0], int32(start))
		for len(stack) > 0 {
			i := int(stack[len(stack)-1])
			stack = stack[:len(stack)-1]
			x, y := i%width, i/width
			seg.Pixels++
			seg.XBegin = min(seg.XBegin, x)
			seg.XEnd = max(seg.XEnd, x+1)
			seg.YBegin = min(seg.YBegin, y)
			seg.YEnd = max(seg.YEnd, y+1)

			for _, o := range offsets {
				nx, ny := x+o[0], y+o[1]
				if nx < 0 || ny < 0 || nx >= width || ny >= height {
					continue
				}
				n := ny*width + nx
				if pix[n] < threshold || labels[n] != 0 {
					continue
				}
				labels[n] = seg.Label
				stack = append(stack, int32(n))
			}
		}
		segments = append(segments, seg)
	}
	return labels, segments, nil
}
