package slicer

import (
	"fmt"
	"math"

	"github.com/gogpu/slicer/internal/filter"
	"github.com/gogpu/slicer/internal/segment"
)

// Segment is a connected region of fully cured pixels.
type Segment = segment.Segment

// Spot is a measured segment of one layer.
type Spot struct {
	Segment
	// Area is the cured area in mm².
	Area float64
	// Small reports whether Area is at or below the threshold.
	Small bool
}

// SmallFeatureSuppressor turns a rendered layer into the mask of the
// small-spot compensation pass: pixels of spots at or below the area
// threshold are cleared, pixels of larger spots are set, and the result is
// grown by the compensation distance.
type SmallFeatureSuppressor struct {
	pixelArea  float64
	pixelStep  float32
	threshold  float64
	inflate    float32
	connection segment.Connectivity
}

// NewSmallFeatureSuppressor creates a suppressor for the given settings.
func NewSmallFeatureSuppressor(s *Settings) *SmallFeatureSuppressor {
	return &SmallFeatureSuppressor{
		pixelArea:  float64(s.PixelArea()),
		pixelStep:  (s.PixelWidth() + s.PixelHeight()) / 2,
		threshold:  float64(s.SmallSpots.Threshold),
		inflate:    s.SmallSpots.InflateDistance,
		connection: segment.Connectivity(s.connectivity()),
	}
}

// growRounds returns the number of 3x3 dilations covering distances
// 0, step, 2*step ... up to the compensation distance, capped at limit.
func (f *SmallFeatureSuppressor) growRounds(limit int) int {
	if !(f.pixelStep > 0) || !(f.inflate >= 0) {
		return 1
	}
	r := math.Floor(float64(f.inflate)/float64(f.pixelStep)) + 1
	if r > float64(limit) {
		return limit
	}
	return int(r)
}

// Spots labels the fully covered pixels of r and measures every segment.
// The label map has one entry per pixel, 0 for background.
func (f *SmallFeatureSuppressor) Spots(r *Raster) ([]Spot, []uint32, error) {
	pix := r.Data()
	labels, segs, err := segment.Label(pix, r.Width(), r.Height(), 255, f.connection)
	if err != nil {
		return nil, nil, fmt.Errorf("slicer: label spots: %w", err)
	}

	coverage := make([]float64, len(segs)+1)
	for i, l := range labels {
		if l != 0 {
			coverage[l] += float64(pix[i]) / 255
		}
	}

	spots := make([]Spot, len(segs))
	for i, s := range segs {
		area := coverage[s.Label] * f.pixelArea
		spots[i] = Spot{Segment: s, Area: area, Small: area <= f.threshold}
	}
	return spots, labels, nil
}

// BuildMask returns the compensation mask for r. r is not modified.
func (f *SmallFeatureSuppressor) BuildMask(r *Raster) (*Raster, []Spot, error) {
	spots, labels, err := f.Spots(r)
	if err != nil {
		return nil, nil, err
	}

	w, h := r.Width(), r.Height()
	src := r.Data()
	mask := r.Clone()
	dst := mask.Data()

	for _, s := range spots {
		fill := uint8(255)
		if s.Small {
			fill = 0
		}
		x0, x1 := max(s.XBegin-1, 0), min(s.XEnd+1, w)
		y0, y1 := max(s.YBegin-1, 0), min(s.YEnd+1, h)
		for y := y0; y < y1; y++ {
			for x := x0; x < x1; x++ {
				i := y*w + x
				if src[i] > 0 && touches(labels, w, h, x, y, s.Label) {
					dst[i] = fill
				}
			}
		}
	}

	f.grow(mask)
	return mask, spots, nil
}

// touches reports whether the 3x3 neighborhood of (x, y) holds label.
func touches(labels []uint32, w, h, x, y int, label uint32) bool {
	for ny := max(y-1, 0); ny <= min(y+1, h-1); ny++ {
		for nx := max(x-1, 0); nx <= min(x+1, w-1); nx++ {
			if labels[ny*w+nx] == label {
				return true
			}
		}
	}
	return false
}

// grow dilates the mask one pixel at a time until the grown distance
// exceeds the compensation distance. Past max(w, h) rounds further
// dilation changes nothing.
func (f *SmallFeatureSuppressor) grow(mask *Raster) {
	w, h := mask.Width(), mask.Height()
	tmp := make([]uint8, w*h)
	for range f.growRounds(max(w, h) + 1) {
		filter.Dilate3x3(tmp, mask.data, w, h)
		mask.data, tmp = tmp, mask.data
	}
}
