package slicer

import (
	"math"
	"testing"
)

// spotSettings describes a 10x10 mm plate at 1 px per mm with a 2 mm²
// small-spot threshold.
func spotSettings(conn Connectivity) *Settings {
	s := DefaultSettings()
	s.PlateWidth, s.PlateHeight = 10, 10
	s.RenderWidth, s.RenderHeight = 10, 10
	s.SmallSpots = SmallSpotSettings{
		Enabled:      true,
		Threshold:    2,
		Connectivity: conn,
	}
	return &s
}

// spotRaster holds a single pixel spot at (1, 1) with a partially covered
// neighbor, and a 3x3 block at (5..7, 5..7) with a partially covered pixel
// at (4, 6).
func spotRaster() *Raster {
	r := NewRaster(10, 10)
	r.Set(1, 1, 255)
	r.Set(2, 1, 100)
	for y := 5; y <= 7; y++ {
		for x := 5; x <= 7; x++ {
			r.Set(x, y, 255)
		}
	}
	r.Set(4, 6, 100)
	return r
}

func TestSpots(t *testing.T) {
	f := NewSmallFeatureSuppressor(spotSettings(Connectivity8))
	spots, labels, err := f.Spots(spotRaster())
	if err != nil {
		t.Fatal(err)
	}
	if len(spots) != 2 {
		t.Fatalf("found %d spots, want 2", len(spots))
	}
	if len(labels) != 100 {
		t.Errorf("label map has %d entries, want 100", len(labels))
	}
	for _, s := range spots {
		switch s.Area {
		case 1:
			if !s.Small {
				t.Error("1 mm² spot not small")
			}
		case 9:
			if s.Small {
				t.Error("9 mm² spot small")
			}
		default:
			t.Errorf("unexpected spot area %v", s.Area)
		}
	}
}

func TestSpotAtThresholdIsSmall(t *testing.T) {
	r := NewRaster(10, 10)
	r.Set(3, 3, 255)
	r.Set(4, 3, 255)
	f := NewSmallFeatureSuppressor(spotSettings(Connectivity4))
	spots, _, err := f.Spots(r)
	if err != nil {
		t.Fatal(err)
	}
	if len(spots) != 1 || !spots[0].Small {
		t.Errorf("spots = %+v, want one small 2 mm² spot", spots)
	}
}

func TestBuildMask(t *testing.T) {
	src := spotRaster()
	orig := src.Clone()
	f := NewSmallFeatureSuppressor(spotSettings(Connectivity8))
	mask, _, err := f.BuildMask(src)
	if err != nil {
		t.Fatal(err)
	}

	for i, v := range src.Data() {
		if v != orig.Data()[i] {
			t.Fatal("BuildMask modified its input")
		}
	}

	tests := []struct {
		x, y int
		want uint8
	}{
		{1, 1, 0},   // small spot cleared
		{2, 1, 0},   // its partial neighbor cleared
		{0, 0, 0},   // grown from nothing
		{6, 6, 255}, // large spot kept
		{4, 4, 255}, // large spot grown by one pixel
		{8, 8, 255},
		{3, 6, 255}, // grown from the promoted partial pixel
		{3, 3, 0},
		{9, 9, 0},
	}
	for _, tt := range tests {
		if got := mask.At(tt.x, tt.y); got != tt.want {
			t.Errorf("mask(%d, %d) = %d, want %d", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestBuildMaskGrowsByDistance(t *testing.T) {
	s := spotSettings(Connectivity8)
	s.SmallSpots.InflateDistance = 2
	f := NewSmallFeatureSuppressor(s)

	r := NewRaster(10, 10)
	for y := 4; y <= 6; y++ {
		for x := 4; x <= 6; x++ {
			r.Set(x, y, 255)
		}
	}
	mask, _, err := f.BuildMask(r)
	if err != nil {
		t.Fatal(err)
	}
	// Expansion steps 0, 1 and 2 each dilate once.
	if mask.At(1, 5) != 255 || mask.At(0, 5) != 0 {
		t.Errorf("row 5 = %v, want growth of 3 pixels", mask.Data()[50:60])
	}
}

func TestGrowRounds(t *testing.T) {
	tests := []struct {
		inflate float32
		want    int
	}{
		{0, 1},
		{0.5, 1},
		{1, 2},
		{2, 3},
		{1e9, 11},
		{float32(math.Inf(1)), 11},
		{float32(math.NaN()), 1},
	}
	for _, tt := range tests {
		s := spotSettings(Connectivity8)
		s.SmallSpots.InflateDistance = tt.inflate
		if got := NewSmallFeatureSuppressor(s).growRounds(11); got != tt.want {
			t.Errorf("growRounds(%v) = %d, want %d", tt.inflate, got, tt.want)
		}
	}
}

func TestBuildMaskHugeDistanceFillsRaster(t *testing.T) {
	s := spotSettings(Connectivity8)
	s.SmallSpots.InflateDistance = float32(math.Inf(1))
	r := NewRaster(10, 10)
	for y := 4; y <= 6; y++ {
		for x := 4; x <= 6; x++ {
			r.Set(x, y, 255)
		}
	}
	mask, _, err := NewSmallFeatureSuppressor(s).BuildMask(r)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range mask.Data() {
		if v != 255 {
			t.Fatalf("mask pixel %d = %d, want 255", i, v)
		}
	}
}
