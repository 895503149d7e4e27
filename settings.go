package slicer

import (
	"math"
	"runtime"
	"strings"
)

// Connectivity selects the pixel neighborhood used to group small spots.
type Connectivity int

// Supported neighborhoods.
const (
	Connectivity4 Connectivity = 4
	Connectivity8 Connectivity = 8
)

// InflateSettings grows every layer outward along the vertex normals.
type InflateSettings struct {
	Enabled  bool
	Distance float32 // mm
}

// SmallSpotSettings controls suppression of isolated features whose
// cross-section is too small to cure reliably.
type SmallSpotSettings struct {
	Enabled bool

	// Threshold is the area in mm² at or below which a spot is suppressed.
	Threshold float32

	// InflateDistance is the extra growth in mm applied to the surviving
	// spots by the compensation pass.
	InflateDistance float32

	Connectivity Connectivity
}

// OverhangSettings controls detection of unsupported cured regions.
type OverhangSettings struct {
	Enabled bool

	// MaxSupportedDistance is how far in mm a layer may reach beyond the
	// previous one before it counts as an overhang.
	MaxSupportedDistance float32
}

// Settings describes the printer and the slicing job. A Settings value is
// treated as immutable once a session has been created from it.
type Settings struct {
	PlateWidth   float32 // mm
	PlateHeight  float32 // mm
	RenderWidth  int     // px
	RenderHeight int     // px

	// Samples is the multisample count of the screen target: 1 or 4.
	Samples int

	// Step is the layer height in mm.
	Step float32

	MirrorX bool
	MirrorY bool

	Inflate    InflateSettings
	SmallSpots SmallSpotSettings
	Overhangs  OverhangSettings

	// Queue is the number of image writes allowed in flight before Save
	// starts to block.
	Queue int

	// Simulate runs the whole pipeline but skips encoding images.
	Simulate bool

	// Jitter additionally renders every layer shifted by half a pixel.
	Jitter bool

	OutputDir   string
	ImageFormat string // png, bmp or tiff
	ModelFile   string
}

// DefaultSettings returns settings for a 2K 5.5" LCD printer.
func DefaultSettings() Settings {
	return Settings{
		PlateWidth:   68.04,
		PlateHeight:  120.96,
		RenderWidth:  1440,
		RenderHeight: 2560,
		Samples:      1,
		Step:         0.05,
		SmallSpots: SmallSpotSettings{
			Threshold:       0.1,
			InflateDistance: 0.05,
			Connectivity:    Connectivity8,
		},
		Overhangs: OverhangSettings{
			MaxSupportedDistance: 0.5,
		},
		Queue:       runtime.NumCPU(),
		OutputDir:   ".",
		ImageFormat: "png",
	}
}

// Validate reports the first invalid field as a *ConfigurationError.
func (s *Settings) Validate() error {
	switch {
	case !(s.PlateWidth > 0) || !(s.PlateHeight > 0) || isInf(s.PlateWidth) || isInf(s.PlateHeight):
		return configError("plate", "dimensions must be positive, got %gx%g mm", s.PlateWidth, s.PlateHeight)
	case s.RenderWidth <= 0 || s.RenderHeight <= 0:
		return configError("render", "dimensions must be positive, got %dx%d px", s.RenderWidth, s.RenderHeight)
	case s.Samples != 1 && s.Samples != 4:
		return configError("samples", "must be 1 or 4, got %d", s.Samples)
	case !(s.Step > 0) || isInf(s.Step):
		return configError("step", "must be positive, got %g", s.Step)
	case !s.withinPlate(s.Inflate.Distance):
		return configError("inflate", "distance must be in [0, %g] mm, got %g", s.maxDistance(), s.Inflate.Distance)
	case !(s.SmallSpots.Threshold >= 0) || isInf(s.SmallSpots.Threshold):
		return configError("small_spots.threshold", "must be a finite non-negative area, got %g", s.SmallSpots.Threshold)
	case !s.withinPlate(s.SmallSpots.InflateDistance):
		return configError("small_spots.inflate", "must be in [0, %g] mm, got %g", s.maxDistance(), s.SmallSpots.InflateDistance)
	case s.SmallSpots.Connectivity != 0 && s.SmallSpots.Connectivity != Connectivity4 && s.SmallSpots.Connectivity != Connectivity8:
		return configError("small_spots.connectivity", "must be 4 or 8, got %d", s.SmallSpots.Connectivity)
	case !s.withinPlate(s.Overhangs.MaxSupportedDistance):
		return configError("overhangs.max_supported", "must be in [0, %g] mm, got %g", s.maxDistance(), s.Overhangs.MaxSupportedDistance)
	case s.Queue < 0:
		return configError("queue", "must not be negative, got %d", s.Queue)
	}
	switch s.Extension() {
	case ".png", ".bmp", ".tiff":
	default:
		return configError("format", "unsupported image format %q", s.ImageFormat)
	}
	return nil
}

// maxDistance is the largest grow distance accepted: the longer plate side.
func (s *Settings) maxDistance() float32 { return max(s.PlateWidth, s.PlateHeight) }

// withinPlate reports whether d is a distance in [0, maxDistance]. NaN is
// rejected.
func (s *Settings) withinPlate(d float32) bool { return d >= 0 && d <= s.maxDistance() }

func isInf(v float32) bool { return math.IsInf(float64(v), 0) }

// PixelWidth returns the physical width of one pixel in mm.
func (s *Settings) PixelWidth() float32 { return s.PlateWidth / float32(s.RenderWidth) }

// PixelHeight returns the physical height of one pixel in mm.
func (s *Settings) PixelHeight() float32 { return s.PlateHeight / float32(s.RenderHeight) }

// PixelArea returns the physical area of one pixel in mm².
func (s *Settings) PixelArea() float32 { return s.PixelWidth() * s.PixelHeight() }

// InflateDistance returns the base inflate of every pass, 0 when inflate is
// disabled.
func (s *Settings) InflateDistance() float32 {
	if !s.Inflate.Enabled {
		return 0
	}
	return s.Inflate.Distance
}

// SupportKernelSize returns the diameter in pixels of the disk used to grow
// the previous layer before overhang comparison. It is always odd.
func (s *Settings) SupportKernelSize() int {
	r := math.Ceil(float64(s.Overhangs.MaxSupportedDistance) * float64(s.RenderWidth) / float64(s.PlateWidth))
	return int(r)*2 + 1
}

// Extension returns the file extension for layer images, including the dot.
func (s *Settings) Extension() string {
	switch f := strings.ToLower(strings.TrimPrefix(s.ImageFormat, ".")); f {
	case "", "png":
		return ".png"
	case "tif", "tiff":
		return ".tiff"
	default:
		return "." + f
	}
}

func (s *Settings) connectivity() Connectivity {
	if s.SmallSpots.Connectivity == 0 {
		return Connectivity4
	}
	return s.SmallSpots.Connectivity
}
