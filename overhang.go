package slicer

import (
	"fmt"
	"path/filepath"
)

// LayerPath returns the image path of a layer.
func LayerPath(dir string, layer uint32, ext string) string {
	return filepath.Join(dir, fmt.Sprintf("%05d%s", layer, ext))
}

// OverhangPath returns the path of the overhang diagnostic of a layer.
func OverhangPath(dir string, layer uint32, ext string) string {
	return filepath.Join(dir, fmt.Sprintf("%05d_overhangs%s", layer, ext))
}

// JitterPath returns the path of the half-pixel shifted render of a layer.
func JitterPath(dir string, layer uint32, ext string) string {
	return filepath.Join(dir, fmt.Sprintf("%05d_jitter%s", layer, ext))
}

// HasOverhangs reports whether a difference image contains a fully
// unsupported pixel.
func HasOverhangs(pix []uint8) bool {
	for _, v := range pix {
		if v >= 255 {
			return true
		}
	}
	return false
}

// OverhangDetector compares every layer against the grown previous layer.
// The previous layer lives in TargetPrevious of the device and starts all
// white, so the first layer never reports overhangs.
type OverhangDetector struct {
	dev        Device
	writer     ImageWriter
	kernelSize int
	dir        string
	ext        string
}

// NewOverhangDetector creates a detector and initializes TargetPrevious.
func NewOverhangDetector(dev Device, s *Settings, w ImageWriter) (*OverhangDetector, error) {
	d := &OverhangDetector{
		dev:        dev,
		writer:     w,
		kernelSize: s.SupportKernelSize(),
		dir:        s.OutputDir,
		ext:        s.Extension(),
	}
	if err := d.Reset(); err != nil {
		return nil, err
	}
	return d, nil
}

// KernelSize returns the diameter of the support disk in pixels.
func (d *OverhangDetector) KernelSize() int { return d.kernelSize }

// Reset marks the whole plate as supported.
func (d *OverhangDetector) Reset() error {
	if err := d.dev.Clear(TargetPrevious, 255); err != nil {
		return fmt.Errorf("slicer: reset previous layer: %w", err)
	}
	return nil
}

// Analyze checks the layer on the screen against the previous layer and
// then makes it the previous layer. Overhanging layers are logged and their
// difference image is saved next to the layer images.
func (d *OverhangDetector) Analyze(layer uint32) (bool, error) {
	if err := d.dev.Resolve(TargetImage); err != nil {
		return false, fmt.Errorf("slicer: overhangs: %w", err)
	}
	if err := d.dev.Filter(TargetTemporary, &FilterPass{Kernel: KernelDifference, Aux: TargetPrevious}); err != nil {
		return false, fmt.Errorf("slicer: overhangs: %w", err)
	}
	diff, err := d.dev.ReadPixels(TargetTemporary)
	if err != nil {
		return false, fmt.Errorf("slicer: overhangs: %w", err)
	}

	overhang := HasOverhangs(diff)
	if overhang {
		Logger().Info("layer has overhangs", "layer", layer)
		w, h := d.dev.Size()
		if err := d.writer.Save(OverhangPath(d.dir, layer, d.ext), w, h, diff); err != nil {
			return true, err
		}
	}

	grow := &FilterPass{Kernel: KernelOmniDilate, Scale: 1, KernelSize: d.kernelSize}
	if err := d.dev.Filter(TargetPrevious, grow); err != nil {
		return overhang, fmt.Errorf("slicer: grow previous layer: %w", err)
	}
	return overhang, nil
}
