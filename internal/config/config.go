// Package config loads slicing settings from JSON files.
//
// A config file is a partial overlay: every field is optional and only the
// fields present in the file replace values of the settings it is applied
// to. The same file can therefore describe a printer (plate and resolution)
// or a single job (step, inflate, small spots) without repeating the rest.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gogpu/slicer"
)

// maxFileSize bounds the size of a config file.
const maxFileSize = 1 * 1024 * 1024

// File is the on-disk representation of slicer.Settings.
type File struct {
	PlateWidth   *float32 `json:"plate_width,omitempty"`
	PlateHeight  *float32 `json:"plate_height,omitempty"`
	RenderWidth  *int     `json:"render_width,omitempty"`
	RenderHeight *int     `json:"render_height,omitempty"`
	Samples      *int     `json:"samples,omitempty"`
	Step         *float32 `json:"step,omitempty"`
	MirrorX      *bool    `json:"mirror_x,omitempty"`
	MirrorY      *bool    `json:"mirror_y,omitempty"`

	Inflate    *Inflate    `json:"inflate,omitempty"`
	SmallSpots *SmallSpots `json:"small_spots,omitempty"`
	Overhangs  *Overhangs  `json:"overhangs,omitempty"`

	Queue       *int    `json:"queue,omitempty"`
	Simulate    *bool   `json:"simulate,omitempty"`
	Jitter      *bool   `json:"jitter,omitempty"`
	OutputDir   *string `json:"output_dir,omitempty"`
	ImageFormat *string `json:"image_format,omitempty"`
	ModelFile   *string `json:"model_file,omitempty"`
}

// Inflate mirrors slicer.InflateSettings.
type Inflate struct {
	Enabled  *bool    `json:"enabled,omitempty"`
	Distance *float32 `json:"distance,omitempty"`
}

// SmallSpots mirrors slicer.SmallSpotSettings.
type SmallSpots struct {
	Enabled         *bool    `json:"enabled,omitempty"`
	Threshold       *float32 `json:"threshold,omitempty"`
	InflateDistance *float32 `json:"inflate_distance,omitempty"`
	Connectivity    *int     `json:"connectivity,omitempty"`
}

// Overhangs mirrors slicer.OverhangSettings.
type Overhangs struct {
	Enabled              *bool    `json:"enabled,omitempty"`
	MaxSupportedDistance *float32 `json:"max_supported_distance,omitempty"`
}

// Load reads a config file. The path must have a .json extension and the
// file must not exceed 1 MiB.
func Load(path string) (*File, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a config from JSON. Unknown fields are rejected so that a
// misspelled key does not silently fall back to a default.
func Parse(data []byte) (*File, error) {
	var f File
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	return &f, nil
}

// Apply overlays the fields present in f onto s and validates the result.
// s is left unchanged when the result is invalid.
func (f *File) Apply(s *slicer.Settings) error {
	out := *s

	set(&out.PlateWidth, f.PlateWidth)
	set(&out.PlateHeight, f.PlateHeight)
	set(&out.RenderWidth, f.RenderWidth)
	set(&out.RenderHeight, f.RenderHeight)
	set(&out.Samples, f.Samples)
	set(&out.Step, f.Step)
	set(&out.MirrorX, f.MirrorX)
	set(&out.MirrorY, f.MirrorY)

	if f.Inflate != nil {
		set(&out.Inflate.Enabled, f.Inflate.Enabled)
		set(&out.Inflate.Distance, f.Inflate.Distance)
	}
	if f.SmallSpots != nil {
		set(&out.SmallSpots.Enabled, f.SmallSpots.Enabled)
		set(&out.SmallSpots.Threshold, f.SmallSpots.Threshold)
		set(&out.SmallSpots.InflateDistance, f.SmallSpots.InflateDistance)
		if f.SmallSpots.Connectivity != nil {
			out.SmallSpots.Connectivity = slicer.Connectivity(*f.SmallSpots.Connectivity)
		}
	}
	if f.Overhangs != nil {
		set(&out.Overhangs.Enabled, f.Overhangs.Enabled)
		set(&out.Overhangs.MaxSupportedDistance, f.Overhangs.MaxSupportedDistance)
	}

	set(&out.Queue, f.Queue)
	set(&out.Simulate, f.Simulate)
	set(&out.Jitter, f.Jitter)
	set(&out.OutputDir, f.OutputDir)
	set(&out.ImageFormat, f.ImageFormat)
	set(&out.ModelFile, f.ModelFile)

	if err := out.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	*s = out
	return nil
}

// FromSettings returns a File with every field of s set.
func FromSettings(s slicer.Settings) *File {
	conn := int(s.SmallSpots.Connectivity)
	return &File{
		PlateWidth:   &s.PlateWidth,
		PlateHeight:  &s.PlateHeight,
		RenderWidth:  &s.RenderWidth,
		RenderHeight: &s.RenderHeight,
		Samples:      &s.Samples,
		Step:         &s.Step,
		MirrorX:      &s.MirrorX,
		MirrorY:      &s.MirrorY,
		Inflate: &Inflate{
			Enabled:  &s.Inflate.Enabled,
			Distance: &s.Inflate.Distance,
		},
		SmallSpots: &SmallSpots{
			Enabled:         &s.SmallSpots.Enabled,
			Threshold:       &s.SmallSpots.Threshold,
			InflateDistance: &s.SmallSpots.InflateDistance,
			Connectivity:    &conn,
		},
		Overhangs: &Overhangs{
			Enabled:              &s.Overhangs.Enabled,
			MaxSupportedDistance: &s.Overhangs.MaxSupportedDistance,
		},
		Queue:       &s.Queue,
		Simulate:    &s.Simulate,
		Jitter:      &s.Jitter,
		OutputDir:   &s.OutputDir,
		ImageFormat: &s.ImageFormat,
		ModelFile:   &s.ModelFile,
	}
}

// Save writes f as indented JSON.
func (f *File) Save(path string) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
