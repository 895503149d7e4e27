// Package report collects per-layer statistics of a slicing job and writes
// them as a JSON manifest and an optional area-profile chart.
package report

import (
	"encoding/json"
	"fmt"
	"image/color"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/gogpu/slicer"
	"github.com/gogpu/slicer/internal/config"
)

// Layer is the record of one rendered layer.
type Layer struct {
	Index    uint32  `json:"index"`
	Z        float32 `json:"z"`
	Area     float64 `json:"area"` // mm²
	Overhang bool    `json:"overhang,omitempty"`
}

// Summary holds aggregate statistics over all layers.
type Summary struct {
	Layers         int      `json:"layers"`
	OverhangLayers []uint32 `json:"overhang_layers"`
	TotalArea      float64  `json:"total_area"`
	MeanArea       float64  `json:"mean_area"`
	StdDevArea     float64  `json:"stddev_area"`
	MaxArea        float64  `json:"max_area"`
	// Volume approximates the cured resin in mm³ as the sum of layer
	// areas times the layer height.
	Volume float64 `json:"volume"`
}

// Report accumulates layers for a single job. It is safe for concurrent use.
type Report struct {
	JobID    string       `json:"job_id"`
	Started  time.Time    `json:"started"`
	Finished time.Time    `json:"finished,omitzero"`
	Settings *config.File `json:"settings"`
	Summary  Summary      `json:"summary"`
	Layers   []Layer      `json:"layers"`

	mu   sync.Mutex
	step float32
}

// New starts a report for a job run with s.
func New(s slicer.Settings) *Report {
	return &Report{
		JobID:    uuid.New().String(),
		Started:  time.Now().UTC(),
		Settings: config.FromSettings(s),
		Layers:   []Layer{},
		step:     s.Step,
	}
}

// Add records a finished layer.
func (r *Report) Add(info slicer.LayerInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Layers = append(r.Layers, Layer{
		Index:    info.Index,
		Z:        info.Z,
		Area:     info.Area,
		Overhang: info.Overhang,
	})
}

// Finish stamps the end time and computes the summary.
func (r *Report) Finish() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Finished = time.Now().UTC()
	r.Summary = summarize(r.Layers, r.step)
	return r.Summary
}

func summarize(layers []Layer, step float32) Summary {
	sum := Summary{
		Layers:         len(layers),
		OverhangLayers: []uint32{},
	}
	if len(layers) == 0 {
		return sum
	}
	areas := make([]float64, len(layers))
	for i, l := range layers {
		a := l.Area
		areas[i] = a
		sum.TotalArea += a
		sum.MaxArea = max(sum.MaxArea, a)
		if l.Overhang {
			sum.OverhangLayers = append(sum.OverhangLayers, l.Index)
		}
	}
	if len(areas) > 1 {
		sum.MeanArea, sum.StdDevArea = stat.MeanStdDev(areas, nil)
	} else {
		sum.MeanArea = areas[0]
	}
	sum.Volume = sum.TotalArea * float64(step)
	return sum
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(path string) error {
	r.mu.Lock()
	data, err := json.MarshalIndent(r, "", "  ")
	r.mu.Unlock()
	if err != nil {
		return fmt.Errorf("report: encode: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}

// PlotArea draws the cross-section area against layer height and saves
// the chart to path. The image format follows the path extension.
func (r *Report) PlotArea(path string) error {
	r.mu.Lock()
	pts := make(plotter.XYs, 0, len(r.Layers))
	var over plotter.XYs
	for _, l := range r.Layers {
		xy := plotter.XY{X: float64(l.Z), Y: l.Area}
		pts = append(pts, xy)
		if l.Overhang {
			over = append(over, xy)
		}
	}
	r.mu.Unlock()

	p := plot.New()
	p.Title.Text = "Layer area"
	p.X.Label.Text = "Z (mm)"
	p.Y.Label.Text = "Area (mm²)"

	if len(pts) > 0 {
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add("area", line)
	}
	if len(over) > 0 {
		sc, err := plotter.NewScatter(over)
		if err != nil {
			return err
		}
		sc.GlyphStyle.Color = color.RGBA{R: 220, A: 255}
		p.Add(sc)
		p.Legend.Add("overhang", sc)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(10*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("report: save plot: %w", err)
	}
	return nil
}
