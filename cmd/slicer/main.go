// Command slicer renders a mesh into the layer images of a resin printer.
//
// Usage:
//
//	slicer -model part.stl -out layers [-config printer.json] [-backend software|wgpu]
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/slicer"
	"github.com/gogpu/slicer/backend"
	_ "github.com/gogpu/slicer/gpu" // enable the wgpu backend
	"github.com/gogpu/slicer/internal/config"
	"github.com/gogpu/slicer/internal/mesh"
	"github.com/gogpu/slicer/internal/report"
)

func main() {
	var (
		model       = flag.String("model", "", "STL model to slice")
		out         = flag.String("out", "", "output directory (default from config or .)")
		configPath  = flag.String("config", "", "JSON settings file")
		backendName = flag.String("backend", "", "rasterization backend: software or wgpu (default: best available)")
		samples     = flag.Int("samples", 0, "multisample count, 1 or 4")
		step        = flag.Float64("step", 0, "layer height in mm")
		format      = flag.String("format", "", "layer image format: png, bmp or tiff")
		mirrorX     = flag.Bool("mirror-x", false, "mirror layers horizontally")
		mirrorY     = flag.Bool("mirror-y", false, "mirror layers vertically")
		inflate     = flag.Float64("inflate", 0, "grow every layer by this distance in mm")
		smallSpots  = flag.Bool("small-spots", false, "suppress small isolated spots")
		overhangs   = flag.Bool("overhangs", false, "detect unsupported regions")
		jitter      = flag.Bool("jitter", false, "also save every layer shifted by half a pixel")
		simulate    = flag.Bool("simulate", false, "run the pipeline without writing images")
		reportPath  = flag.String("report", "report.json", "job report file, relative to the output directory")
		plotPath    = flag.String("plot", "", "area profile chart, relative to the output directory")
		saveConfig  = flag.String("save-config", "", "write the effective settings to this JSON file")
		verbose     = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slicer.SetLogger(logger)

	settings := slicer.DefaultSettings()
	if *configPath != "" {
		f, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		if err := f.Apply(&settings); err != nil {
			log.Fatalf("Failed to apply config: %v", err)
		}
	}

	// Flags given on the command line override the config file.
	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "model":
			settings.ModelFile = *model
		case "out":
			settings.OutputDir = *out
		case "samples":
			settings.Samples = *samples
		case "step":
			settings.Step = float32(*step)
		case "format":
			settings.ImageFormat = *format
		case "mirror-x":
			settings.MirrorX = *mirrorX
		case "mirror-y":
			settings.MirrorY = *mirrorY
		case "inflate":
			settings.Inflate = slicer.InflateSettings{Enabled: *inflate > 0, Distance: float32(*inflate)}
		case "small-spots":
			settings.SmallSpots.Enabled = *smallSpots
		case "overhangs":
			settings.Overhangs.Enabled = *overhangs
		case "jitter":
			settings.Jitter = *jitter
		case "simulate":
			settings.Simulate = *simulate
		}
	})
	if err := settings.Validate(); err != nil {
		log.Fatalf("Invalid settings: %v", err)
	}
	if settings.ModelFile == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *saveConfig != "" {
		if err := config.FromSettings(settings).Save(*saveConfig); err != nil {
			log.Fatalf("Failed to save config: %v", err)
		}
	}

	if err := os.MkdirAll(settings.OutputDir, 0o755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	meshes, err := mesh.Load(settings.ModelFile)
	if err != nil {
		log.Fatalf("Failed to load model: %v", err)
	}
	store, err := slicer.NewGeometryStore(settings, meshes)
	if err != nil {
		log.Fatalf("Failed to prepare model: %v", err)
	}

	sess, err := slicer.NewSession(settings, store, slicer.WithDeviceFactory(backend.Factory(*backendName)))
	if err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rep := report.New(settings)
	start := time.Now()
	runErr := sess.Run(ctx, func(info slicer.LayerInfo) error {
		rep.Add(info)
		return nil
	})
	closeErr := sess.Close()
	if runErr != nil {
		log.Fatalf("Slicing failed: %v", runErr)
	}
	if closeErr != nil {
		log.Fatalf("Failed to write layers: %v", closeErr)
	}
	elapsed := time.Since(start)

	summary := rep.Finish()
	if *reportPath != "" {
		if err := rep.WriteJSON(filepath.Join(settings.OutputDir, *reportPath)); err != nil {
			log.Fatalf("Failed to write report: %v", err)
		}
	}
	if *plotPath != "" {
		if err := rep.PlotArea(filepath.Join(settings.OutputDir, *plotPath)); err != nil {
			log.Fatalf("Failed to write plot: %v", err)
		}
	}

	p := message.NewPrinter(language.English)
	p.Fprintf(os.Stdout, "%d layers in %v (%.2f mm³ resin, %d overhang layers)\n",
		summary.Layers, elapsed.Round(time.Millisecond), summary.Volume, len(summary.OverhangLayers))
}
