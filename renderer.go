package slicer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/slicer/internal/writer"
)

// LayerInfo describes one finished layer.
type LayerInfo struct {
	Index    uint32
	Z        float32
	Path     string
	Area     float64 // cured area in mm²
	Overhang bool
}

// Session slices one model. It owns the sequencer position, the device and
// the image writer of the run. A Session is not safe for concurrent use;
// independent sessions may run in parallel.
type Session struct {
	settings Settings
	store    *GeometryStore
	dev      Device
	writer   ImageWriter

	meshes  []MeshID
	visible []MeshID
	seq     *SliceSequencer
	offset  mgl32.Vec2

	spots     *SmallFeatureSuppressor
	overhangs *OverhangDetector

	closed bool
}

// NewSession uploads the model to a device and prepares the first layer.
// The device comes from WithDevice or WithDeviceFactory; the image writer
// defaults to an asynchronous writer bounded by settings.Queue.
func NewSession(settings Settings, store *GeometryStore, opts ...SessionOption) (*Session, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	var o sessionOptions
	for _, opt := range opts {
		opt(&o)
	}

	dev := o.device
	if dev == nil {
		if o.factory == nil {
			return nil, ErrNoDevice
		}
		d, err := o.factory(settings.RenderWidth, settings.RenderHeight, settings.Samples)
		if err != nil {
			return nil, fmt.Errorf("slicer: create device: %w", err)
		}
		dev = d
	}
	if w, h := dev.Size(); w != settings.RenderWidth || h != settings.RenderHeight {
		_ = dev.Close()
		return nil, fmt.Errorf("%w: device is %dx%d, settings ask for %dx%d",
			ErrSizeMismatch, w, h, settings.RenderWidth, settings.RenderHeight)
	}

	iw := o.writer
	if iw == nil {
		iw = writer.New(settings.Queue,
			writer.WithSimulate(settings.Simulate),
			writer.WithLogger(Logger()))
	}

	s := &Session{
		settings: settings,
		store:    store,
		dev:      dev,
		writer:   iw,
		seq:      NewSliceSequencer(store.Bounds(), settings.Step),
	}
	trackDevice(dev)

	for i := 0; i < store.Len(); i++ {
		id, err := dev.UploadMesh(store.Submesh(i))
		if err != nil {
			return nil, errors.Join(fmt.Errorf("slicer: upload mesh %d: %w", i, err), s.Close())
		}
		s.meshes = append(s.meshes, id)
	}

	if settings.SmallSpots.Enabled {
		s.spots = NewSmallFeatureSuppressor(&s.settings)
	}
	det, err := NewOverhangDetector(dev, &s.settings, iw)
	if err != nil {
		return nil, errors.Join(err, s.Close())
	}
	s.overhangs = det
	return s, nil
}

// Settings returns the settings of the session.
func (s *Session) Settings() Settings { return s.settings }

// LayerCount returns the number of layers of the model.
func (s *Session) LayerCount() uint32 { return s.seq.LayerCount() }

// CurrentIndex returns the index of the layer on the screen.
func (s *Session) CurrentIndex() uint32 { return s.seq.CurrentIndex() }

// Position returns the slice height of the layer on the screen.
func (s *Session) Position() float32 { return s.seq.Position() }

// Offset returns the model offset in pixels.
func (s *Session) Offset() mgl32.Vec2 { return s.offset }

// SetOffset moves the model on the plate by offset pixels. It takes effect
// with the next render.
func (s *Session) SetOffset(offset mgl32.Vec2) { s.offset = offset }

// First renders the first layer.
func (s *Session) First() error {
	if s.closed {
		return ErrSessionClosed
	}
	s.seq.First()
	return s.render()
}

// Advance renders the next layer. It returns false, without rendering, when
// the top of the model has been reached.
func (s *Session) Advance() (bool, error) {
	if s.closed {
		return false, ErrSessionClosed
	}
	if !s.seq.Advance() {
		return false, nil
	}
	return true, s.render()
}

// Render renders the current layer again, e.g. after SetOffset.
func (s *Session) Render() error {
	if s.closed {
		return ErrSessionClosed
	}
	return s.render()
}

// RenderJittered renders the current layer shifted by half a pixel down
// and left, then restores the offset.
func (s *Session) RenderJittered() error {
	if s.closed {
		return ErrSessionClosed
	}
	shift := mgl32.Vec2{0.5, 0.5}
	s.offset = s.offset.Sub(shift)
	defer func() { s.offset = s.offset.Add(shift) }()
	return s.render()
}

func (s *Session) render() error {
	pos := s.seq.Position()
	t := ComputeTransforms(&s.settings, s.store.Bounds(), pos, s.offset)
	inflate := s.settings.InflateDistance()

	if err := s.drawModel(t, inflate); err != nil {
		return err
	}
	if err := s.drawMask(t, inflate, MaskWhite); err != nil {
		return err
	}
	if s.spots != nil {
		return s.compensateSmallSpots(t, inflate)
	}
	return nil
}

func (s *Session) drawModel(t Transforms, inflate float32) error {
	pos := s.seq.Position()
	b := s.store.Bounds()
	upsideDown := IsUpsideDown(b, pos)

	s.visible = s.visible[:0]
	for i, id := range s.meshes {
		if s.store.Submesh(i).intersects(pos, upsideDown, inflate) {
			s.visible = append(s.visible, id)
		}
	}
	Logger().Debug("parity pass", "z", pos, "submeshes", len(s.visible), "total", len(s.meshes))

	p := &ParityPass{
		Transform: t.WorldViewProjection(),
		Mirror:    MirrorFactors(&s.settings, b, pos),
		Inflate:   inflate,
		Meshes:    s.visible,
	}
	if err := s.dev.DrawParity(p); err != nil {
		return fmt.Errorf("slicer: parity pass: %w", err)
	}
	return nil
}

func (s *Session) drawMask(t Transforms, inflate float32, src MaskSource) error {
	pos := s.seq.Position()
	b := s.store.Bounds()

	z := b.Max.Z()
	if IsUpsideDown(b, pos) {
		z = b.Min.Z()
	}
	lo := b.Min.Sub(mgl32.Vec3{inflate, inflate, 0})
	hi := b.Max.Add(mgl32.Vec3{inflate, inflate, 0})

	p := &MaskPass{
		Transform: t.WorldViewProjection(),
		Quad: [4]mgl32.Vec3{
			{lo.X(), lo.Y(), z},
			{hi.X(), lo.Y(), z},
			{hi.X(), hi.Y(), z},
			{lo.X(), hi.Y(), z},
		},
		Compare:   MaskCompare(&s.settings, b, pos),
		Reference: StencilReference,
		Mask:      src,
	}
	if err := s.dev.DrawMask(p); err != nil {
		return fmt.Errorf("slicer: mask pass: %w", err)
	}
	return nil
}

// compensateSmallSpots re-renders the layer grown by the small-spot inflate
// distance, restricted to the spots above the area threshold, and merges it
// into the screen.
func (s *Session) compensateSmallSpots(t Transforms, inflate float32) error {
	if err := s.dev.Resolve(TargetImage); err != nil {
		return fmt.Errorf("slicer: small spots: %w", err)
	}
	pix, err := s.dev.ReadPixels(TargetImage)
	if err != nil {
		return fmt.Errorf("slicer: small spots: %w", err)
	}
	w, h := s.dev.Size()
	r, err := WrapRaster(w, h, pix)
	if err != nil {
		return err
	}
	mask, spots, err := s.spots.BuildMask(r)
	if err != nil {
		return err
	}
	if log := Logger(); log.Enabled(context.Background(), slog.LevelDebug) {
		small := 0
		for _, sp := range spots {
			if sp.Small {
				small++
			}
		}
		log.Debug("small spots", "layer", s.seq.CurrentIndex(), "segments", len(spots), "small", small)
	}

	if err := s.dev.UploadMask(mask.Data()); err != nil {
		return fmt.Errorf("slicer: small spots: %w", err)
	}
	grown := inflate + s.settings.SmallSpots.InflateDistance
	if err := s.drawModel(t, grown); err != nil {
		return err
	}
	if err := s.drawMask(t, grown, MaskTexture); err != nil {
		return err
	}
	if err := s.dev.Resolve(TargetTemporary); err != nil {
		return fmt.Errorf("slicer: small spots: %w", err)
	}
	if err := s.dev.Filter(TargetScreen, &FilterPass{Kernel: KernelCombineMax, Aux: TargetTemporary}); err != nil {
		return fmt.Errorf("slicer: small spots: %w", err)
	}
	return nil
}

// AnalyzeOverhangs compares the current layer against the previous one and
// advances the previous layer. See OverhangDetector.
func (s *Session) AnalyzeOverhangs() (bool, error) {
	if s.closed {
		return false, ErrSessionClosed
	}
	return s.overhangs.Analyze(s.seq.CurrentIndex())
}

// Raster reads back the current layer.
func (s *Session) Raster() (*Raster, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	pix, err := s.dev.ReadPixels(TargetScreen)
	if err != nil {
		return nil, fmt.Errorf("slicer: read layer: %w", err)
	}
	w, h := s.dev.Size()
	return WrapRaster(w, h, pix)
}

// Save reads back the current layer and hands it to the image writer.
func (s *Session) Save(path string) error {
	r, err := s.Raster()
	if err != nil {
		return err
	}
	return s.writer.Save(path, r.Width(), r.Height(), r.Data())
}

// ModelProjectionRect returns the pixel rectangle covered by the model's
// bounding box at the current position.
func (s *Session) ModelProjectionRect() (lo, hi mgl32.Vec2) {
	return ModelProjectionRect(&s.settings, s.store.Bounds(), s.seq.Position(), s.offset)
}

// Run slices every layer: for each one it analyzes overhangs when enabled,
// saves the layer image (and the jittered render when enabled) and calls fn.
// Run stops at the first error, including one returned by fn.
func (s *Session) Run(ctx context.Context, fn func(LayerInfo) error) error {
	log := Logger()
	log.Info("slicing", "layers", s.LayerCount(), "step", s.settings.Step)

	if err := s.First(); err != nil {
		return err
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		info, err := s.finishLayer()
		if err != nil {
			return err
		}
		log.Debug("layer done", "index", info.Index, "z", info.Z, "area", info.Area)
		if fn != nil {
			if err := fn(info); err != nil {
				return err
			}
		}

		more, err := s.Advance()
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}

func (s *Session) finishLayer() (LayerInfo, error) {
	idx := s.seq.CurrentIndex()
	ext := s.settings.Extension()
	info := LayerInfo{
		Index: idx,
		Z:     s.seq.Position(),
		Path:  LayerPath(s.settings.OutputDir, idx, ext),
	}

	if s.settings.Overhangs.Enabled {
		overhang, err := s.AnalyzeOverhangs()
		if err != nil {
			return info, err
		}
		info.Overhang = overhang
	}

	r, err := s.Raster()
	if err != nil {
		return info, err
	}
	info.Area = r.Coverage() * float64(s.settings.PixelArea())
	if err := s.writer.Save(info.Path, r.Width(), r.Height(), r.Data()); err != nil {
		return info, err
	}

	if s.settings.Jitter {
		if err := s.RenderJittered(); err != nil {
			return info, err
		}
		if err := s.Save(JitterPath(s.settings.OutputDir, idx, ext)); err != nil {
			return info, err
		}
	}
	return info, nil
}

// Close waits for pending image writes and releases the device. It returns
// every write error not reported before. Close is safe to call multiple
// times.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	untrackDevice(s.dev)
	return errors.Join(s.writer.Close(), s.dev.Close())
}
