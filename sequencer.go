package slicer

// SliceSequencer walks the slice position through the model in Step
// increments, sampling every layer at its middle.
type SliceSequencer struct {
	min  float32
	max  float32
	step float32
	pos  float32
}

// NewSliceSequencer returns a sequencer positioned at the bottom of b.
func NewSliceSequencer(b Bounds, step float32) *SliceSequencer {
	return &SliceSequencer{
		min:  b.Min.Z(),
		max:  b.Max.Z(),
		step: step,
		pos:  b.Min.Z(),
	}
}

// First moves to the middle of the first layer and returns the position.
func (s *SliceSequencer) First() float32 {
	s.pos = s.min + s.step/2
	return s.pos
}

// Advance moves one layer up. It returns false once the position reaches
// the top of the model; that position is not sliced.
func (s *SliceSequencer) Advance() bool {
	s.pos += s.step
	return s.pos < s.max
}

// Position returns the current slice height.
func (s *SliceSequencer) Position() float32 { return s.pos }

// LayerCount returns the number of layers the model is expected to have.
func (s *SliceSequencer) LayerCount() uint32 {
	return uint32((s.max-s.min)/s.step + 0.5)
}

// CurrentIndex returns the zero based index of the current layer.
func (s *SliceSequencer) CurrentIndex() uint32 {
	return uint32(max((s.pos-s.min)/s.step+0.5-1, 0))
}
