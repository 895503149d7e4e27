// Package writer persists layer images on a worker pool while the caller
// keeps rendering, bounding the number of writes in flight.
package writer

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/slicer/internal/imageio"
	"github.com/gogpu/slicer/internal/parallel"
)

// ErrClosed is returned by Save after Close.
var ErrClosed = errors.New("writer: closed")

// EncodeFunc stores one image. It owns pix.
type EncodeFunc func(path string, width, height int, pix []uint8) error

// Option configures an AsyncWriter.
type Option func(*AsyncWriter)

// WithSimulate makes every write a no-op that still passes through the
// queue.
func WithSimulate(simulate bool) Option {
	return func(w *AsyncWriter) {
		w.simulate = simulate
	}
}

// WithEncoder replaces the default 8 bit grey encoder.
func WithEncoder(fn EncodeFunc) Option {
	return func(w *AsyncWriter) {
		w.encode = fn
	}
}

// WithWorkers sets the number of encoding goroutines. The default is
// GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(w *AsyncWriter) {
		w.workers = n
	}
}

// WithLogger sets the logger for write diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(w *AsyncWriter) {
		w.log = l
	}
}

// Encode is the default EncodeFunc: an 8 bit image with the grey palette.
func Encode(path string, width, height int, pix []uint8) error {
	return imageio.Write(path, width, height, 8, pix, imageio.GrayscalePalette())
}

type task struct {
	path string
	done chan struct{}
	err  error
}

func (t *task) wait() error {
	<-t.done
	return t.err
}

func (t *task) finished() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// AsyncWriter encodes images on a worker pool. Once more than depth writes
// are outstanding, Save first collects finished writes and, if that is not
// enough, waits for the write it just queued.
//
// Save and Close must be called from one goroutine.
type AsyncWriter struct {
	depth    int
	workers  int
	simulate bool
	encode   EncodeFunc
	log      *slog.Logger

	pool     *parallel.WorkerPool
	tasks    []*task
	inflight map[string]*task
	closed   bool

	mu      sync.Mutex
	written int
}

// New creates a writer allowing depth outstanding writes.
func New(depth int, opts ...Option) *AsyncWriter {
	w := &AsyncWriter{
		depth:    max(depth, 0),
		encode:   Encode,
		inflight: make(map[string]*task),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.log == nil {
		w.log = slog.New(slog.DiscardHandler)
	}
	w.pool = parallel.NewWorkerPool(w.workers)
	return w
}

// Save queues pix to be written to path and takes ownership of it. The
// returned error joins the errors of writes completed while making room in
// the queue, including this one when Save had to wait for it.
func (w *AsyncWriter) Save(path string, width, height int, pix []uint8) error {
	if w.closed {
		return ErrClosed
	}

	var errs []error
	if prev, ok := w.inflight[path]; ok {
		// A later write to the same path must land after the earlier one.
		errs = append(errs, w.collect(prev))
	}

	sweep := len(w.tasks) > w.depth

	t := &task{path: path, done: make(chan struct{})}
	w.inflight[path] = t
	job := func() {
		defer close(t.done)
		t.err = w.write(path, width, height, pix)
	}
	if !w.pool.Submit(job) {
		job()
	}

	if sweep {
		errs = append(errs, w.sweep()...)
		if len(w.tasks) > w.depth {
			w.log.Debug("write queue full", "outstanding", len(w.tasks), "path", path)
			errs = append(errs, w.collect(t))
			return errors.Join(errs...)
		}
	}
	w.tasks = append(w.tasks, t)
	return errors.Join(errs...)
}

func (w *AsyncWriter) write(path string, width, height int, pix []uint8) error {
	if w.simulate {
		return nil
	}
	if err := w.encode(path, width, height, pix); err != nil {
		return fmt.Errorf("writer: %s: %w", path, err)
	}
	w.mu.Lock()
	w.written++
	w.mu.Unlock()
	return nil
}

// collect waits for t, forgets it and returns its error.
func (w *AsyncWriter) collect(t *task) error {
	err := t.wait()
	for i, o := range w.tasks {
		if o == t {
			w.tasks = append(w.tasks[:i], w.tasks[i+1:]...)
			break
		}
	}
	if w.inflight[t.path] == t {
		delete(w.inflight, t.path)
	}
	return err
}

// sweep forgets every finished task and returns their errors.
func (w *AsyncWriter) sweep() []error {
	var errs []error
	kept := w.tasks[:0]
	for _, t := range w.tasks {
		if !t.finished() {
			kept = append(kept, t)
			continue
		}
		if t.err != nil {
			errs = append(errs, t.err)
		}
		if w.inflight[t.path] == t {
			delete(w.inflight, t.path)
		}
	}
	clear(w.tasks[len(kept):])
	w.tasks = kept
	return errs
}

// Outstanding returns the number of writes not yet collected.
func (w *AsyncWriter) Outstanding() int { return len(w.tasks) }

// Written returns the number of images encoded successfully.
func (w *AsyncWriter) Written() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

// Close waits for every outstanding write and returns their errors joined.
// Close is safe to call multiple times.
func (w *AsyncWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	var errs []error
	for _, t := range w.tasks {
		if err := t.wait(); err != nil {
			errs = append(errs, err)
		}
	}
	w.tasks = nil
	clear(w.inflight)
	w.pool.Close()
	return errors.Join(errs...)
}
