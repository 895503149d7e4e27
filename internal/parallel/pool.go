package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// WorkerPool runs submitted jobs on a fixed set of goroutines.
//
// Each worker owns a queue and steals from the other queues when its own is
// empty, so a slow encode does not hold back the jobs queued behind it.
//
// Thread safety: WorkerPool is safe for concurrent use.
type WorkerPool struct {
	workers    int
	workQueues []chan func()
	done       chan struct{}
	wg         sync.WaitGroup
	running    atomic.Bool
}

// NewWorkerPool creates a pool with the given number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	queueSize := max(workers*4, 8)

	p := &WorkerPool{
		workers:    workers,
		workQueues: make([]chan func(), workers),
		done:       make(chan struct{}),
	}
	for i := range workers {
		p.workQueues[i] = make(chan func(), queueSize)
	}
	p.running.Store(true)

	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}
	return p
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()
	own := p.workQueues[id]

	for {
		select {
		case <-p.done:
			p.drainQueue(own)
			return
		case job := <-own:
			job()
		default:
			if stolen := p.steal(id); stolen != nil {
				stolen()
				continue
			}
			select {
			case <-p.done:
				p.drainQueue(own)
				return
			case job := <-own:
				job()
			}
		}
	}
}

func (p *WorkerPool) drainQueue(queue chan func()) {
	for {
		select {
		case job := <-queue:
			job()
		default:
			return
		}
	}
}

func (p *WorkerPool) steal(self int) func() {
	for i := range p.workers {
		if i == self {
			continue
		}
		select {
		case job := <-p.workQueues[i]:
			return job
		default:
		}
	}
	return nil
}

// Submit queues fn on the worker with the shortest queue. It blocks while
// that queue is full. Submit returns false, without running fn, once the
// pool is closed.
func (p *WorkerPool) Submit(fn func()) bool {
	if fn == nil || !p.running.Load() {
		return false
	}

	minIdx := 0
	for i := 1; i < p.workers; i++ {
		if len(p.workQueues[i]) < len(p.workQueues[minIdx]) {
			minIdx = i
		}
	}

	select {
	case p.workQueues[minIdx] <- fn:
		return true
	case <-p.done:
		return false
	}
}

// Close stops accepting work, runs every queued job and stops the workers.
// Close is safe to call multiple times.
func (p *WorkerPool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)
	p.wg.Wait()
}

// Workers returns the number of workers in the pool.
func (p *WorkerPool) Workers() int { return p.workers }

// IsRunning reports whether the pool accepts work.
func (p *WorkerPool) IsRunning() bool { return p.running.Load() }
