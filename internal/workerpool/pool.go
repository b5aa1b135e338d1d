// Package workerpool runs tasks on a bounded set of isolated execution
// units. Each unit processes one task at a time; a unit that times out or
// panics fails only its own task and is replaced lazily.
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

var (
	ErrTaskTimeout    = errors.New("workerpool: task timed out")
	ErrUnitCrashed    = errors.New("workerpool: execution unit crashed")
	ErrPoolClosed     = errors.New("workerpool: pool is shut down")
	ErrPoolTerminated = errors.New("workerpool: pool terminated")
)

const (
	DefaultTaskTimeout  = 30 * time.Second
	DefaultAbandonAfter = 5 * time.Second
)

// Unit is one execution unit. Process is never called concurrently on the
// same unit.
type Unit[In, Out any] interface {
	Process(ctx context.Context, in In) (Out, error)
	Close()
}

// Discarder is implemented by units whose results hold resources. The
// pool hands it every result that no future delivered: results arriving
// after a timeout, after abandonment or after Shutdown rejected the task.
type Discarder[Out any] interface {
	Discard(out Out)
}

// UnitFactory creates the unit with the given id. Ids start at 1 and are
// never reused.
type UnitFactory[In, Out any] func(id int) (Unit[In, Out], error)

// Config sizes the pool. Zero values select defaults.
type Config struct {
	// MaxWorkers is clamped to [1, runtime.NumCPU()].
	MaxWorkers int
	// QueueSize bounds waiting tasks; 0 means unbounded.
	QueueSize    int
	TaskTimeout  time.Duration
	AbandonAfter time.Duration
}

func (c Config) withDefaults() Config {
	n := runtime.NumCPU()
	if c.MaxWorkers <= 0 || c.MaxWorkers > n {
		c.MaxWorkers = n
	}
	if c.MaxWorkers < 1 {
		c.MaxWorkers = 1
	}
	if c.QueueSize < 0 {
		c.QueueSize = 0
	}
	if c.TaskTimeout <= 0 {
		c.TaskTimeout = DefaultTaskTimeout
	}
	if c.AbandonAfter <= 0 {
		c.AbandonAfter = DefaultAbandonAfter
	}
	return c
}

// Stats is a point-in-time view of the pool.
type Stats struct {
	Workers   int
	Idle      int
	Active    int
	Queued    int
	Submitted int
	Completed int
	Failed    int
	TimedOut  int
	Crashed   int
	Discarded int
}

type task[In, Out any] struct {
	ctx context.Context
	in  In
	fut *Future[Out]
}

type worker[In, Out any] struct {
	id   int
	unit Unit[In, Out]
}

type outcome[Out any] struct {
	out     Out
	err     error
	crashed bool
}

// Pool dispatches tasks FIFO to lazily created units.
type Pool[In, Out any] struct {
	factory UnitFactory[In, Out]
	cfg     Config

	base     context.Context
	cancel   context.CancelFunc
	closing  chan struct{}
	slots    chan struct{}
	routines sync.WaitGroup

	mu       sync.Mutex
	closed   bool
	nextID   int
	queue    []*task[In, Out]
	idle     []*worker[In, Out]
	workers  map[int]*worker[In, Out]
	inflight map[*task[In, Out]]*worker[In, Out]
	stats    Stats
}

// New creates a pool. No unit is created until the first Submit.
func New[In, Out any](factory UnitFactory[In, Out], cfg Config) *Pool[In, Out] {
	cfg = cfg.withDefaults()
	base, cancel := context.WithCancel(context.Background())
	p := &Pool[In, Out]{
		factory:  factory,
		cfg:      cfg,
		base:     base,
		cancel:   cancel,
		closing:  make(chan struct{}),
		workers:  make(map[int]*worker[In, Out]),
		inflight: make(map[*task[In, Out]]*worker[In, Out]),
	}
	if cfg.QueueSize > 0 {
		p.slots = make(chan struct{}, cfg.QueueSize)
	}
	return p
}

// Config returns the effective configuration.
func (p *Pool[In, Out]) Config() Config { return p.cfg }

// Submit enqueues in and returns its future. With a bounded queue, Submit
// blocks until a slot frees; ctx bounds that wait and the task's run.
func (p *Pool[In, Out]) Submit(ctx context.Context, in In) *Future[Out] {
	if p.slots != nil {
		select {
		case p.slots <- struct{}{}:
		case <-ctx.Done():
			return rejected[Out](ctx.Err())
		case <-p.closing:
			return rejected[Out](ErrPoolClosed)
		}
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.releaseSlot()
		return rejected[Out](ErrPoolClosed)
	}
	t := &task[In, Out]{ctx: ctx, in: in, fut: newFuture[Out]()}
	p.stats.Submitted++
	p.queue = append(p.queue, t)
	p.dispatchLocked()
	p.mu.Unlock()
	return t.fut
}

func (p *Pool[In, Out]) releaseSlot() {
	if p.slots != nil {
		<-p.slots
	}
}

// dispatchLocked hands queued tasks to idle units, creating units up to
// MaxWorkers. Callers hold p.mu.
func (p *Pool[In, Out]) dispatchLocked() {
	for len(p.queue) > 0 && !p.closed {
		var w *worker[In, Out]
		switch {
		case len(p.idle) > 0:
			w = p.idle[len(p.idle)-1]
			p.idle = p.idle[:len(p.idle)-1]
		case len(p.workers) < p.cfg.MaxWorkers:
			p.nextID++
			unit, err := p.factory(p.nextID)
			if err != nil {
				t := p.popLocked()
				p.stats.Failed++
				slog.Warn("pool.unit.create", "id", p.nextID, "err", err)
				t.fut.reject(fmt.Errorf("create unit %d: %w", p.nextID, err))
				continue
			}
			w = &worker[In, Out]{id: p.nextID, unit: unit}
			p.workers[w.id] = w
		default:
			return
		}
		t := p.popLocked()
		p.inflight[t] = w
		p.routines.Add(1)
		go p.run(w, t)
	}
}

func (p *Pool[In, Out]) popLocked() *task[In, Out] {
	t := p.queue[0]
	p.queue[0] = nil
	p.queue = p.queue[1:]
	p.releaseSlot()
	return t
}

func (p *Pool[In, Out]) run(w *worker[In, Out], t *task[In, Out]) {
	defer p.routines.Done()

	ctx, cancel := context.WithTimeout(p.base, p.cfg.TaskTimeout)
	defer cancel()
	stop := context.AfterFunc(t.ctx, cancel)
	defer stop()

	done := make(chan outcome[Out], 1)
	p.routines.Add(1)
	go func() {
		defer p.routines.Done()
		defer func() {
			if r := recover(); r != nil {
				done <- outcome[Out]{crashed: true, err: fmt.Errorf("%w: %v", ErrUnitCrashed, r)}
			}
		}()
		out, err := w.unit.Process(ctx, t.in)
		done <- outcome[Out]{out: out, err: err}
	}()

	select {
	case o := <-done:
		p.finish(w, t, o)
		return
	case <-ctx.Done():
	}

	err := ErrTaskTimeout
	switch {
	case p.base.Err() != nil:
		err = ErrPoolTerminated
	case t.ctx.Err() != nil:
		err = t.ctx.Err()
	}
	t.fut.reject(err)

	timer := time.NewTimer(p.cfg.AbandonAfter)
	defer timer.Stop()
	select {
	case o := <-done:
		o.err = err
		p.finish(w, t, o)
	case <-timer.C:
		p.abandon(w, t, err)
		p.discard(w, <-done)
		w.unit.Close()
		slog.Debug("pool.unit.reaped", "id", w.id)
	}
}

// finish settles t and returns w to service, or retires it after a crash
// or once the pool is shutting down.
func (p *Pool[In, Out]) finish(w *worker[In, Out], t *task[In, Out], o outcome[Out]) {
	p.mu.Lock()
	delete(p.inflight, t)
	switch {
	case o.crashed:
		p.stats.Crashed++
		p.stats.Failed++
	case errors.Is(o.err, ErrTaskTimeout):
		p.stats.TimedOut++
		p.stats.Failed++
	case o.err != nil:
		p.stats.Failed++
	default:
		p.stats.Completed++
	}
	retire := o.crashed || p.closed
	if retire {
		delete(p.workers, w.id)
	} else {
		p.idle = append(p.idle, w)
		p.dispatchLocked()
	}
	p.mu.Unlock()

	if o.crashed {
		slog.Warn("pool.unit.crashed", "id", w.id, "err", o.err)
	}
	if !t.fut.settle(o.out, o.err) {
		p.discard(w, o)
	}
	if retire {
		w.unit.Close()
	}
}

// discard releases a result nobody will receive.
func (p *Pool[In, Out]) discard(w *worker[In, Out], o outcome[Out]) {
	if o.crashed {
		return
	}
	d, ok := w.unit.(Discarder[Out])
	if !ok {
		return
	}
	d.Discard(o.out)
	p.mu.Lock()
	p.stats.Discarded++
	p.mu.Unlock()
}

func (p *Pool[In, Out]) abandon(w *worker[In, Out], t *task[In, Out], err error) {
	p.mu.Lock()
	delete(p.inflight, t)
	delete(p.workers, w.id)
	p.stats.Failed++
	if errors.Is(err, ErrTaskTimeout) {
		p.stats.TimedOut++
	}
	p.dispatchLocked()
	p.mu.Unlock()
	slog.Warn("pool.unit.abandoned", "id", w.id, "after", p.cfg.AbandonAfter)
}

// Stats returns current counters.
func (p *Pool[In, Out]) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.stats
	s.Workers = len(p.workers)
	s.Idle = len(p.idle)
	s.Active = len(p.inflight)
	s.Queued = len(p.queue)
	return s
}

// Shutdown stops accepting work and rejects queued tasks with
// ErrPoolClosed. In-flight tasks get grace to finish; the rest are
// rejected with ErrPoolTerminated and every unit is retired. Shutdown
// returns once all unit goroutines have exited or ctx ends.
func (p *Pool[In, Out]) Shutdown(ctx context.Context, grace time.Duration) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return p.wait(ctx)
	}
	p.closed = true
	close(p.closing)
	queued := p.queue
	p.queue = nil
	running := make([]*Future[Out], 0, len(p.inflight))
	for t := range p.inflight {
		running = append(running, t.fut)
	}
	p.mu.Unlock()

	for _, t := range queued {
		p.releaseSlot()
		t.fut.reject(ErrPoolClosed)
	}

	gctx, gcancel := context.WithTimeout(ctx, grace)
	g, gctx := errgroup.WithContext(gctx)
	for _, f := range running {
		g.Go(func() error {
			select {
			case <-f.Done():
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}
	if err := g.Wait(); err != nil {
		slog.Info("pool.shutdown.grace_expired", "in_flight", len(running))
	}
	gcancel()

	p.cancel()
	for _, f := range running {
		f.reject(ErrPoolTerminated)
	}

	p.mu.Lock()
	idle := p.idle
	p.idle = nil
	for _, w := range idle {
		delete(p.workers, w.id)
	}
	p.mu.Unlock()
	for _, w := range idle {
		w.unit.Close()
	}
	return p.wait(ctx)
}

func (p *Pool[In, Out]) wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.routines.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
