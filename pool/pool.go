/*
Package pool provides a fixed pool of workers that execute fork-join tasks
with work stealing.

Every worker is a goroutine locked to its own OS thread, owning a
lock-free LIFO queue of tasks. Tasks are forked with a TaskGroup onto the
queue of the worker that forks them. Idle workers, and workers waiting for
a TaskGroup, execute tasks from their own queue first, and otherwise steal
from the other workers in random order. Waiting is always active: workers
never block, but yield the processor when no work can be found.

Code outside the pool enters it with Pool.Arena, which hands a closure to
the first worker and waits until the closure, and everything it forked,
has completed. Closures executed by the pool receive the *Worker executing
them, which is needed to fork further tasks.
*/
package pool

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/exascience/pbb/internal/thread"
)

var (
	// ErrNoWorker is the panic value when tasks are forked or joined
	// without a worker of a pool.
	ErrNoWorker = errors.New("pool: task group used outside of a pool worker")

	// ErrClosed is the panic value when Arena is called on a closed pool.
	ErrClosed = errors.New("pool: arena entered on a closed pool")
)

// An Option configures a Pool.
type Option func(*Pool)

// WithWorkers sets the number of workers. Values below 1 are treated as 1.
// The default is runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(p *Pool) {
		p.size = max(n, 1)
	}
}

// WithAffinity enables or disables pinning worker i to logical CPU i
// (modulo the number of CPUs). Pinning is best effort, and failures are
// ignored. The default is false.
func WithAffinity(enabled bool) Option {
	return func(p *Pool) {
		p.affinity = enabled
	}
}

// WithLogger sets the logger for pool lifecycle events and task panics.
// The default discards all log output.
func WithLogger(log *zap.Logger) Option {
	return func(p *Pool) {
		if log != nil {
			p.log = log
		}
	}
}

/*
A Pool is a fixed set of workers that is created once and never resized.

A Pool must be closed with Close when it is no longer needed, otherwise
its workers keep spinning for work.
*/
type Pool struct {
	workers  []*Worker
	size     int
	affinity bool
	log      *zap.Logger

	wg        sync.WaitGroup
	closed    atomic.Bool
	closeOnce sync.Once
}

// WorkerStats reports how many tasks a worker has executed, and how many
// of them were stolen from other workers.
type WorkerStats struct {
	Executed uint64
	Stolen   uint64
}

// New creates a pool and starts all its workers. New returns once every
// worker runs on its own OS thread.
func New(opts ...Option) *Pool {
	p := &Pool{size: runtime.NumCPU(), log: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.Named("pool")
	p.workers = make([]*Worker, p.size)
	for i := range p.workers {
		p.workers[i] = newWorker(p, i)
	}
	var started sync.WaitGroup
	started.Add(p.size)
	p.wg.Add(p.size)
	for _, w := range p.workers {
		go w.run(started.Done)
	}
	started.Wait()
	p.log.Info("pool started", zap.Int("workers", p.size), zap.Bool("affinity", p.affinity))
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Worker returns the worker with the given index.
func (p *Pool) Worker(id int) *Worker {
	return p.workers[id]
}

// Current returns the worker that runs on the calling OS thread, or nil if
// the caller is not executing on a worker of this pool. Current always
// returns nil on platforms without thread ids.
func (p *Pool) Current() *Worker {
	tid := int64(thread.ID())
	if tid < 0 {
		return nil
	}
	for _, w := range p.workers {
		if w.tid.Load() == tid {
			return w
		}
	}
	return nil
}

/*
Arena runs fn on the pool and returns once fn, and every task forked
by fn, has completed.

If the caller already executes on a worker of this pool, fn is invoked
inline on that worker. This relies on thread ids, so on platforms where
Current always returns nil, code running on a worker must use
Worker.Arena instead. Otherwise, fn is pushed onto the queue of the
first worker, and the caller spins, yielding the processor, until it
has completed.

If fn panics, or a task forked by fn panics without being joined, Arena
panics with the recovered value after completion.

Arena panics with ErrClosed if the pool has been closed.
*/
func (p *Pool) Arena(fn func(w *Worker)) {
	if p.closed.Load() {
		panic(ErrClosed)
	}
	if w := p.Current(); w != nil {
		fn(w)
		return
	}
	g := &TaskGroup{pool: p}
	g.spawnOn(p.workers[0], fn)
	for g.pending.Load() != 0 {
		runtime.Gosched()
	}
	g.rethrow()
}

// Stats returns the task counters of all workers, indexed by worker id.
func (p *Pool) Stats() []WorkerStats {
	stats := make([]WorkerStats, len(p.workers))
	for i, w := range p.workers {
		stats[i] = WorkerStats{Executed: w.executed.Load(), Stolen: w.stolen.Load()}
	}
	return stats
}

/*
Close requests every worker to stop, and waits until all of them have
returned from their steal loop. Close is idempotent.

Tasks still queued are not executed. Close is only safe once every Arena
call and every TaskGroup has completed.
*/
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		for _, w := range p.workers {
			w.stop.Store(true)
		}
		p.wg.Wait()
		abandoned := 0
		for _, w := range p.workers {
			if !w.queue.Empty() {
				abandoned++
			}
		}
		if abandoned > 0 {
			p.log.Warn("pool closed with queued tasks", zap.Int("queues", abandoned))
		}
		p.log.Info("pool closed")
	})
}
