package pool

import (
	"math/rand/v2"
	"runtime"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sys/cpu"

	"github.com/exascience/pbb/internal/lifo"
	"github.com/exascience/pbb/internal/thread"
)

// A Worker is one OS thread of a Pool, running a steal loop over its own
// queue and the queues of all other workers.
//
// Closures executed by the pool receive the worker that executes them. A
// worker must only be used from within such a closure.
type Worker struct {
	_     cpu.CacheLinePad
	queue lifo.Stack[*Task]
	_     cpu.CacheLinePad

	executed atomic.Uint64
	stolen   atomic.Uint64
	stop     atomic.Bool
	tid      atomic.Int64

	id      int
	pool    *Pool
	rng     *rand.Rand
	victims []int
}

func newWorker(p *Pool, id int) *Worker {
	w := &Worker{id: id, pool: p, victims: make([]int, 0, len(p.workers)-1)}
	for i := range p.workers {
		if i != id {
			w.victims = append(w.victims, i)
		}
	}
	w.tid.Store(-1)
	return w
}

// ID returns the index of this worker in its pool, in [0, Pool.Size()).
func (w *Worker) ID() int {
	return w.id
}

// Pool returns the pool this worker belongs to.
func (w *Worker) Pool() *Pool {
	return w.pool
}

// Arena runs fn inline on w. It is the re-entrant counterpart of
// Pool.Arena for code that already executes on a worker.
func (w *Worker) Arena(fn func(w *Worker)) {
	fn(w)
}

func (w *Worker) stopped() bool {
	return w.stop.Load()
}

func (w *Worker) run(started func()) {
	defer w.pool.wg.Done()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	tid := thread.ID()
	w.tid.Store(int64(tid))
	seed := uint64(tid)<<32 | uint64(w.id)
	w.rng = rand.New(rand.NewPCG(seed, uint64(w.id)))

	log := w.pool.log.With(zap.Int("worker", w.id))
	if w.pool.affinity {
		core := w.id % runtime.NumCPU()
		if err := thread.Pin(core); err != nil {
			log.Debug("failed to set thread affinity", zap.Int("cpu", core), zap.Error(err))
		}
	}
	log.Debug("worker started", zap.Int("tid", tid))
	started()

	for !w.stopped() {
		if !w.lookForTask() {
			runtime.Gosched()
		}
	}
	log.Debug("worker stopped",
		zap.Uint64("executed", w.executed.Load()),
		zap.Uint64("stolen", w.stolen.Load()))
}

// lookForTask drains the own queue, then makes one attempt on every other
// worker's queue in random order. It reports whether any task was run.
func (w *Worker) lookForTask() (found bool) {
	for !w.stopped() {
		t, ok := w.queue.TryPop()
		if !ok {
			break
		}
		w.execute(t, false)
		found = true
	}
	w.shuffle()
	workers := w.pool.workers
	for _, victim := range w.victims {
		if w.stopped() {
			return
		}
		if t, ok := workers[victim].queue.TryPop(); ok {
			w.execute(t, true)
			found = true
		}
	}
	return
}

// findTask returns one task from the own queue, or else one stolen from
// another worker, or nil.
func (w *Worker) findTask() *Task {
	if t, ok := w.queue.TryPop(); ok {
		w.executed.Add(1)
		return t
	}
	w.shuffle()
	workers := w.pool.workers
	for _, victim := range w.victims {
		if t, ok := workers[victim].queue.TryPop(); ok {
			w.executed.Add(1)
			w.stolen.Add(1)
			return t
		}
	}
	return nil
}

func (w *Worker) execute(t *Task, stolen bool) {
	w.executed.Add(1)
	if stolen {
		w.stolen.Add(1)
	}
	t.Run(w)
}

func (w *Worker) shuffle() {
	v := w.victims
	w.rng.Shuffle(len(v), func(i, j int) { v[i], v[j] = v[j], v[i] })
}
