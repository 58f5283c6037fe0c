package pool

import (
	"runtime"
	"sync/atomic"
)

/*
A TaskGroup spawns tasks onto the queue of the worker that owns the group,
and joins them again.

A TaskGroup is meant to be scoped to one fork-join step: create it, Run
the forked halves, do the local work, and Wait. Deferring Wait guarantees
that no task outlives the frame whose variables it references, even when
the local work panics.

The zero TaskGroup is not valid. Use NewTaskGroup.
*/
type TaskGroup struct {
	pending atomic.Int64
	panic   atomic.Pointer[recovered]
	worker  *Worker
	pool    *Pool
}

// NewTaskGroup returns an empty task group owned by w.
//
// NewTaskGroup panics with ErrNoWorker if w is nil, since tasks can only
// be spawned from inside the pool.
func NewTaskGroup(w *Worker) *TaskGroup {
	if w == nil {
		panic(ErrNoWorker)
	}
	return &TaskGroup{worker: w, pool: w.pool}
}

// Run forks fn as a task on the owning worker's queue. The task may be
// executed by any worker of the pool, which is passed to fn.
//
// Run must only be called by the owning worker.
func (g *TaskGroup) Run(fn func(w *Worker)) {
	if g.worker == nil {
		panic(ErrNoWorker)
	}
	g.spawnOn(g.worker, fn)
}

func (g *TaskGroup) spawnOn(w *Worker, fn func(*Worker)) {
	g.pending.Add(1)
	w.queue.Push(newTask(g, fn))
}

/*
Wait executes tasks of the pool until every task forked by this group has
completed. Wait first takes work from the owning worker's own queue, and
then steals from other workers. It yields the processor when no work can
be found anywhere, but never blocks.

If one or more tasks of this group panicked, Wait panics with the first
recovered panic value once all tasks have completed.
*/
func (g *TaskGroup) Wait() {
	w := g.worker
	if w == nil {
		panic(ErrNoWorker)
	}
	for g.pending.Load() != 0 {
		if t := w.findTask(); t != nil {
			t.Run(w)
		} else {
			runtime.Gosched()
		}
	}
	g.rethrow()
}

// Pending returns the number of forked tasks that have not completed yet.
func (g *TaskGroup) Pending() int64 {
	return g.pending.Load()
}

func (g *TaskGroup) rethrow() {
	if p := g.panic.Load(); p != nil {
		panic(p.value)
	}
}
