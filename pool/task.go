package pool

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/exascience/pbb/internal"
)

// TaskState is the execution state of a Task.
type TaskState int32

// A Task moves from TaskPending to TaskRunning exactly once, and from
// TaskRunning to TaskDone when its closure returns or panics.
const (
	TaskPending TaskState = iota
	TaskRunning
	TaskDone
)

func (s TaskState) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskRunning:
		return "running"
	case TaskDone:
		return "done"
	default:
		return "invalid"
	}
}

// A Task is a deferred closure bound to the pending counter of the
// TaskGroup that spawned it. Tasks are created by TaskGroup.Run.
type Task struct {
	fn    func(*Worker)
	group *TaskGroup
	state atomic.Int32
}

func newTask(group *TaskGroup, fn func(*Worker)) *Task {
	return &Task{fn: fn, group: group}
}

// State returns the current state of the task.
func (t *Task) State() TaskState {
	return TaskState(t.state.Load())
}

// Run executes the task's closure on w, unless the task has already been
// started, in which case Run does nothing. Once the closure returns, or
// panics, the owning group's pending counter is decremented exactly once.
// A panic is recorded on the group and not propagated to the caller of Run.
func (t *Task) Run(w *Worker) {
	if !t.state.CompareAndSwap(int32(TaskPending), int32(TaskRunning)) {
		return
	}
	group := t.group
	defer func() {
		if p := recover(); p != nil {
			group.fail(w, internal.WrapPanic(p))
		}
		t.fn = nil
		t.state.Store(int32(TaskDone))
		// Wait may return as soon as this is observed.
		group.pending.Add(-1)
	}()
	t.fn(w)
}

type recovered struct {
	value interface{}
}

func (g *TaskGroup) fail(w *Worker, p interface{}) {
	if g.panic.CompareAndSwap(nil, &recovered{p}) {
		fields := []zap.Field{zap.Any("panic", p)}
		if w != nil {
			fields = append(fields, zap.Int("worker", w.id))
		}
		g.pool.log.Error("task panicked", fields...)
	}
}
