// Package parallel provides functions for expressing parallel
// divide-and-conquer algorithms on a work-stealing pool.
//
// All functions recursively split a pbb.BlockedRange at its midpoint until
// its size drops to its grain. At each split, the right half is forked as a
// task onto the queue of the current worker, and the left half is processed
// inline. Both halves are joined before the function returns, so results
// and side effects are complete when it does.
//
// Every function receives the *pool.Worker that executes the caller, and
// passes the executing worker on to the functions it invokes, so they can
// fork further work. Use pool.Pool.Arena to obtain a worker from code that
// does not run on the pool.
//
// If an invoked function panics, the panic is recovered on the worker that
// executed it, and rethrown once the enclosing fork-join step has joined.
package parallel

import (
	"golang.org/x/exp/constraints"

	"github.com/exascience/pbb"
	"github.com/exascience/pbb/pool"
)

// A RangeFunc receives a worker and a range to process sequentially.
type RangeFunc = func(w *pool.Worker, r pbb.BlockedRange)

// fork runs right as a task and left inline, and joins both.
func fork(w *pool.Worker, left, right func(*pool.Worker)) {
	g := pool.NewTaskGroup(w)
	defer g.Wait()
	g.Run(right)
	left(w)
}

/*
For invokes body on subranges of r in parallel, covering r exactly once.

r is split in halves as long as r.IsDivisible() reports true, and body
is invoked for each resulting subrange, whose size is at most the grain
(or 1 if the grain is 0). An empty r results in exactly one invocation
of body with the empty range.

For returns only when all invocations of body have terminated.
*/
func For(w *pool.Worker, r pbb.BlockedRange, body RangeFunc) {
	if !r.IsDivisible() {
		body(w, r)
		return
	}
	right := r.Split()
	fork(w,
		func(w *pool.Worker) { For(w, r, body) },
		func(w *pool.Worker) { For(w, right, body) },
	)
}

// A Reducer accumulates a partial result over ranges. B is the concrete
// reducer type, typically a pointer type.
type Reducer[B any] interface {
	// Accumulate folds the indices of r into the partial result.
	Accumulate(w *pool.Worker, r pbb.BlockedRange)

	// Split returns a new, independent reducer in identity state, that
	// shares any read-only inputs with the receiver.
	Split() B

	// Join merges the partial result of rhs, which covers indices to the
	// right of the receiver's, into the receiver.
	Join(rhs B)
}

/*
Reduce accumulates r into body in parallel.

Whenever r is split, body continues on the left half, and a reducer
obtained from body.Split() accumulates the right half. Once both halves
are complete, the right reducer is merged into body with body.Join. Join
is always invoked in left-to-right order, so an associative Join suffices
even if it is not commutative.

Reduce returns only when all invocations of Accumulate and Join have
terminated. The fully merged result is then held by body.
*/
func Reduce[B Reducer[B]](w *pool.Worker, r pbb.BlockedRange, body B) {
	if !r.IsDivisible() {
		body.Accumulate(w, r)
		return
	}
	right := r.Split()
	rbody := body.Split()
	fork(w,
		func(w *pool.Worker) { Reduce(w, r, body) },
		func(w *pool.Worker) { Reduce(w, right, rbody) },
	)
	body.Join(rbody)
}

type funcReducer[T any] struct {
	result, identity T
	accumulate       func(T, pbb.BlockedRange) T
	join             func(x, y T) T
}

func (f *funcReducer[T]) Accumulate(_ *pool.Worker, r pbb.BlockedRange) {
	f.result = f.accumulate(f.result, r)
}

func (f *funcReducer[T]) Split() *funcReducer[T] {
	return &funcReducer[T]{f.identity, f.identity, f.accumulate, f.join}
}

func (f *funcReducer[T]) Join(rhs *funcReducer[T]) {
	f.result = f.join(f.result, rhs.result)
}

/*
ReduceFunc accumulates r in parallel, and returns the merged result.

Every subrange is accumulated by accumulate, starting from identity, and
the partial results of neighbouring subranges are combined by join, in
left-to-right order. identity must be a neutral element of join. Since
identity is copied for every split, it should be a value type (for
example an array rather than a slice) if accumulate modifies it in place.
*/
func ReduceFunc[T any](
	w *pool.Worker,
	r pbb.BlockedRange,
	identity T,
	accumulate func(acc T, r pbb.BlockedRange) T,
	join func(x, y T) T,
) T {
	body := &funcReducer[T]{identity, identity, accumulate, join}
	Reduce(w, r, body)
	return body.result
}

// Number is the constraint for element types of ReduceSum.
type Number interface {
	constraints.Integer | constraints.Float
}

// ReduceSum returns the sum of f over the subranges of r, computed in
// parallel.
func ReduceSum[T Number](w *pool.Worker, r pbb.BlockedRange, f func(r pbb.BlockedRange) T) T {
	return ReduceFunc[T](w, r, 0,
		func(acc T, r pbb.BlockedRange) T { return acc + f(r) },
		func(x, y T) T { return x + y },
	)
}

// A Scanner computes a prefix scan over ranges. B is the concrete scanner
// type, typically a pointer type.
type Scanner[B any] interface {
	// Scan folds the indices of r into the running state of the receiver.
	// If final is false, this is a pre-scan that only needs to compute
	// the summary of r. If final is true, the state on entry is the exact
	// prefix of everything left of r, and final results must be produced.
	Scan(w *pool.Worker, r pbb.BlockedRange, final bool)

	// Split returns a new scanner in identity state, that shares any
	// inputs and outputs with the receiver.
	Split() B

	// Join folds the state of rhs, which covers indices to the right of
	// the receiver's, into the receiver.
	Join(rhs B)
}

/*
Scan performs a parallel prefix scan of r with body, in two passes.

Whenever r is split, the right half is pre-scanned by a scanner obtained
from body.Split(), concurrently with the left half, which body scans in
the mode of the enclosing call. Once the left half is complete, body
holds the exact prefix up to the right half. When producing final
results, the right half is then scanned again in final mode, starting
from a copy of that prefix. Finally, the pre-scanned summary of the
right half is joined into body.

When Scan returns, every index of r has been scanned in final mode
exactly once, and body holds the summary of r.
*/
func Scan[B Scanner[B]](w *pool.Worker, r pbb.BlockedRange, body B) {
	scan(w, r, body, true)
}

func scan[B Scanner[B]](w *pool.Worker, r pbb.BlockedRange, body B, final bool) {
	if !r.IsDivisible() {
		body.Scan(w, r, final)
		return
	}
	right := r.Split()
	rbody := body.Split()
	fork(w,
		func(w *pool.Worker) { scan(w, r, body, final) },
		func(w *pool.Worker) { scan(w, right, rbody, false) },
	)
	if final {
		prefix := body.Split()
		prefix.Join(body)
		scan(w, right, prefix, true)
	}
	body.Join(rbody)
}

type funcScanner[T any] struct {
	result, identity T
	scan             func(T, pbb.BlockedRange, bool) T
	join             func(x, y T) T
}

func (f *funcScanner[T]) Scan(_ *pool.Worker, r pbb.BlockedRange, final bool) {
	f.result = f.scan(f.result, r, final)
}

func (f *funcScanner[T]) Split() *funcScanner[T] {
	return &funcScanner[T]{f.identity, f.identity, f.scan, f.join}
}

func (f *funcScanner[T]) Join(rhs *funcScanner[T]) {
	f.result = f.join(f.result, rhs.result)
}

/*
ScanFunc performs a parallel prefix scan of r, and returns the summary of
the whole range.

scan receives the running prefix, a subrange, and whether this is the
final pass for that subrange, and returns the prefix extended by the
subrange. In the final pass, the prefix passed in is exact, and scan
should produce its results. identity must be a neutral element of join.
*/
func ScanFunc[T any](
	w *pool.Worker,
	r pbb.BlockedRange,
	identity T,
	scan func(prefix T, r pbb.BlockedRange, final bool) T,
	join func(x, y T) T,
) T {
	body := &funcScanner[T]{identity, identity, scan, join}
	Scan(w, r, body)
	return body.result
}

// Invoke executes fs in parallel, and returns when all of them have
// terminated. fs[0] runs inline, and the remaining functions are forked
// as one task, which recursively applies Invoke to them.
func Invoke(w *pool.Worker, fs ...func(*pool.Worker)) {
	switch len(fs) {
	case 0:
		return
	case 1:
		fs[0](w)
		return
	}
	rest := fs[1:]
	fork(w, fs[0], func(w *pool.Worker) { Invoke(w, rest...) })
}

// Do receives zero or more thunks and executes them in parallel.
//
// Do returns only when all thunks have terminated, returning the
// left-most error value that is different from nil.
func Do(w *pool.Worker, thunks ...func(*pool.Worker) error) error {
	switch len(thunks) {
	case 0:
		return nil
	case 1:
		return thunks[0](w)
	}
	half := len(thunks) / 2
	var err0, err1 error
	fork(w,
		func(w *pool.Worker) { err0 = Do(w, thunks[:half]...) },
		func(w *pool.Worker) { err1 = Do(w, thunks[half:]...) },
	)
	if err0 != nil {
		return err0
	}
	return err1
}

// RangeAnd invokes the range predicate f on subranges of r in parallel,
// as For does, and combines all results with the && operator.
//
// All subranges are visited, even once a false result is known.
func RangeAnd(w *pool.Worker, r pbb.BlockedRange, f func(w *pool.Worker, r pbb.BlockedRange) bool) bool {
	if !r.IsDivisible() {
		return f(w, r)
	}
	right := r.Split()
	var b0, b1 bool
	fork(w,
		func(w *pool.Worker) { b0 = RangeAnd(w, r, f) },
		func(w *pool.Worker) { b1 = RangeAnd(w, right, f) },
	)
	return b0 && b1
}

// RangeOr invokes the range predicate f on subranges of r in parallel,
// as For does, and combines all results with the || operator.
//
// All subranges are visited, even once a true result is known.
func RangeOr(w *pool.Worker, r pbb.BlockedRange, f func(w *pool.Worker, r pbb.BlockedRange) bool) bool {
	if !r.IsDivisible() {
		return f(w, r)
	}
	right := r.Split()
	var b0, b1 bool
	fork(w,
		func(w *pool.Worker) { b0 = RangeOr(w, r, f) },
		func(w *pool.Worker) { b1 = RangeOr(w, right, f) },
	)
	return b0 || b1
}
