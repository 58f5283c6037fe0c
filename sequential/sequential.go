// Package sequential provides sequential implementations of the
// functions provided by the parallel package. This is useful for testing
// and debugging.
//
// The functions split ranges exactly like their parallel counterparts, and
// visit the resulting subranges from left to right, so they produce the
// same partitions and, for associative operations, the same results.
//
// It is not recommended to use the implementations of this package
// for any other purpose, because they are almost certainly too
// inefficient for regular sequential programs.
package sequential

import "github.com/exascience/pbb"

// For invokes body on the subranges of r from left to right.
func For(r pbb.BlockedRange, body func(r pbb.BlockedRange)) {
	if !r.IsDivisible() {
		body(r)
		return
	}
	right := r.Split()
	For(r, body)
	For(right, body)
}

// ReduceFunc accumulates the subranges of r from left to right, combining
// the partial results of both halves of every split with join.
func ReduceFunc[T any](
	r pbb.BlockedRange,
	identity T,
	accumulate func(acc T, r pbb.BlockedRange) T,
	join func(x, y T) T,
) T {
	if !r.IsDivisible() {
		return accumulate(identity, r)
	}
	right := r.Split()
	left := ReduceFunc(r, identity, accumulate, join)
	return join(left, ReduceFunc(right, identity, accumulate, join))
}

// ScanFunc scans the subranges of r from left to right in a single final
// pass, and returns the summary of r.
func ScanFunc[T any](
	r pbb.BlockedRange,
	identity T,
	scan func(prefix T, r pbb.BlockedRange, final bool) T,
	_ func(x, y T) T,
) T {
	prefix := identity
	For(r, func(r pbb.BlockedRange) {
		prefix = scan(prefix, r, true)
	})
	return prefix
}

// Invoke executes fs sequentially.
func Invoke(fs ...func()) {
	for _, f := range fs {
		f()
	}
}

// Do receives zero or more thunks and executes them sequentially,
// returning the left-most error value that is different from nil.
func Do(thunks ...func() error) (err error) {
	for _, thunk := range thunks {
		nerr := thunk()
		if err == nil {
			err = nerr
		}
	}
	return
}

// RangeAnd invokes the range predicate f on the subranges of r from left
// to right, combining all results with the && operator.
func RangeAnd(r pbb.BlockedRange, f func(r pbb.BlockedRange) bool) bool {
	result := true
	For(r, func(r pbb.BlockedRange) {
		result = f(r) && result
	})
	return result
}

// RangeOr invokes the range predicate f on the subranges of r from left
// to right, combining all results with the || operator.
func RangeOr(r pbb.BlockedRange, f func(r pbb.BlockedRange) bool) bool {
	result := false
	For(r, func(r pbb.BlockedRange) {
		result = f(r) || result
	})
	return result
}
