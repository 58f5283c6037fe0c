/*
Package sort provides parallel sorting algorithms that run on a pool.

Sort and StableSort sort any collection through the Sorter and
StableSorter interfaces, and RadixSort sorts slices of unsigned integer
keys. Sort, StableSort and IsSorted receive the worker executing the
caller, while RadixSort receives the pool and enters it once per digit.
*/
package sort

import (
	"cmp"
	"slices"
	"sort"

	"github.com/exascience/pbb"
	"github.com/exascience/pbb/parallel"
	"github.com/exascience/pbb/pool"
)

/*
SequentialSorter is a type, typically a collection, that can be
sequentially sorted. This is needed as a base case for the parallel
sorting algorithms in this package. It is recommended to implement
this interface by using the functions in the sort or slices packages of
Go's standard library.
*/
type SequentialSorter interface {
	// Sort the range that starts at index i and ends at index j. If the
	// collection that is represented by this interface is a slice, then
	// the slice expression collection[i:j] returns the correct slice to
	// be sorted.
	SequentialSort(i, j int)
}

/*
IsSorted determines in parallel whether data is already sorted.

Every adjacent pair of elements is compared exactly once, so IsSorted
does not terminate early when data is unsorted.
*/
func IsSorted(w *pool.Worker, data sort.Interface) bool {
	size := data.Len()
	if size < qsortGrainSize {
		return sort.IsSorted(data)
	}
	return parallel.RangeAnd(w, pbb.NewBlockedRange(1, size, qsortGrainSize),
		func(_ *pool.Worker, r pbb.BlockedRange) bool {
			for i := r.Begin(); i < r.End(); i++ {
				if data.Less(i, i-1) {
					return false
				}
			}
			return true
		},
	)
}

/*
OrderedSlice attaches the methods of sort.Interface, SequentialSorter,
Sorter, and StableSorter to a slice of ordered elements, sorting in
increasing order.
*/
type OrderedSlice[E cmp.Ordered] []E

// SequentialSort implements the method of the SequentialSorter interface.
func (s OrderedSlice[E]) SequentialSort(i, j int) {
	slices.SortStableFunc(s[i:j], cmp.Compare[E])
}

func (s OrderedSlice[E]) Len() int {
	return len(s)
}

func (s OrderedSlice[E]) Less(i, j int) bool {
	return cmp.Less(s[i], s[j])
}

func (s OrderedSlice[E]) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
}

// NewTemp implements the method of the StableSorter interface.
func (s OrderedSlice[E]) NewTemp() StableSorter {
	return make(OrderedSlice[E], len(s))
}

// Assign implements the method of the StableSorter interface.
func (s OrderedSlice[E]) Assign(source StableSorter) func(i, j, len int) {
	dst, src := s, source.(OrderedSlice[E])
	return func(i, j, len int) {
		copy(dst[i:i+len], src[j:j+len])
	}
}

type (
	// IntSlice sorts a []int in increasing order.
	IntSlice = OrderedSlice[int]

	// Float64Slice sorts a []float64 in increasing order, with NaN
	// values ordered before other values.
	Float64Slice = OrderedSlice[float64]

	// StringSlice sorts a []string in increasing order.
	StringSlice = OrderedSlice[string]
)

// IntsAreSorted determines in parallel whether a slice of ints is
// already sorted in increasing order.
func IntsAreSorted(w *pool.Worker, a []int) bool {
	return IsSorted(w, IntSlice(a))
}

// Float64sAreSorted determines in parallel whether a slice of float64s
// is already sorted in increasing order.
func Float64sAreSorted(w *pool.Worker, a []float64) bool {
	return IsSorted(w, Float64Slice(a))
}

// StringsAreSorted determines in parallel whether a slice of strings is
// already sorted in increasing order.
func StringsAreSorted(w *pool.Worker, a []string) bool {
	return IsSorted(w, StringSlice(a))
}
