package sort

import (
	"github.com/exascience/pbb/parallel"
	"github.com/exascience/pbb/pool"
)

const msortGrainSize = 0x3000

// StableSorter is a type, typically a collection, that can be sorted
// by StableSort in this package. The methods require that ranges of
// elements of the collection can be enumerated by integer indices.
type StableSorter interface {
	SequentialSorter

	// NewTemp creates a new collection that can hold as many elements
	// as the original collection. This is temporary memory needed by
	// StableSort, but not needed anymore afterwards. The temporary
	// collection does not need to be initialized.
	NewTemp() StableSorter

	// Len is the number of elements in the collection.
	Len() int

	// Less reports whether the element with index i should sort
	// before the element with index j.
	Less(i, j int) bool

	// Assign returns a function that assigns ranges from source to the
	// receiver collection. The element with index i is the first
	// element in the receiver to assign to, and the element with index
	// j is the first element in the source collection to assign from,
	// with len determining the number of elements to assign. The effect
	// should be the same as receiver[i:i+len] = source[j:j+len].
	Assign(source StableSorter) func(i, j, len int)
}

// A mergeSide is one of the two collections that merge alternates
// between: less compares elements of this side, and assign copies
// elements from this side to the other one.
type mergeSide struct {
	less   func(i, j int) bool
	assign func(i, j, len int)
}

// lowerBound returns the first index in [low, high) whose element is not
// less than element x, or high.
func (s *mergeSide) lowerBound(x, low, high int) int {
	for low < high {
		mid := int(uint(low+high) >> 1)
		if s.less(mid, x) {
			low = mid + 1
		} else {
			high = mid
		}
	}
	return low
}

// upperBound returns the first index in [low, high) whose element is
// greater than element x, or high.
func (s *mergeSide) upperBound(x, low, high int) int {
	for low < high {
		mid := int(uint(low+high) >> 1)
		if s.less(x, mid) {
			high = mid
		} else {
			low = mid + 1
		}
	}
	return low
}

// The merge functions merge the half-open ranges [lo1, hi1) and [lo2,
// hi2) of src into the other side, starting at index dst. Equal elements
// of the first range are placed before those of the second range.

func sequentialMerge(src *mergeSide, lo1, hi1, lo2, hi2, dst int) {
	for lo1 < hi1 && lo2 < hi2 {
		start := lo1
		for lo1 < hi1 && !src.less(lo2, lo1) {
			lo1++
		}
		src.assign(dst, start, lo1-start)
		dst += lo1 - start
		if lo1 == hi1 {
			break
		}
		start = lo2
		for lo2 < hi2 && src.less(lo2, lo1) {
			lo2++
		}
		src.assign(dst, start, lo2-start)
		dst += lo2 - start
	}
	src.assign(dst, lo1, hi1-lo1)
	dst += hi1 - lo1
	src.assign(dst, lo2, hi2-lo2)
}

func parallelMerge(w *pool.Worker, src *mergeSide, lo1, hi1, lo2, hi2, dst int) {
	n1, n2 := hi1-lo1, hi2-lo2
	if n1+n2 < msortGrainSize {
		sequentialMerge(src, lo1, hi1, lo2, hi2, dst)
		return
	}
	// Split around the median m of the larger range. Elements of the
	// first range that equal m stay left of it, and those of the second
	// range stay right of it.
	var m1, m2, pivot int
	if n1 >= n2 {
		m1 = int(uint(lo1+hi1) >> 1)
		m2 = src.lowerBound(m1, lo2, hi2)
		pivot = m1
		m1++
	} else {
		m2 = int(uint(lo2+hi2) >> 1)
		m1 = src.upperBound(m2, lo1, hi1)
		pivot = m2
		m2++
	}
	mid := dst + (m1 - lo1) + (m2 - lo2) - 1
	src.assign(mid, pivot, 1)
	if n1 >= n2 {
		parallel.Invoke(w,
			func(w *pool.Worker) { parallelMerge(w, src, lo1, m1-1, lo2, m2, dst) },
			func(w *pool.Worker) { parallelMerge(w, src, m1, hi1, m2, hi2, mid+1) },
		)
	} else {
		parallel.Invoke(w,
			func(w *pool.Worker) { parallelMerge(w, src, lo1, m1, lo2, m2-1, dst) },
			func(w *pool.Worker) { parallelMerge(w, src, m1, hi1, m2, hi2, mid+1) },
		)
	}
}

type mergesort struct {
	data   StableSorter
	toTemp *mergeSide
	toData *mergeSide
}

// sort sorts [index, index+size) of data in place, using the same range
// of the temporary collection as scratch space.
func (m *mergesort) sort(w *pool.Worker, index, size int) {
	if size < msortGrainSize {
		m.data.SequentialSort(index, index+size)
		return
	}
	q1 := size / 4
	q2 := q1 + q1
	q3 := q2 + q1
	parallel.Invoke(w,
		func(w *pool.Worker) { m.sort(w, index, q1) },
		func(w *pool.Worker) { m.sort(w, index+q1, q1) },
		func(w *pool.Worker) { m.sort(w, index+q2, q1) },
		func(w *pool.Worker) { m.sort(w, index+q3, size-q3) },
	)
	parallel.Invoke(w,
		func(w *pool.Worker) {
			parallelMerge(w, m.toTemp, index, index+q1, index+q1, index+q2, index)
		},
		func(w *pool.Worker) {
			parallelMerge(w, m.toTemp, index+q2, index+q3, index+q3, index+size, index+q2)
		},
	)
	parallelMerge(w, m.toData, index, index+q2, index+q2, index+size, index)
}

// StableSort uses a parallel implementation of merge sort, also known
// as cilksort.
//
// StableSort is only stable if data's SequentialSort method is
// stable.
//
// StableSort is good for large core counts and large collection
// sizes, but needs a shallow copy of the data collection as
// additional temporary memory.
func StableSort(w *pool.Worker, data StableSorter) {
	// See https://en.wikipedia.org/wiki/Introduction_to_Algorithms and
	// https://www.clear.rice.edu/comp422/lecture-notes/ for details on the algorithm.
	size := data.Len()
	if size < msortGrainSize {
		data.SequentialSort(0, size)
		return
	}
	temp := data.NewTemp()
	m := &mergesort{
		data:   data,
		toTemp: &mergeSide{data.Less, temp.Assign(data)},
		toData: &mergeSide{temp.Less, data.Assign(temp)},
	}
	m.sort(w, 0, size)
}
