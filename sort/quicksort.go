package sort

import (
	"sort"

	"github.com/exascience/pbb/parallel"
	"github.com/exascience/pbb/pool"
)

const qsortGrainSize = 0x500

/*
A type, typically a collection, that satisfies sort.Sorter can be
sorted by Sort in this package. The methods require that (ranges of)
elements of the collection can be enumerated by integer indices.
*/
type Sorter interface {
	SequentialSorter
	sort.Interface
}

func medianOfThree(data sort.Interface, l, m, r int) int {
	switch {
	case data.Less(l, m):
		switch {
		case data.Less(m, r):
			return m
		case data.Less(l, r):
			return r
		}
	case data.Less(r, m):
		return m
	case data.Less(r, l):
		return r
	}
	return l
}

func pseudoMedianOfNine(data sort.Interface, index, size int) int {
	offset := size / 8
	return medianOfThree(data,
		medianOfThree(data, index, index+offset, index+offset*2),
		medianOfThree(data, index+offset*3, index+offset*4, index+offset*5),
		medianOfThree(data, index+offset*6, index+offset*7, index+size-1),
	)
}

// partition moves a pivot to its final position p within [index,
// index+size), with no greater elements left of p and no smaller
// elements right of it, and returns p.
func partition(data sort.Interface, index, size int) int {
	if m := pseudoMedianOfNine(data, index, size); m > index {
		data.Swap(index, m)
	}
	i, j := index, index+size
	for {
		for j--; data.Less(index, j); j-- {
		}
		for i < j {
			i++
			if !data.Less(i, index) {
				break
			}
		}
		if i >= j {
			break
		}
		data.Swap(i, j)
	}
	data.Swap(j, index)
	return j
}

func quicksort(w *pool.Worker, data Sorter, index, size int) {
	if size < qsortGrainSize {
		data.SequentialSort(index, index+size)
		return
	}
	p := partition(data, index, size)
	parallel.Invoke(w,
		func(w *pool.Worker) { quicksort(w, data, index, p-index) },
		func(w *pool.Worker) { quicksort(w, data, p+1, index+size-p-1) },
	)
}

/*
Sort uses a parallel quicksort implementation. Both partitions of every
step are sorted as separate tasks, and partitions below a grain size are
sorted with data's SequentialSort method.

It is good for small core counts and small collection sizes.
*/
func Sort(w *pool.Worker, data Sorter) {
	size := data.Len()
	if size < qsortGrainSize {
		data.SequentialSort(0, size)
		return
	}
	if !IsSorted(w, data) {
		quicksort(w, data, 0, size)
	}
}
