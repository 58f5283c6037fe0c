package sort

import (
	"math/bits"

	"golang.org/x/exp/constraints"

	"github.com/exascience/pbb"
	"github.com/exascience/pbb/parallel"
	"github.com/exascience/pbb/pool"
)

const (
	radixBits    = 8
	radixBuckets = 1 << radixBits
	radixMask    = radixBuckets - 1

	// radixMinChunk is the smallest number of keys per chunk.
	radixMinChunk = 1024

	// radixChunksPerWorker determines how many chunks the keys are
	// partitioned into, relative to the pool size.
	radixChunksPerWorker = 8
)

// A histogram holds a count, or a destination index, per digit value.
type histogram [radixBuckets]int

// chunks is the partition of a key slice that all passes of a radix sort
// share. Chunk c covers the keys in [c*size, min((c+1)*size, n)).
type chunks struct {
	n, size int
}

func newChunks(n, workers int) chunks {
	return chunks{n, max(radixMinChunk, (n+workers*radixChunksPerWorker-1)/(workers*radixChunksPerWorker))}
}

func (c chunks) count() int {
	return (c.n + c.size - 1) / c.size
}

func (c chunks) bounds(chunk int) (begin, end int) {
	begin = chunk * c.size
	return begin, min(begin+c.size, c.n)
}

// all returns the range of chunk indices, with one chunk per leaf.
func (c chunks) all() pbb.BlockedRange {
	return pbb.NewBlockedRange(0, c.count(), 1)
}

func digit[K constraints.Unsigned](key K, shift uint) int {
	return int((key >> shift) & radixMask)
}

// countDigits fills rows[c] with the digit histogram of chunk c of keys,
// and returns the histogram of all keys.
func countDigits[K constraints.Unsigned](w *pool.Worker, keys []K, shift uint, part chunks, rows []histogram) histogram {
	return parallel.ReduceFunc(w, part.all(), histogram{},
		func(total histogram, r pbb.BlockedRange) histogram {
			for c := r.Begin(); c < r.End(); c++ {
				row := &rows[c]
				*row = histogram{}
				begin, end := part.bounds(c)
				for _, key := range keys[begin:end] {
					row[digit(key, shift)]++
				}
				for b, n := range row {
					total[b] += n
				}
			}
			return total
		},
		func(x, y histogram) histogram {
			for b, n := range y {
				x[b] += n
			}
			return x
		},
	)
}

// reserveRanges replaces the counts in rows by the first destination
// index of each chunk per digit value. Destinations are ordered by digit
// value first and by chunk second, so every chunk owns a disjoint range
// per digit value, and keys with equal digits keep their order.
func reserveRanges(rows []histogram) {
	next := 0
	for b := range radixBuckets {
		for c := range rows {
			n := rows[c][b]
			rows[c][b] = next
			next += n
		}
	}
}

// scatterDigits moves every key of src to dst at the cursor of its chunk
// and digit, and advances that cursor.
func scatterDigits[K constraints.Unsigned](w *pool.Worker, src, dst []K, shift uint, part chunks, rows []histogram) {
	parallel.For(w, part.all(), func(_ *pool.Worker, r pbb.BlockedRange) {
		for c := r.Begin(); c < r.End(); c++ {
			cursor := &rows[c]
			begin, end := part.bounds(c)
			for _, key := range src[begin:end] {
				d := digit(key, shift)
				dst[cursor[d]] = key
				cursor[d]++
			}
		}
	})
}

// radixPass distributes src into dst by the digit at shift, and reports
// whether it did. If all keys have the same digit, dst is left untouched.
func radixPass[K constraints.Unsigned](p *pool.Pool, src, dst []K, shift uint, part chunks, rows []histogram) (moved bool) {
	p.Arena(func(w *pool.Worker) {
		totals := countDigits(w, src, shift, part, rows)
		if totals[digit(src[0], shift)] == len(src) {
			return
		}
		reserveRanges(rows)
		scatterDigits(w, src, dst, shift, part, rows)
		moved = true
	})
	return moved
}

func radixSort[K constraints.Unsigned](p *pool.Pool, keys []K, part chunks) {
	width := uint(bits.Len64(uint64(^K(0))))
	rows := make([]histogram, part.count())
	src, dst := keys, make([]K, len(keys))
	for shift := uint(0); shift < width; shift += radixBits {
		if radixPass(p, src, dst, shift, part, rows) {
			src, dst = dst, src
		}
	}
	if &src[0] != &keys[0] {
		p.Arena(func(w *pool.Worker) {
			parallel.For(w, part.all(), func(_ *pool.Worker, r pbb.BlockedRange) {
				begin, _ := part.bounds(r.Begin())
				_, end := part.bounds(r.End() - 1)
				copy(keys[begin:end], src[begin:end])
			})
		})
	}
}

/*
RadixSort sorts keys in increasing order with a stable least significant
digit radix sort, using 8-bit digits.

The keys are partitioned into chunks. Every digit pass is a single
p.Arena call, which is executed inline if the caller is a worker of p. A
pass first counts the digits of each chunk with parallel.ReduceFunc, then
reserves a destination range for every chunk and digit value, and then
moves the keys of each chunk to their destinations with parallel.For.
Passes in which all keys have the same digit are skipped.

RadixSort needs a temporary slice of the same length as keys.
*/
func RadixSort[K constraints.Unsigned](p *pool.Pool, keys []K) {
	if len(keys) < 2 {
		return
	}
	radixSort(p, keys, newChunks(len(keys), p.Size()))
}

// RadixSortUint32 sorts a slice of uint32 keys in increasing order with
// RadixSort.
func RadixSortUint32(p *pool.Pool, keys []uint32) {
	RadixSort(p, keys)
}
