package pbb

import "fmt"

// A BlockedRange is a half-open interval of indices from Begin to End,
// including Begin but excluding End, together with a grain that determines
// when recursive splitting stops.
//
// The zero BlockedRange is valid and empty.
type BlockedRange struct {
	begin, end, grain int
}

// NewBlockedRange returns the range [begin, end) with the given grain.
//
// NewBlockedRange panics if begin < 0, end < begin, or grain < 0.
func NewBlockedRange(begin, end, grain int) BlockedRange {
	if (begin < 0) || (end < begin) {
		panic(fmt.Sprintf("invalid range: %v:%v", begin, end))
	}
	if grain < 0 {
		panic(fmt.Sprintf("invalid grain: %v", grain))
	}
	return BlockedRange{begin, end, grain}
}

// Begin is the first index in the range.
func (r BlockedRange) Begin() int {
	return r.begin
}

// End is the index just past the last index in the range.
func (r BlockedRange) End() int {
	return r.end
}

// Size is the number of indices in the range.
func (r BlockedRange) Size() int {
	return r.end - r.begin
}

// Grain is the size at or below which a range is processed sequentially.
func (r BlockedRange) Grain() int {
	return r.grain
}

// Empty reports whether the range contains no indices.
func (r BlockedRange) Empty() bool {
	return r.end == r.begin
}

// IsDivisible reports whether the range is larger than its grain and should
// be split further. A grain of 0 splits down to ranges of size 1, since a
// range of size 1 cannot be bisected into two smaller halves.
func (r BlockedRange) IsDivisible() bool {
	return r.Size() > max(r.grain, 1)
}

// Split bisects the range at its midpoint. The receiver becomes the left
// half, and the right half is returned. Both halves keep the grain.
func (r *BlockedRange) Split() (right BlockedRange) {
	middle := r.begin + r.Size()/2
	right = BlockedRange{middle, r.end, r.grain}
	r.end = middle
	return
}

func (r BlockedRange) String() string {
	return fmt.Sprintf("[%v:%v)/%v", r.begin, r.end, r.grain)
}

/*
ComputeEffectiveGrain determines a grain for a BlockedRange from low to
high that is processed by the given number of workers.

Useful threshold parameter values are 1 to evenly divide up the range
across the workers; or 2 or higher to additionally divide that number
by the threshold parameter. Use 1 if you expect no load imbalance,
between 2 and 10 if you expect some load imbalance, or 10 or more if
you expect even more load imbalance.

A threshold parameter value of 0 yields a grain of 1 and the most
fine-grained parallelism. Fine-grained parallelism only pays off if the
work per index is sufficiently large to compensate for the scheduling
overhead.

A threshold parameter value below zero can be used to specify the grain
directly, which becomes the absolute value of the threshold parameter
value.

More specifically:

If the input threshold is > 0, the return value is ceiling((high -
low) / (threshold * workers)).

If the input threshold is == 0, the return value is 1.

If the input threshold is < 0, the return value is abs(threshold).

ComputeEffectiveGrain panics if low < 0, high < low, or workers < 1.
*/
func ComputeEffectiveGrain(low, high, threshold, workers int) int {
	if (low < 0) || (high < low) {
		panic(fmt.Sprintf("invalid range: %v:%v", low, high))
	}
	if workers < 1 {
		panic(fmt.Sprintf("invalid number of workers: %v", workers))
	}
	switch {
	case threshold > 0:
		if high == low {
			return 1
		}
		return ((high - low - 1) / (threshold * workers)) + 1
	case threshold < 0:
		return -threshold
	default:
		return 1
	}
}
