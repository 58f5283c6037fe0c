// Package lifo implements an unbounded, non-blocking, multi-producer,
// multi-consumer LIFO stack with a Treiber-style linked list of nodes.
//
// A pushed node is linked as the new head before its next pointer is
// populated. Until then, next holds a sentinel that is neither nil nor any
// real node, and poppers spin until it is replaced. This closes the window in
// which a concurrent pop could see the new head but not yet its successor.
package lifo

import (
	"runtime"
	"sync/atomic"
)

// spins after which TryPop yields while waiting for a node to be linked.
const spinsBeforeYield = 64

type node[T any] struct {
	value T
	next  atomic.Pointer[node[T]]
}

// A Stack is a lock-free LIFO stack.
//
// The zero Stack is valid and empty.
//
// A Stack must not be copied after first use.
type Stack[T any] struct {
	head atomic.Pointer[node[T]]

	// transit is never linked into the list. Its address marks a node whose
	// next pointer has not been stored yet.
	transit node[T]
}

// Push adds value on top of the stack. Push may be called concurrently with
// other Push and TryPop calls.
func (s *Stack[T]) Push(value T) {
	// The node is fully built before the shared list is touched.
	n := &node[T]{value: value}
	n.next.Store(&s.transit)
	head := s.head.Load()
	for !s.head.CompareAndSwap(head, n) {
		head = s.head.Load()
	}
	n.next.Store(head)
}

// TryPop removes and returns the most recently pushed value. The ok result
// is false if the stack was observed empty. TryPop may be called
// concurrently with other Push and TryPop calls.
func (s *Stack[T]) TryPop() (value T, ok bool) {
	for {
		head := s.head.Load()
		if head == nil {
			return value, false
		}
		next := s.awaitLinked(head)
		if s.head.CompareAndSwap(head, next) {
			value = head.value
			var zero T
			head.value = zero
			return value, true
		}
	}
}

func (s *Stack[T]) awaitLinked(n *node[T]) *node[T] {
	for spins := 1; ; spins++ {
		if next := n.next.Load(); next != &s.transit {
			return next
		}
		if spins%spinsBeforeYield == 0 {
			runtime.Gosched()
		}
	}
}

// Empty reports whether the stack was observed empty.
func (s *Stack[T]) Empty() bool {
	return s.head.Load() == nil
}
