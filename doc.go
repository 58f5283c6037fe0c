// Package pbb provides a fork-join, work-stealing task runtime for expressing
// parallel divide-and-conquer algorithms. A fixed pool of workers, each bound
// to an OS thread, executes tasks from per-worker lock-free queues, and idle
// workers steal from randomly chosen victims.
//
// Pbb provides the following subpackages:
//
// pbb/pool provides the Pool of workers, the Arena entry point for code
// running outside the pool, and TaskGroup for spawning tasks and joining
// them.
//
// pbb/parallel provides parallel for, reduce, scan, and invoke on top of
// TaskGroup, recursively splitting a BlockedRange down to its grain.
//
// pbb/sequential provides sequential implementations of the functions from
// pbb/parallel, for testing and debugging purposes.
//
// pbb/sort provides a parallel radix sort, as well as parallel quicksort and
// merge sort, that run on a Pool.
//
// The root package provides BlockedRange, the unit of work partitioning
// shared by all algorithms.
//
// Pbb has been influenced to various extents by ideas from Cilk and
// Threading Building Blocks. See http://supertech.csail.mit.edu/papers/steal.pdf
// for some theoretical background.
package pbb
