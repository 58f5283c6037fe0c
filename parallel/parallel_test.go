package parallel_test

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/exascience/pbb"
	"github.com/exascience/pbb/parallel"
	"github.com/exascience/pbb/pool"
	"github.com/exascience/pbb/sequential"
)

// newPool returns a pool with n workers, or with the default number of
// workers if n is 0, that is closed when the test finishes.
func newPool(t testing.TB, n int) *pool.Pool {
	opts := []pool.Option{pool.WithLogger(zaptest.NewLogger(t))}
	if n > 0 {
		opts = append(opts, pool.WithWorkers(n))
	}
	p := pool.New(opts...)
	t.Cleanup(p.Close)
	return p
}

func TestForCoversRangeExactlyOnce(t *testing.T) {
	p := newPool(t, 4)
	for _, grain := range []int{0, 1, 3, 16} {
		g := max(grain, 1)
		for _, n := range []int{0, 1, g, g + 1, 1000 * g} {
			t.Run(fmt.Sprintf("grain=%d/n=%d", grain, n), func(t *testing.T) {
				counts := make([]atomic.Int32, n)
				var calls, empty atomic.Int32
				p.Arena(func(w *pool.Worker) {
					parallel.For(w, pbb.NewBlockedRange(0, n, grain), func(_ *pool.Worker, r pbb.BlockedRange) {
						calls.Add(1)
						if r.Empty() {
							empty.Add(1)
						}
						assert.LessOrEqual(t, r.Size(), g)
						for i := r.Begin(); i < r.End(); i++ {
							counts[i].Add(1)
						}
					})
				})
				for i := range counts {
					require.EqualValues(t, 1, counts[i].Load(), "index %d", i)
				}
				if n == 0 {
					require.EqualValues(t, 1, calls.Load())
					require.EqualValues(t, 1, empty.Load())
				} else {
					require.Zero(t, empty.Load())
				}
			})
		}
	}
}

func TestForMatchesSequentialPartition(t *testing.T) {
	p := newPool(t, 8)
	r := pbb.NewBlockedRange(3, 1234, 10)

	var want []pbb.BlockedRange
	sequential.For(r, func(r pbb.BlockedRange) {
		want = append(want, r)
	})

	begins := make([]atomic.Int32, r.End())
	p.Arena(func(w *pool.Worker) {
		parallel.For(w, r, func(_ *pool.Worker, r pbb.BlockedRange) {
			begins[r.Begin()].Store(int32(r.End()))
		})
	})
	var got []pbb.BlockedRange
	for i := range begins {
		if end := int(begins[i].Load()); end != 0 {
			got = append(got, pbb.NewBlockedRange(i, end, 10))
		}
	}
	require.Equal(t, want, got)
}

func TestReduceSumIsExact(t *testing.T) {
	const n = 100000
	for _, workers := range []int{1, 4, 16} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			p := newPool(t, workers)
			for _, grain := range []int{1, 7, 8192, 100000} {
				var sum int64
				p.Arena(func(w *pool.Worker) {
					sum = parallel.ReduceFunc(w, pbb.NewBlockedRange(1, n+1, grain), int64(0),
						func(acc int64, r pbb.BlockedRange) int64 {
							for i := r.Begin(); i < r.End(); i++ {
								acc += int64(i)
							}
							return acc
						},
						func(x, y int64) int64 { return x + y },
					)
				})
				require.EqualValues(t, 5000050000, sum, "grain %d", grain)
			}
		})
	}
}

func TestReduceSum(t *testing.T) {
	p := newPool(t, 4)
	var sum float64
	p.Arena(func(w *pool.Worker) {
		sum = parallel.ReduceSum(w, pbb.NewBlockedRange(0, 1024, 16), func(r pbb.BlockedRange) float64 {
			return float64(r.Size()) / 2
		})
	})
	require.Equal(t, 512.0, sum)
}

// concat checks that Join is applied in left-to-right order, since
// concatenation is associative but not commutative.
type concat struct {
	digits []byte
}

func (c *concat) Accumulate(_ *pool.Worker, r pbb.BlockedRange) {
	for i := r.Begin(); i < r.End(); i++ {
		c.digits = append(c.digits, byte('0'+i%10))
	}
}

func (c *concat) Split() *concat { return &concat{} }

func (c *concat) Join(rhs *concat) { c.digits = append(c.digits, rhs.digits...) }

func TestReduceJoinsInOrder(t *testing.T) {
	p := newPool(t, 8)
	r := pbb.NewBlockedRange(0, 1000, 3)

	var want []byte
	for i := r.Begin(); i < r.End(); i++ {
		want = append(want, byte('0'+i%10))
	}
	body := &concat{}
	p.Arena(func(w *pool.Worker) {
		parallel.Reduce(w, r, body)
	})
	require.Equal(t, string(want), string(body.digits))
}

func TestReduceEmptyRange(t *testing.T) {
	p := newPool(t, 2)
	var result string
	p.Arena(func(w *pool.Worker) {
		result = parallel.ReduceFunc(w, pbb.NewBlockedRange(5, 5, 0), "identity",
			func(acc string, r pbb.BlockedRange) string {
				assert.True(t, r.Empty())
				return acc
			},
			func(x, y string) string { return x + y },
		)
	})
	require.Equal(t, "identity", result)
}

func prefixSums(t *testing.T, p *pool.Pool, n, grain int) ([]int64, int64) {
	values := make([]int64, n)
	for i := range values {
		values[i] = int64(i + 1)
	}
	out := make([]int64, n)
	finals := make([]atomic.Int32, n)
	var total int64
	p.Arena(func(w *pool.Worker) {
		total = parallel.ScanFunc(w, pbb.NewBlockedRange(0, n, grain), int64(0),
			func(prefix int64, r pbb.BlockedRange, final bool) int64 {
				for i := r.Begin(); i < r.End(); i++ {
					prefix += values[i]
					if final {
						out[i] = prefix
						finals[i].Add(1)
					}
				}
				return prefix
			},
			func(x, y int64) int64 { return x + y },
		)
	})
	for i := range finals {
		require.EqualValues(t, 1, finals[i].Load(), "index %d", i)
	}
	return out, total
}

func TestScanPrefixSums(t *testing.T) {
	for _, workers := range []int{1, 4, 16} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			p := newPool(t, workers)
			for _, n := range []int{0, 1, 1000} {
				for _, grain := range []int{1, 10, 5000} {
					out, total := prefixSums(t, p, n, grain)
					for i := range out {
						require.EqualValues(t, (i+1)*(i+2)/2, out[i], "n=%d, grain=%d, index %d", n, grain, i)
					}
					require.EqualValues(t, n*(n+1)/2, total)
				}
			}
		})
	}
}

// runningMax is a Scanner that writes the running maximum of its input.
type runningMax struct {
	in, out []int
	max     int
	seen    bool
}

func (s *runningMax) Scan(_ *pool.Worker, r pbb.BlockedRange, final bool) {
	for i := r.Begin(); i < r.End(); i++ {
		if !s.seen || s.in[i] > s.max {
			s.max, s.seen = s.in[i], true
		}
		if final {
			s.out[i] = s.max
		}
	}
}

func (s *runningMax) Split() *runningMax {
	return &runningMax{in: s.in, out: s.out}
}

func (s *runningMax) Join(rhs *runningMax) {
	if rhs.seen && (!s.seen || rhs.max > s.max) {
		s.max, s.seen = rhs.max, true
	}
}

func TestScanCustomScanner(t *testing.T) {
	p := newPool(t, 4)
	in := make([]int, 777)
	for i := range in {
		in[i] = (i * 7919) % 1009
	}
	body := &runningMax{in: in, out: make([]int, len(in))}
	p.Arena(func(w *pool.Worker) {
		parallel.Scan(w, pbb.NewBlockedRange(0, len(in), 8), body)
	})

	want := make([]int, len(in))
	for i, v := range in {
		want[i] = v
		if i > 0 {
			want[i] = max(want[i-1], v)
		}
	}
	require.Equal(t, want, body.out)
	require.Equal(t, want[len(want)-1], body.max)
}

func TestInvoke(t *testing.T) {
	p := newPool(t, 4)
	for _, n := range []int{0, 1, 2, 7} {
		var ran [7]atomic.Bool
		fs := make([]func(*pool.Worker), n)
		for i := range fs {
			fs[i] = func(*pool.Worker) { ran[i].Store(true) }
		}
		p.Arena(func(w *pool.Worker) {
			parallel.Invoke(w, fs...)
		})
		for i := range ran {
			require.Equal(t, i < n, ran[i].Load(), "n=%d, function %d", n, i)
		}
	}
}

func TestDoReturnsLeftMostError(t *testing.T) {
	p := newPool(t, 4)
	errs := []error{errors.New("0"), errors.New("1"), errors.New("2")}
	var calls atomic.Int32
	var err error
	p.Arena(func(w *pool.Worker) {
		err = parallel.Do(w,
			func(*pool.Worker) error { calls.Add(1); return nil },
			func(*pool.Worker) error { calls.Add(1); return errs[1] },
			func(*pool.Worker) error { calls.Add(1); return nil },
			func(*pool.Worker) error { calls.Add(1); return errs[2] },
		)
	})
	require.EqualValues(t, 4, calls.Load())
	require.Equal(t, errs[1], err)

	p.Arena(func(w *pool.Worker) {
		err = parallel.Do(w)
	})
	require.NoError(t, err)
}

func TestRangeAndOr(t *testing.T) {
	p := newPool(t, 4)
	r := pbb.NewBlockedRange(0, 1000, 10)
	p.Arena(func(w *pool.Worker) {
		assert.True(t, parallel.RangeAnd(w, r, func(_ *pool.Worker, r pbb.BlockedRange) bool {
			return r.Size() <= 10
		}))
		assert.False(t, parallel.RangeAnd(w, r, func(_ *pool.Worker, r pbb.BlockedRange) bool {
			return r.Begin() != 500
		}))
		assert.True(t, parallel.RangeOr(w, r, func(_ *pool.Worker, r pbb.BlockedRange) bool {
			return r.End() == 1000
		}))
		assert.False(t, parallel.RangeOr(w, r, func(_ *pool.Worker, r pbb.BlockedRange) bool {
			return r.Empty()
		}))
	})
}

func TestForPanicPropagates(t *testing.T) {
	p := newPool(t, 4)
	var visited atomic.Int32
	require.Panics(t, func() {
		p.Arena(func(w *pool.Worker) {
			parallel.For(w, pbb.NewBlockedRange(0, 100, 1), func(_ *pool.Worker, r pbb.BlockedRange) {
				visited.Add(1)
				if r.Begin() == 42 {
					panic("boom")
				}
			})
		})
	})
	require.EqualValues(t, 100, visited.Load())

	var sum int
	p.Arena(func(w *pool.Worker) {
		sum = parallel.ReduceSum(w, pbb.NewBlockedRange(0, 10, 1), func(r pbb.BlockedRange) int {
			return r.Size()
		})
	})
	require.Equal(t, 10, sum)
}

func TestNestedParallelism(t *testing.T) {
	p := newPool(t, 8)
	const n = 64
	var total atomic.Int64
	p.Arena(func(w *pool.Worker) {
		parallel.For(w, pbb.NewBlockedRange(0, n, 1), func(w *pool.Worker, outer pbb.BlockedRange) {
			total.Add(parallel.ReduceSum(w, pbb.NewBlockedRange(0, n, 4), func(r pbb.BlockedRange) int64 {
				return int64(r.Size())
			}))
		})
	})
	require.EqualValues(t, n*n, total.Load())
}

func ExampleReduceSum() {
	p := pool.New(pool.WithWorkers(4))
	defer p.Close()

	numDivisors := func(w *pool.Worker, n int) int {
		return parallel.ReduceSum(w, pbb.NewBlockedRange(1, n+1, 0), func(r pbb.BlockedRange) int {
			var sum int
			for i := r.Begin(); i < r.End(); i++ {
				if (n % i) == 0 {
					sum++
				}
			}
			return sum
		})
	}

	p.Arena(func(w *pool.Worker) {
		fmt.Println(numDivisors(w, 12))
	})

	// Output:
	// 6
}

func ExampleDo() {
	p := pool.New(pool.WithWorkers(4))
	defer p.Close()

	var fib func(w *pool.Worker, n int) (int, error)

	fib = func(w *pool.Worker, n int) (result int, err error) {
		switch {
		case n < 0:
			return 0, errors.New("invalid argument")
		case n < 2:
			return n, nil
		}
		var n1, n2 int
		err = parallel.Do(w,
			func(w *pool.Worker) (err error) { n1, err = fib(w, n-1); return },
			func(w *pool.Worker) (err error) { n2, err = fib(w, n-2); return },
		)
		return n1 + n2, err
	}

	p.Arena(func(w *pool.Worker) {
		fmt.Println(fib(w, 20))
		fmt.Println(fib(w, -1))
	})

	// Output:
	// 6765 <nil>
	// 0 invalid argument
}

func ExampleScanFunc() {
	p := pool.New(pool.WithWorkers(2))
	defer p.Close()

	in := []int{3, 1, 4, 1, 5, 9, 2, 6}
	out := make([]int, len(in))
	p.Arena(func(w *pool.Worker) {
		total := parallel.ScanFunc(w, pbb.NewBlockedRange(0, len(in), 2), 0,
			func(prefix int, r pbb.BlockedRange, final bool) int {
				for i := r.Begin(); i < r.End(); i++ {
					prefix += in[i]
					if final {
						out[i] = prefix
					}
				}
				return prefix
			},
			func(x, y int) int { return x + y },
		)
		fmt.Println(out, total)
	})

	// Output:
	// [3 4 8 9 14 23 25 31] 31
}
