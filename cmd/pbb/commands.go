package main

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/urfave/cli/v2"

	"github.com/exascience/pbb"
	"github.com/exascience/pbb/parallel"
	"github.com/exascience/pbb/pool"
	"github.com/exascience/pbb/sort"
)

var (
	seedFlag = cli.Uint64Flag{
		Name:  "seed",
		Usage: "seed for the random keys",
		Value: 1,
	}
	grainFlag = cli.IntFlag{
		Name:  "grain",
		Usage: "grain of the range, 0 derives one from the number of workers",
		Value: 0,
	}
)

var SortCmd = cli.Command{
	Action: withPool(doSort),
	Name:   "sort",
	Usage:  "radix sort random 32-bit keys and verify the result",
	Flags: []cli.Flag{
		&sizeFlag,
		&seedFlag,
	},
}

var ReduceCmd = cli.Command{
	Action: withPool(doReduce),
	Name:   "reduce",
	Usage:  "sum the integers 1 to size in parallel",
	Flags: []cli.Flag{
		&sizeFlag,
		&grainFlag,
	},
}

var ScanCmd = cli.Command{
	Action: withPool(doScan),
	Name:   "scan",
	Usage:  "compute the prefix sums of the integers 1 to size in parallel",
	Flags: []cli.Flag{
		&sizeFlag,
		&grainFlag,
	},
}

func size(context *cli.Context) (int, error) {
	n := context.Int(sizeFlag.Name)
	if n < 0 {
		return 0, fmt.Errorf("invalid --%s value %d, must not be negative", sizeFlag.Name, n)
	}
	return n, nil
}

func grain(context *cli.Context, p *pool.Pool, n int) (int, error) {
	g := context.Int(grainFlag.Name)
	switch {
	case g < 0:
		return 0, fmt.Errorf("invalid --%s value %d, must not be negative", grainFlag.Name, g)
	case g == 0:
		return pbb.ComputeEffectiveGrain(0, n, 8, p.Size()), nil
	}
	return g, nil
}

func doSort(context *cli.Context, p *pool.Pool) error {
	n, err := size(context)
	if err != nil {
		return err
	}
	seed := context.Uint64(seedFlag.Name)
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	keys := make([]uint32, n)
	for i := range keys {
		keys[i] = rng.Uint32()
	}
	sort.RadixSortUint32(p, keys)
	if !slices.IsSorted(keys) {
		return fmt.Errorf("%w: %d keys are not sorted", errVerify, n)
	}
	fmt.Fprintf(context.App.Writer, "sorted %d keys\n", n)
	return nil
}

func doReduce(context *cli.Context, p *pool.Pool) error {
	n, err := size(context)
	if err != nil {
		return err
	}
	g, err := grain(context, p, n)
	if err != nil {
		return err
	}
	var sum int64
	p.Arena(func(w *pool.Worker) {
		sum = parallel.ReduceSum(w, pbb.NewBlockedRange(1, n+1, g), func(r pbb.BlockedRange) (sum int64) {
			for i := r.Begin(); i < r.End(); i++ {
				sum += int64(i)
			}
			return
		})
	})
	if want := int64(n) * int64(n+1) / 2; sum != want {
		return fmt.Errorf("%w: sum is %d, expected %d", errVerify, sum, want)
	}
	fmt.Fprintf(context.App.Writer, "sum: %d\n", sum)
	return nil
}

func doScan(context *cli.Context, p *pool.Pool) error {
	n, err := size(context)
	if err != nil {
		return err
	}
	g, err := grain(context, p, n)
	if err != nil {
		return err
	}
	out := make([]int64, n)
	var total int64
	p.Arena(func(w *pool.Worker) {
		total = parallel.ScanFunc(w, pbb.NewBlockedRange(0, n, g), int64(0),
			func(prefix int64, r pbb.BlockedRange, final bool) int64 {
				for i := r.Begin(); i < r.End(); i++ {
					prefix += int64(i + 1)
					if final {
						out[i] = prefix
					}
				}
				return prefix
			},
			func(x, y int64) int64 { return x + y },
		)
	})
	for i, v := range out {
		if want := int64(i+1) * int64(i+2) / 2; v != want {
			return fmt.Errorf("%w: prefix sum %d is %d, expected %d", errVerify, i, v, want)
		}
	}
	fmt.Fprintf(context.App.Writer, "total: %d\n", total)
	return nil
}
