package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/exascience/pbb/pool"
)

// Run using
//  go run ./cmd/pbb <command> <flags>

var errVerify = errors.New("verification failed")

var (
	workersFlag = cli.IntFlag{
		Name:    "workers",
		Usage:   "number of pool workers",
		Value:   runtime.NumCPU(),
		EnvVars: []string{"PBB_WORKERS"},
	}
	affinityFlag = cli.BoolFlag{
		Name:    "affinity",
		Usage:   "pin worker i to logical CPU i",
		EnvVars: []string{"PBB_AFFINITY"},
	}
	verboseFlag = cli.BoolFlag{
		Name:    "verbose",
		Usage:   "enable development logging, including debug output",
		EnvVars: []string{"PBB_VERBOSE"},
	}
	sizeFlag = cli.IntFlag{
		Name:  "size",
		Usage: "number of elements",
		Value: 1 << 20,
	}
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "pbb",
		Usage: "drive a fork-join work-stealing pool",
		Flags: []cli.Flag{
			&workersFlag,
			&affinityFlag,
			&verboseFlag,
		},
		Commands: []*cli.Command{
			&SortCmd,
			&ReduceCmd,
			&ScanCmd,
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// withPool wraps an action that needs a pool configured by the global
// flags. It reports the elapsed time and worker statistics on success.
func withPool(action func(context *cli.Context, p *pool.Pool) error) cli.ActionFunc {
	return func(context *cli.Context) error {
		workers := context.Int(workersFlag.Name)
		if workers < 1 {
			return fmt.Errorf("invalid --%s value %d, must be positive", workersFlag.Name, workers)
		}
		log, err := newLogger(context.Bool(verboseFlag.Name))
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		defer func() { _ = log.Sync() }()

		p := pool.New(
			pool.WithWorkers(workers),
			pool.WithAffinity(context.Bool(affinityFlag.Name)),
			pool.WithLogger(log),
		)
		defer p.Close()

		start := time.Now()
		if err := action(context, p); err != nil {
			return fmt.Errorf("%s: %w", context.Command.Name, err)
		}
		report(context.App.Writer, time.Since(start), p.Stats())
		return nil
	}
}

func report(out io.Writer, elapsed time.Duration, stats []pool.WorkerStats) {
	fmt.Fprintf(out, "elapsed: %v\n", elapsed)
	var executed, stolen uint64
	for id, s := range stats {
		fmt.Fprintf(out, "worker %3d: executed %8d, stolen %8d\n", id, s.Executed, s.Stolen)
		executed += s.Executed
		stolen += s.Stolen
	}
	fmt.Fprintf(out, "total:      executed %8d, stolen %8d\n", executed, stolen)
}
