// Package main is the mdbench command-line entry point: a parallel,
// distributed metadata/small-object I/O benchmark with pluggable
// storage backends.
/*
 * Copyright (c) 2026, NVIDIA CORPORATION. All rights reserved.
 */
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/NVIDIA/mdbench/backend"
	"github.com/NVIDIA/mdbench/cmn"
	"github.com/NVIDIA/mdbench/cmn/cos"
	"github.com/NVIDIA/mdbench/cmn/nlog"
	"github.com/NVIDIA/mdbench/cohort"
	"github.com/NVIDIA/mdbench/core"

	"github.com/urfave/cli"
)

// cohort wiring: a single process runs `--workers` goroutine ranks; a
// multi-process (one rank per process) run sets --cohort-size,
// --cohort-rank and --cohort-addr instead, exactly once per process
type cohortConf struct {
	workers int
	size    int
	rank    int
	addr    string
}

func main() {
	var (
		cfg = cmn.DefaultBench()
		cc  = cohortConf{workers: 1}
	)

	// the plug-in contributes its own option group; peek at the
	// interface choice before assembling the app
	iface := peekInterface(os.Args, cfg.Interface)
	if iface == "list" {
		fmt.Printf("Available plugins: %s\n", strings.Join(backend.Names(), " "))
		return
	}
	be, err := backend.New(iface)
	if err != nil {
		cos.Exitf("%v", err)
	}

	app := cli.NewApp()
	app.Name = "mdbench"
	app.Usage = "parallel metadata/small-object I/O benchmark (precreate, benchmark, cleanup)"
	app.Version = cmn.VersionMDBench
	app.Flags = append(coreFlags(cfg, &cc), be.GetOptions()...)
	app.Action = func(c *cli.Context) error {
		return run(cfg, &cc, be)
	}
	if err := app.Run(os.Args); err != nil {
		cos.Exitf("%v", err)
	}
}

func run(cfg *cmn.Bench, cc *cohortConf, be backend.Backend) error {
	nlog.SetVerbosity(cfg.Verbosity)
	nlog.SetQuiet(cfg.Quiet)

	if err := cfg.Validate(); err != nil {
		if cc.rank == 0 {
			return err
		}
		os.Exit(1)
	}
	if cc.addr != "" && (cc.size < 1 || cc.rank < 0 || cc.rank >= cc.size) {
		return cli.NewExitError(fmt.Sprintf("invalid cohort options: size=%d rank=%d", cc.size, cc.rank), 1)
	}
	if cc.addr == "" && cc.workers < 1 {
		return cli.NewExitError(fmt.Sprintf("invalid cohort options: workers=%d", cc.workers), 1)
	}

	if cc.rank == 0 && !cfg.Quiet {
		fmt.Printf("Args: %s\n", strings.Join(os.Args, " "))
		printOptions(cfg)
	}

	if err := be.Init(); err != nil {
		return cli.NewExitError(fmt.Sprintf("error initializing module %s: %v", be.Name(), err), 1)
	}
	defer func() {
		if err := be.Fini(); err != nil {
			nlog.Errorf("error while finalization of module: %v", err)
		}
	}()

	if cc.addr != "" {
		// one rank per process
		ch, err := cohort.NewTCP(&cohort.TCPConf{Addr: cc.addr, Rank: cc.rank, Size: cc.size})
		if err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
		return core.Run(cfg, ch, be)
	}

	handles := cohort.NewInProcGroup(cc.workers)
	err := cohort.RunWorkers(handles, func(ch cohort.Cohort) error {
		return core.Run(cfg, ch, be)
	})
	if ea, ok := err.(*cohort.ErrAbort); ok {
		os.Exit(ea.Code)
	}
	return err
}

// the interface choice must be known before flag parsing proper (its
// option group depends on it)
func peekInterface(args []string, dflt string) string {
	for i, a := range args {
		switch {
		case a == "-i" || a == "--interface":
			if i+1 < len(args) {
				return args[i+1]
			}
		case strings.HasPrefix(a, "--interface="):
			return strings.TrimPrefix(a, "--interface=")
		case strings.HasPrefix(a, "-i="):
			return strings.TrimPrefix(a, "-i=")
		}
	}
	return dflt
}

func coreFlags(cfg *cmn.Bench, cc *cohortConf) []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{Name: "interface, i", Value: cfg.Interface, Usage: "the interface (plugin) to use for the test; use `list` to show all plugins", Destination: &cfg.Interface},
		cli.IntFlag{Name: "obj-per-proc, I", Value: cfg.Num, Usage: "number of I/O operations per dataset", Destination: &cfg.Num},
		cli.IntFlag{Name: "precreate-per-set, P", Value: cfg.Precreate, Usage: "number of objects to precreate per dataset", Destination: &cfg.Precreate},
		cli.IntFlag{Name: "data-sets, D", Value: cfg.DsetCount, Usage: "number of datasets covered per worker and iteration", Destination: &cfg.DsetCount},
		cli.IntFlag{Name: "offset, O", Value: cfg.Offset, Usage: "offset in ranks between writers and readers", Destination: &cfg.Offset},
		cli.IntFlag{Name: "object-size, S", Value: cfg.ObjectSize, Usage: "size of the created objects (bytes)", Destination: &cfg.ObjectSize},
		cli.IntFlag{Name: "iterations, R", Value: cfg.Iterations, Usage: "rerun the benchmark phase multiple times", Destination: &cfg.Iterations},
		cli.BoolFlag{Name: "run-precreate, 1", Usage: "run precreate phase", Destination: &cfg.PhasePrecreate},
		cli.BoolFlag{Name: "run-benchmark, 2", Usage: "run benchmark phase", Destination: &cfg.PhaseBenchmark},
		cli.BoolFlag{Name: "run-cleanup, 3", Usage: "run cleanup phase (only explicitly selected phases run)", Destination: &cfg.PhaseCleanup},
		cli.IntFlag{Name: "stonewall-timer, w", Usage: "stop each benchmark iteration after the specified seconds (process-specific progress unless used with -W)", Destination: &cfg.StonewallTimer},
		cli.BoolFlag{Name: "stonewall-wear-out, W", Usage: "stop with stonewall after the specified time and wear out - all workers perform the same number of iterations", Destination: &cfg.StonewallWearOut},
		cli.StringFlag{Name: "latency, L", Usage: "measure per-operation latency, prefixing the result files with `PREFIX`", Destination: &cfg.LatencyPrefix},
		cli.BoolFlag{Name: "latency-all", Usage: "keep the latency files from all ranks", Destination: &cfg.LatencyKeepAll},
		cli.BoolFlag{Name: "read-only", Usage: "run read-only during the benchmark phase (no deletes/writes), probably use with -2", Destination: &cfg.ReadOnly},
		cli.BoolFlag{Name: "ignore-precreate-errors", Usage: "ignore errors occurring during the precreate phase", Destination: &cfg.IgnorePrecreateErrors},
		cli.BoolFlag{Name: "print-detailed-stats", Usage: "print detailed machine-parsable statistics", Destination: &cfg.PrintDetailedStats},
		cli.BoolFlag{Name: "process-reports", Usage: "independent report per worker/rank", Destination: &cfg.ProcessReport},
		cli.BoolFlag{Name: "quiet, q", Usage: "avoid irrelevant printing", Destination: &cfg.Quiet},
		cli.IntFlag{Name: "verbose, v", Usage: "verbosity `LEVEL` (>= 1 logs per-op errors, >= 2 traces every operation)", Destination: &cfg.Verbosity},
		cli.IntFlag{Name: "lim-free-mem, m", Usage: "allocate memory until this limit (in MiB) is reached", Destination: &cfg.LimitMemory},
		cli.IntFlag{Name: "lim-free-mem-phase, M", Usage: "allocate memory until this limit (in MiB) between phases, freed before the next phase starts (time not included)", Destination: &cfg.LimitMemoryBetween},
		cli.StringFlag{Name: "run-info-file", Value: cfg.RunInfoFile, Usage: "the run-info (checkpoint) file for resuming a previous run", Destination: &cfg.RunInfoFile},
		cli.StringFlag{Name: "stats-file", Usage: "dump the reduced per-phase statistics to `PATH` as JSON", Destination: &cfg.StatsFile},
		cli.IntFlag{Name: "prom-port", Usage: "expose live operation counters for Prometheus on this port", Destination: &cfg.PromPort},
		cli.BoolFlag{Name: "verify-read", Usage: "verify object payloads on benchmark reads", Destination: &cfg.VerifyRead},

		cli.IntFlag{Name: "workers, n", Value: cc.workers, Usage: "number of in-process workers", Destination: &cc.workers},
		cli.IntFlag{Name: "cohort-size", Usage: "total number of worker processes (multi-process mode)", Destination: &cc.size},
		cli.IntFlag{Name: "cohort-rank", Usage: "this process' rank (multi-process mode)", Destination: &cc.rank},
		cli.StringFlag{Name: "cohort-addr", Usage: "rank 0 coordinator `HOST:PORT` (multi-process mode)", Destination: &cc.addr},
	}
}

// echo the effective option values, the way the help lists them
func printOptions(cfg *cmn.Bench) {
	fmt.Printf("interface=%s\n", cfg.Interface)
	fmt.Printf("obj-per-proc=%d\n", cfg.Num)
	fmt.Printf("precreate-per-set=%d\n", cfg.Precreate)
	fmt.Printf("data-sets=%d\n", cfg.DsetCount)
	fmt.Printf("offset=%d\n", cfg.Offset)
	fmt.Printf("object-size=%d\n", cfg.ObjectSize)
	fmt.Printf("iterations=%d\n", cfg.Iterations)
	fmt.Printf("run-precreate=%t run-benchmark=%t run-cleanup=%t\n", cfg.PhasePrecreate, cfg.PhaseBenchmark, cfg.PhaseCleanup)
	fmt.Printf("stonewall-timer=%d stonewall-wear-out=%t\n", cfg.StonewallTimer, cfg.StonewallWearOut)
	fmt.Printf("read-only=%t ignore-precreate-errors=%t\n", cfg.ReadOnly, cfg.IgnorePrecreateErrors)
	if cfg.LatencyPrefix != "" {
		fmt.Printf("latency=%s latency-all=%t\n", cfg.LatencyPrefix, cfg.LatencyKeepAll)
	}
	fmt.Printf("run-info-file=%s\n", cfg.RunInfoFile)
	fmt.Println()
}
