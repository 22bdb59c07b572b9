package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/pkg/errors"
)

func main() {
	os.Exit(run(os.Args, color.Output, color.Error))
}

// run drives one invocation and returns the process exit status.
func run(args []string, stdout, stderr io.Writer) int {
	prog := filepath.Base(args[0])
	cfg, err := parseArgs(prog, args[1:], stdout)
	if err != nil {
		usage(stdout, prog)
		return 1
	}
	if cfg.noColor {
		color.NoColor = true
	}

	table := withCounts(defaultBenchmarks(), cfg.counts)
	if cfg.listOnly {
		listBenchmarks(stdout, table, cfg.verbose)
		return 0
	}

	if cfg.dir != "" {
		if err := os.Chdir(cfg.dir); err != nil {
			printError(stderr, errors.Wrap(err, "chdir"), cfg.noColor)
			return 1
		}
	}
	if err := checkLargeFile(); err != nil {
		printError(stderr, err, cfg.noColor)
		return 1
	}

	plan := schedule(table, cfg)
	if err := runPlan(cfg, plan, stdout, stderr); err != nil {
		printError(stderr, err, cfg.noColor)
		return 1
	}
	return 0
}

func runPlan(cfg *config, plan []benchmark, stdout, stderr io.Writer) error {
	e := &env{cfg: cfg, timer: newTimer(), proc: newProcessBackend()}
	if cfg.verbose {
		printPreamble(stderr, cfg, plan)
	}

	if err := cleanup(); err != nil {
		return err
	}
	prog := newProgress(stderr)
	for i, b := range plan {
		prog.show(i, len(plan), b.Name)
		e.timer.Reset()
		r, err := b.Run(e, b.Count*cfg.multiplier)
		prog.clear()
		if err != nil {
			return err
		}
		printReport(stdout, r)
	}
	return cleanup()
}
