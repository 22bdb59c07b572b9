package main

import (
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	progVersion       = "1.1"
	defaultMultiplier = 10000
)

var errUsage = errors.New("usage")

// Single-letter switches that may be bundled, as in -lv or -fm 5.
const (
	boolFlags  = "fhlnv"
	valueFlags = "Ccm"
)

type config struct {
	excludeFork bool
	help        bool
	listOnly    bool
	noColor     bool
	verbose     bool
	multiplier  int

	dir     string
	profile string

	// Overridable defaults, normally set by a profile.
	counts      map[string]int
	largeOffset int64
	doNothing   string
	getKilled   string
}

func defaultConfig() *config {
	return &config{
		multiplier:  defaultMultiplier,
		largeOffset: defaultLargeOffset,
		doNothing:   defaultDoNothing,
		getKilled:   defaultGetKilled,
	}
}

// profile is the YAML document accepted by -c.
type profile struct {
	Multiplier  *int           `yaml:"multiplier"`
	LargeOffset *int64         `yaml:"large_offset"`
	DoNothing   string         `yaml:"do_nothing"`
	GetKilled   string         `yaml:"get_killed"`
	Counts      map[string]int `yaml:"counts"`
}

func usage(w io.Writer, prog string) {
	fmt.Fprintf(w, "%s v%s\n", prog, progVersion)
	fmt.Fprintf(w, "Usage: %s [-fhlnv][-m <count>][-C <dir>][-c <profile>]\n", prog)
	fmt.Fprintln(w, "-f:\tdo not test the fork system call")
	fmt.Fprintln(w, "-h:\tprint help menu")
	fmt.Fprintln(w, "-l:\tlist tests and their number of iterations")
	fmt.Fprintf(w, "-m:\tuse next arg as iteration multiplier (default %d)\n", defaultMultiplier)
	fmt.Fprintln(w, "-n:\tdisable coloured output")
	fmt.Fprintln(w, "-v:\tenable verbose mode")
	fmt.Fprintln(w, "-C:\tchange to directory before running")
	fmt.Fprintln(w, "-c:\tload iteration counts and helper paths from a YAML profile")
}

// parseArgs builds the run configuration from the command line. Any problem,
// including -h, yields an error wrapping errUsage after a short diagnostic
// has been written to w.
func parseArgs(prog string, args []string, w io.Writer) (*config, error) {
	cfg := defaultConfig()

	fs := flag.NewFlagSet(prog, flag.ContinueOnError)
	fs.SetOutput(w)
	fs.Usage = func() {}
	fs.BoolVar(&cfg.excludeFork, "f", false, "do not test the fork system call")
	fs.BoolVar(&cfg.help, "h", false, "print help menu")
	fs.BoolVar(&cfg.listOnly, "l", false, "list tests and their number of iterations")
	fs.BoolVar(&cfg.noColor, "n", false, "disable coloured output")
	fs.BoolVar(&cfg.verbose, "v", false, "enable verbose mode")
	fs.IntVar(&cfg.multiplier, "m", defaultMultiplier, "iteration multiplier")
	fs.StringVar(&cfg.dir, "C", "", "change to directory before running")
	fs.StringVar(&cfg.profile, "c", "", "YAML profile")

	if err := fs.Parse(expandShortFlags(args)); err != nil {
		return nil, errors.Wrap(errUsage, err.Error())
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(w, "%c: invalid argument\n", []rune(fs.Arg(0)+" ")[0])
		return nil, errors.Wrapf(errUsage, "invalid argument %q", fs.Arg(0))
	}
	if cfg.help {
		return nil, errUsage
	}

	multiplierSet := false
	fs.Visit(func(f *flag.Flag) { multiplierSet = multiplierSet || f.Name == "m" })

	if cfg.profile != "" {
		if err := cfg.loadProfile(cfg.profile, multiplierSet); err != nil {
			fmt.Fprintln(w, err)
			return nil, errors.Wrap(errUsage, err.Error())
		}
	}
	if cfg.multiplier < 0 {
		fmt.Fprintf(w, "%d: invalid multiplier\n", cfg.multiplier)
		return nil, errors.Wrapf(errUsage, "negative multiplier %d", cfg.multiplier)
	}
	for _, b := range withCounts(defaultBenchmarks(), cfg.counts) {
		if cfg.multiplier > 0 && b.Count > math.MaxInt/cfg.multiplier {
			fmt.Fprintf(w, "%d: multiplier too large for %q\n", cfg.multiplier, b.Name)
			return nil, errors.Wrapf(errUsage, "%d x %d iterations overflow", b.Count, cfg.multiplier)
		}
	}
	return cfg, nil
}

// expandShortFlags splits bundled switches ("-lv") into separate arguments
// so that the flag package can parse them. A value flag ends a bundle and
// takes the rest of it ("-m5") or the next argument as its value.
func expandShortFlags(args []string) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			return append(out, args[i:]...)
		}
		parts, ok := splitBundle(arg)
		if !ok {
			out = append(out, arg)
			continue
		}
		out = append(out, parts...)
		last := parts[len(parts)-1]
		if len(last) == 2 && strings.ContainsRune(valueFlags, rune(last[1])) && i+1 < len(args) {
			// the value is taken verbatim even when it looks like a flag
			i++
			out = append(out, args[i])
		}
	}
	return out
}

func splitBundle(arg string) ([]string, bool) {
	if len(arg) < 2 || arg[0] != '-' || arg[1] == '-' || strings.Contains(arg, "=") {
		return nil, false
	}
	s := arg[1:]
	parts := make([]string, 0, len(s))
	for i, c := range s {
		switch {
		case strings.ContainsRune(boolFlags, c):
			parts = append(parts, "-"+string(c))
		case strings.ContainsRune(valueFlags, c):
			parts = append(parts, "-"+string(c))
			if rest := s[i+1:]; rest != "" {
				parts = append(parts, rest)
			}
			return parts, true
		default:
			return nil, false
		}
	}
	return parts, true
}

func (cfg *config) loadProfile(path string, multiplierSet bool) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "profile")
	}
	var p profile
	if err := yaml.Unmarshal(b, &p); err != nil {
		return errors.Wrapf(err, "profile: %s", path)
	}

	known := make(map[string]bool)
	for _, bm := range defaultBenchmarks() {
		known[bm.Name] = true
	}
	for name, n := range p.Counts {
		if !known[name] {
			return errors.Errorf("profile: %s: unknown benchmark %q", path, name)
		}
		if n < 0 {
			return errors.Errorf("profile: %s: negative count %d for %q", path, n, name)
		}
	}

	cfg.counts = p.Counts
	if p.Multiplier != nil && !multiplierSet {
		cfg.multiplier = *p.Multiplier
	}
	if p.LargeOffset != nil {
		cfg.largeOffset = *p.LargeOffset
	}
	if p.DoNothing != "" {
		cfg.doNothing = p.DoNothing
	}
	if p.GetKilled != "" {
		cfg.getKilled = p.GetKilled
	}
	return nil
}
