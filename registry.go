package main

import "strings"

// env is what a runner needs besides its iteration count.
type env struct {
	cfg   *config
	timer timer
	proc  processBackend
}

type runFunc func(e *env, n int) (*report, error)

type benchmark struct {
	Name  string
	Count int
	Run   runFunc
}

// defaultBenchmarks returns the benchmark table in execution order. Later
// filesystem runners rely on fixtures left by earlier ones.
func defaultBenchmarks() []benchmark {
	return []benchmark{
		{"mkdir, rmdir", 5, benchMkdir},
		{"creat, close, open", 17, benchCreat},
		{"chdir", 150, benchChdir},
		{"chown", 88, benchChown},
		{"lseek", 480, benchLseek},
		{"read", 410, benchRead},
		{"link unlink", 25, benchLink},
		{"stat", 250, benchStat},
		{"write", 88, benchWrite},
		{"fork, wait, exit", 1, benchForkExit},
		{"fork, wait, exec", 1, benchForkExec},
		{"getpid", 500, benchGetpid},
		{"getuid", 1120, benchGetuid},
		{"setuid", 300, benchSetuid},
		{"signal", 210, benchSignal},
		{"kill", 490, benchKill},
		{"pipe", 50, benchPipe},
		{"sbrk", 310, benchSbrk},
		{"syscall(getpid)", 920, benchRawGetpid},
	}
}

func (b benchmark) isFork() bool { return strings.HasPrefix(b.Name, "fork") }

// withCounts returns a copy of table with base counts overridden by name.
func withCounts(table []benchmark, counts map[string]int) []benchmark {
	out := make([]benchmark, len(table))
	copy(out, table)
	for i := range out {
		if n, ok := counts[out[i].Name]; ok {
			out[i].Count = n
		}
	}
	return out
}

// schedule returns the entries to run, in table order.
func schedule(table []benchmark, cfg *config) []benchmark {
	plan := make([]benchmark, 0, len(table))
	for _, b := range table {
		if cfg.excludeFork && b.isFork() {
			continue
		}
		plan = append(plan, b)
	}
	return plan
}
