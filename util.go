package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"golang.org/x/term"
)

const (
	progressDoneRune    = "█"
	progressPendingRune = "▒"
)

func printReport(w io.Writer, r *report) {
	fmt.Fprintln(w, r.format(color.GreenString))
}

// printError writes err in red when w itself is a terminal, whatever stdout
// is, unless colour is turned off by -n or NO_COLOR.
func printError(w io.Writer, err error, noColor bool) {
	c := color.New(color.FgRed)
	if isTerminal(w) && !noColor && os.Getenv("NO_COLOR") == "" {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	c.Fprintln(w, err)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func listBenchmarks(w io.Writer, table []benchmark, verbose bool) {
	for _, b := range table {
		if verbose {
			fmt.Fprintf(w, "%-20s %5d\n", b.Name, b.Count)
		} else {
			fmt.Fprintf(w, "%-20s\n", b.Name)
		}
	}
}

// printPreamble describes the machine and the fixture before a verbose run.
func printPreamble(w io.Writer, cfg *config, plan []benchmark) {
	fmt.Fprintf(w, "kernel:      %s\n", color.CyanString(kernelRelease()))
	if size, err := largeFileSize(); err == nil {
		fmt.Fprintf(w, "large file:  %s (%s)\n", largeFile, humanize.Bytes(uint64(size)))
	}
	fmt.Fprintf(w, "multiplier:  %s\n", humanize.Comma(int64(cfg.multiplier)))
	total := 0
	for _, b := range plan {
		total += b.Count * cfg.multiplier
	}
	fmt.Fprintf(w, "iterations:  %s in %d benchmarks\n", humanize.Comma(int64(total)), len(plan))
}

// progress draws a transient status line on a terminal while a benchmark runs.
type progress struct {
	f       *os.File
	enabled bool
}

func newProgress(w io.Writer) *progress {
	f, _ := w.(*os.File)
	return &progress{f: f, enabled: isTerminal(w)}
}

func (p *progress) show(i, total int, name string) {
	if !p.enabled {
		return
	}
	clearCurrentTerminalLine(p.f)
	line := fmt.Sprintf("[%2d/%d] %-20s", i+1, total, name)
	printProgressLine(p.f, line, float64(i)/float64(total))
}

func (p *progress) clear() {
	if p.enabled {
		clearCurrentTerminalLine(p.f)
	}
}

func clearCurrentTerminalLine(w io.Writer) {
	w.Write([]byte("\r\033[K"))
}

func printProgressLine(f *os.File, line string, progress float64) {
	terminalWidth, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return
	}
	terminalWidth -= len(line) + 2
	if terminalWidth < 1 {
		fmt.Fprint(f, line)
		return
	}
	progressChunks := int(progress * float64(terminalWidth))
	progressLine := strings.Repeat(progressDoneRune, progressChunks)
	progressLine += strings.Repeat(progressPendingRune, terminalWidth-progressChunks)

	fmt.Fprintf(f, "%s %s", color.CyanString(line), progressLine)
}
