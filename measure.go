package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

type timer interface {
	Start() error
	Stop() error
	Elapsed() time.Duration
	Reset()
}

// clockFunc reads a clock as an offset from an arbitrary epoch.
type clockFunc func() (time.Duration, error)

type monotonicTimer struct {
	clock  clockFunc
	t1, t2 time.Duration
}

func newTimer() *monotonicTimer {
	return &monotonicTimer{clock: monotonic}
}

func monotonic() (time.Duration, error) {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0, err
	}
	return time.Duration(ts.Nano()), nil
}

func (m *monotonicTimer) Start() (err error) {
	if m.t1, err = m.clock(); err != nil {
		return errors.Wrap(err, "clock_gettime: start")
	}
	m.t2 = m.t1
	return nil
}

func (m *monotonicTimer) Stop() (err error) {
	if m.t2, err = m.clock(); err != nil {
		return errors.Wrap(err, "clock_gettime: stop")
	}
	return nil
}

func (m *monotonicTimer) Elapsed() time.Duration { return m.t2 - m.t1 }

func (m *monotonicTimer) Reset() {
	m.t1 = 0
	m.t2 = 0
}

// opCount is one "<count> <operation>" pair of a report line.
type opCount struct {
	n  int
	op string
}

type report struct {
	elapsed time.Duration
	ops     []opCount
}

func newReport(t timer, ops ...opCount) *report {
	return &report{elapsed: t.Elapsed(), ops: ops}
}

func (r *report) msecs() int64 { return r.elapsed.Milliseconds() }

func (r *report) String() string { return r.format(fmt.Sprintf) }

// format renders the report line, passing the elapsed time through hl.
func (r *report) format(hl func(string, ...interface{}) string) string {
	var b strings.Builder
	b.WriteString(hl("%6d", r.msecs()))
	b.WriteString(" msecs: ")
	for i, c := range r.ops {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%10d %s", c.n, c.op)
	}
	return b.String()
}

// total returns the summed count of every pair naming op.
func (r *report) total(op string) (n int) {
	for _, c := range r.ops {
		if c.op == op {
			n += c.n
		}
	}
	return n
}
