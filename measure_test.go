package main

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func fakeClock(ticks ...time.Duration) clockFunc {
	return func() (time.Duration, error) {
		if len(ticks) == 0 {
			return 0, unix.EINVAL
		}
		t := ticks[0]
		ticks = ticks[1:]
		return t, nil
	}
}

func TestTimerElapsed(t *testing.T) {
	tm := &monotonicTimer{clock: fakeClock(time.Second, time.Second+1500*time.Millisecond+999*time.Microsecond)}
	require.NoError(t, tm.Start())
	require.NoError(t, tm.Stop())
	assert.Equal(t, 1500*time.Millisecond+999*time.Microsecond, tm.Elapsed())

	r := newReport(tm, opCount{1, "stats"})
	assert.Equal(t, int64(1500), r.msecs())

	tm.Reset()
	assert.Zero(t, tm.Elapsed())
}

func TestTimerClockFailure(t *testing.T) {
	tm := &monotonicTimer{clock: fakeClock(time.Second)}
	require.NoError(t, tm.Start())
	err := tm.Stop()
	require.Error(t, err)
	assert.Equal(t, "clock_gettime: stop: invalid argument", err.Error())
	assert.True(t, errors.Is(err, unix.EINVAL))

	tm = &monotonicTimer{clock: fakeClock()}
	assert.EqualError(t, tm.Start(), "clock_gettime: start: invalid argument")
}

func TestMonotonicTimer(t *testing.T) {
	tm := newTimer()
	require.NoError(t, tm.Start())
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, tm.Stop())
	assert.GreaterOrEqual(t, tm.Elapsed(), 2*time.Millisecond)
}

func TestReportString(t *testing.T) {
	r := &report{
		elapsed: 1234*time.Millisecond + 999*time.Microsecond,
		ops:     []opCount{{5, "mkdirs"}, {5, "rmdirs"}},
	}
	want := "  1234 msecs: " + "         5 mkdirs" + ", " + "         5 rmdirs"
	assert.Equal(t, want, r.String())
	assert.Equal(t, 5, r.total("mkdirs"))
	assert.Zero(t, r.total("forks"))

	r = &report{ops: []opCount{{3, "signals"}}}
	assert.Equal(t, "     0 msecs:          3 signals", r.String())
}
