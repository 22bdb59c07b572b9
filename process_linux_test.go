//go:build linux && (amd64 || arm64)

package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func newTestEnv() *env {
	return &env{cfg: defaultConfig(), timer: newTimer(), proc: newProcessBackend()}
}

func assertNoChildren(t *testing.T) {
	var ws unix.WaitStatus
	_, err := unix.Wait4(-1, &ws, unix.WNOHANG, nil)
	assert.Equal(t, unix.ECHILD, err)
}

func TestForkExitLeavesNoChildren(t *testing.T) {
	for _, n := range []int{1, 2, 50} {
		r, err := benchForkExit(newTestEnv(), n)
		require.NoError(t, err)
		assert.Equal(t, n, r.total("forks"))
		assertNoChildren(t)
	}
}

func TestForkExecMissingProgram(t *testing.T) {
	e := newTestEnv()
	e.cfg.doNothing = filepath.Join(t.TempDir(), "nothing_here")

	_, err := benchForkExec(e, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, unix.ENOENT), "%v", err)
	assert.Contains(t, err.Error(), "execl: "+e.cfg.doNothing)
	assertNoChildren(t)
}

func TestKillLaunchFailure(t *testing.T) {
	e := newTestEnv()
	e.cfg.getKilled = filepath.Join(t.TempDir(), "get_killed")

	_, err := benchKill(e, 10)
	assert.True(t, errors.Is(err, unix.ENOENT), "%v", err)
	assertNoChildren(t)
}

func TestKillHelperNeverReady(t *testing.T) {
	proc := newProcessBackend()
	pid, err := proc.Launch("/bin/sleep")
	if err != nil {
		t.Skip("no /bin/sleep")
	}
	// sleep without arguments exits with an error straight away
	err = proc.AwaitSignals(pid, unix.SIGHUP, unix.SIGINT, time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exited before ignoring SIGHUP")
	assertNoChildren(t)
}

func TestKillInheritedIgnore(t *testing.T) {
	newWorkdir(t)
	for _, sigs := range [][]os.Signal{
		{unix.SIGHUP},              // nohup
		{unix.SIGHUP, unix.SIGINT}, // background job of a non-interactive shell
	} {
		signal.Ignore(sigs...)
		for i := 0; i < 20; i++ {
			r, err := benchKill(newTestEnv(), 10)
			require.NoError(t, err, "%v run %d", sigs, i)
			assert.Equal(t, 10, r.total("kills"))
			assertNoChildren(t)
		}
		signal.Reset(sigs...)
	}
}

func TestAwaitSignalsHelper(t *testing.T) {
	newWorkdir(t)
	proc := newProcessBackend()
	pid, err := proc.Launch(defaultGetKilled)
	require.NoError(t, err)

	require.NoError(t, proc.AwaitSignals(pid, unix.SIGHUP, unix.SIGINT, readyTimeout))
	info, err := signalsInfo(pid)
	require.NoError(t, err)
	assert.NotZero(t, info.Ignored&sigbit(unix.SIGHUP))
	assert.NotZero(t, info.Caught&sigbit(unix.SIGINT))

	require.NoError(t, proc.Signal(pid, unix.SIGHUP))
	require.NoError(t, proc.Signal(pid, unix.SIGINT))
	require.NoError(t, proc.Wait(pid))
	assertNoChildren(t)
}

func TestAwaitSignalsTimeout(t *testing.T) {
	newWorkdir(t)
	proc := newProcessBackend()
	pid, err := proc.Launch(defaultGetKilled)
	require.NoError(t, err)
	defer func() {
		proc.Signal(pid, unix.SIGKILL)
		proc.Wait(pid)
	}()

	// the helper never ignores SIGQUIT
	err = proc.AwaitSignals(pid, unix.SIGQUIT, unix.SIGINT, 50*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not ignore SIGQUIT and catch SIGINT")
}

func TestForkExecLeavesNoChildren(t *testing.T) {
	newWorkdir(t)
	for _, n := range []int{1, 20} {
		r, err := benchForkExec(newTestEnv(), n)
		require.NoError(t, err)
		assert.Equal(t, n, r.total("execs"))
		assertNoChildren(t)
	}
}

func TestForkExecExitStatus(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
	path := filepath.Join(t.TempDir(), "exit127")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nexit 127\n"), 0o755))

	// the program ran, so its status is not mistaken for a failed execve
	err := newProcessBackend().SpawnAndExec(path)
	if errors.Is(err, unix.EACCES) {
		t.Skip("temporary directory is mounted noexec")
	}
	require.Error(t, err)
	assert.Regexp(t, `^wait: \d+: exit status 127$`, err.Error())
	assert.False(t, errors.Is(err, unix.ENOENT))
	assertNoChildren(t)
}

func TestSbrkSymmetric(t *testing.T) {
	before := currentBreak()
	for _, n := range []int{0, 1, 100, 4096} {
		r, err := benchSbrk(newTestEnv(), n)
		require.NoError(t, err)
		assert.Equal(t, 2*n, r.total("brks"))
		assert.Equal(t, before, currentBreak(), "n=%d", n)
	}
}

func TestSbrkTracksBreak(t *testing.T) {
	proc := newProcessBackend()
	start, err := proc.Sbrk(0)
	require.NoError(t, err)
	assert.Equal(t, currentBreak(), start)

	prev, err := proc.Sbrk(64)
	require.NoError(t, err)
	assert.Equal(t, start, prev)
	assert.Equal(t, start+64, currentBreak())

	prev, err = proc.Sbrk(-64)
	require.NoError(t, err)
	assert.Equal(t, start+64, prev)
	assert.Equal(t, start, currentBreak())
}

func TestSignalRestoresHandlers(t *testing.T) {
	sigs := []unix.Signal{unix.SIGHUP, unix.SIGQUIT, unix.SIGILL}
	before := make([]sigactiont, len(sigs))
	for i, sig := range sigs {
		require.NoError(t, rtSigaction(sig, nil, &before[i]))
	}

	r, err := benchSignal(newTestEnv(), 10)
	require.NoError(t, err)
	assert.Equal(t, 30, r.total("signals"))

	for i, sig := range sigs {
		var after sigactiont
		require.NoError(t, rtSigaction(sig, nil, &after))
		assert.Equal(t, before[i], after, unix.SignalName(sig))
	}
}

func TestInstallHandler(t *testing.T) {
	proc := newProcessBackend()
	restore, err := proc.SaveHandlers(unix.SIGQUIT)
	require.NoError(t, err)
	defer func() { require.NoError(t, restore()) }()

	require.NoError(t, proc.InstallHandler(unix.SIGQUIT, dispIgnore))
	info, err := signalsInfo(os.Getpid())
	require.NoError(t, err)
	assert.NotZero(t, info.Ignored&sigbit(unix.SIGQUIT))

	require.NoError(t, proc.InstallHandler(unix.SIGQUIT, dispDefault))
	info, err = signalsInfo(os.Getpid())
	require.NoError(t, err)
	assert.Zero(t, info.Ignored&sigbit(unix.SIGQUIT))
}

func TestFilesystemRunners(t *testing.T) {
	newWorkdir(t)
	e := newTestEnv()

	for _, b := range defaultBenchmarks()[:9] {
		r, err := b.Run(e, 3)
		require.NoError(t, err, b.Name)
		assert.NotEmpty(t, r.ops, b.Name)
		if b.Name == "creat, close, open" {
			assert.FileExists(t, file1, "left for the runners that follow")
		}
	}
	assert.NoFileExists(t, file1)
	assert.NoFileExists(t, file2)
	assert.DirExists(t, dir2)
	require.NoError(t, cleanup())
}

func TestLseekPastEnd(t *testing.T) {
	newWorkdir(t)
	e := newTestEnv()
	e.cfg.largeOffset = largeFixtureSize + 1

	_, err := benchLseek(e, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, unix.ENXIO), "%v", err)
}

func TestWriteWithoutFixture(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := benchWrite(newTestEnv(), 1)
	require.Error(t, err)
	assert.Equal(t, "open: ./DIR1/DIR2/FILE1: no such file or directory", err.Error())
}
