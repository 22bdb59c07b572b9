package main

import (
	"strconv"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const (
	launchAttempts = 100
	launchBackoff  = 10 * time.Millisecond
	readyTimeout   = 10 * time.Second
)

func benchForkExit(e *env, n int) (*report, error) {
	if err := e.timer.Start(); err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		if err := e.proc.SpawnAndWait(); err != nil {
			return nil, err
		}
	}
	if err := e.timer.Stop(); err != nil {
		return nil, err
	}
	return newReport(e.timer, opCount{n, "forks"}, opCount{n, "exits"}, opCount{n, "waits"}), nil
}

func benchForkExec(e *env, n int) (*report, error) {
	path := e.cfg.doNothing

	if err := e.timer.Start(); err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		if err := e.proc.SpawnAndExec(path); err != nil {
			return nil, err
		}
	}
	if err := e.timer.Stop(); err != nil {
		return nil, err
	}
	return newReport(e.timer, opCount{n, "forks"}, opCount{n, "execs"}, opCount{n, "waits"}), nil
}

func benchGetpid(e *env, n int) (*report, error) {
	if err := e.timer.Start(); err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		unix.Getpid()
	}
	if err := e.timer.Stop(); err != nil {
		return nil, err
	}
	return newReport(e.timer, opCount{n, "getpids"}), nil
}

func benchGetuid(e *env, n int) (*report, error) {
	if err := e.timer.Start(); err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		unix.Getuid()
	}
	if err := e.timer.Stop(); err != nil {
		return nil, err
	}
	return newReport(e.timer, opCount{n, "getuids"}), nil
}

func benchSetuid(e *env, n int) (*report, error) {
	uid := unix.Getuid()

	if err := e.timer.Start(); err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		if err := unix.Setuid(uid); err != nil {
			return nil, fail(err, "setuid", strconv.Itoa(uid))
		}
	}
	if err := e.timer.Stop(); err != nil {
		return nil, err
	}
	return newReport(e.timer, opCount{n, "setuids"}), nil
}

// benchSignal installs three dispositions per iteration and puts the
// previous ones back afterwards.
func benchSignal(e *env, n int) (rep *report, err error) {
	restore, err := e.proc.SaveHandlers(unix.SIGHUP, unix.SIGQUIT, unix.SIGILL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rerr := restore(); err == nil {
			err = rerr
		}
	}()

	if err := e.timer.Start(); err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		if err := e.proc.InstallHandler(unix.SIGHUP, dispDefault); err != nil {
			return nil, err
		}
		if err := e.proc.InstallHandler(unix.SIGQUIT, dispIgnore); err != nil {
			return nil, err
		}
		if err := e.proc.InstallHandler(unix.SIGILL, dispDefault); err != nil {
			return nil, err
		}
	}
	if err := e.timer.Stop(); err != nil {
		return nil, err
	}
	return newReport(e.timer, opCount{3 * n, "signals"}), nil
}

// launch starts path, retrying while the system is short of processes.
func launch(proc processBackend, path string) (pid int, err error) {
	for attempt := 1; ; attempt++ {
		if pid, err = proc.Launch(path); err == nil {
			return pid, nil
		}
		if !errors.Is(err, unix.EAGAIN) || attempt == launchAttempts {
			return 0, err
		}
		time.Sleep(launchBackoff)
	}
}

// benchKill signals a helper that ignores SIGHUP and exits on SIGINT. Timing
// starts only once the helper has both dispositions in place.
func benchKill(e *env, n int) (*report, error) {
	pid, err := launch(e.proc, e.cfg.getKilled)
	if err != nil {
		return nil, err
	}
	abort := func(err error) (*report, error) {
		e.proc.Signal(pid, unix.SIGKILL)
		e.proc.Wait(pid)
		return nil, err
	}
	if err := e.proc.AwaitSignals(pid, unix.SIGHUP, unix.SIGINT, readyTimeout); err != nil {
		return abort(err)
	}

	if err := e.timer.Start(); err != nil {
		return abort(err)
	}
	for i := 0; i < n; i++ {
		if err := e.proc.Signal(pid, unix.SIGHUP); err != nil {
			return abort(err)
		}
	}
	if err := e.timer.Stop(); err != nil {
		return abort(err)
	}
	rep := newReport(e.timer, opCount{n, "kills"})

	if err := e.proc.Signal(pid, unix.SIGINT); err != nil {
		return abort(err)
	}
	if err := e.proc.Wait(pid); err != nil {
		return nil, err
	}
	return rep, nil
}

func benchPipe(e *env, n int) (*report, error) {
	var p [2]int

	if err := e.timer.Start(); err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		if err := unix.Pipe(p[:]); err != nil {
			return nil, fail(err, "pipe", "")
		}
		if err := unix.Close(p[0]); err != nil {
			return nil, fail(err, "close", "0")
		}
		if err := unix.Close(p[1]); err != nil {
			return nil, fail(err, "close", "1")
		}
	}
	if err := e.timer.Stop(); err != nil {
		return nil, err
	}
	return newReport(e.timer, opCount{n, "pipes"}, opCount{2 * n, "closes"}), nil
}

// benchSbrk grows the break by i bytes and shrinks it back, so the break
// must end where it started.
func benchSbrk(e *env, n int) (*report, error) {
	start, err := e.proc.Sbrk(0)
	if err != nil {
		return nil, err
	}

	if err := e.timer.Start(); err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		if _, err := e.proc.Sbrk(i); err != nil {
			return nil, err
		}
		if _, err := e.proc.Sbrk(-i); err != nil {
			return nil, err
		}
	}
	if err := e.timer.Stop(); err != nil {
		return nil, err
	}

	end, err := e.proc.Sbrk(0)
	if err != nil {
		return nil, err
	}
	if end != start {
		return nil, errors.Errorf("sbrk: break moved from %#x to %#x", start, end)
	}
	return newReport(e.timer, opCount{2 * n, "brks"}), nil
}

func benchRawGetpid(e *env, n int) (*report, error) {
	if err := e.timer.Start(); err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		unix.RawSyscall(unix.SYS_GETPID, 0, 0, 0)
	}
	if err := e.timer.Stop(); err != nil {
		return nil, err
	}
	return newReport(e.timer, opCount{n, "syscall(getpid)s"}), nil
}
