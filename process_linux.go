//go:build linux && (amd64 || arm64)

package main

import (
	"os"
	"runtime"
	"strconv"
	"syscall"
	"time"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/process"
	"golang.org/x/sys/unix"
)

const (
	sigDfl = 0
	sigIgn = 1

	// exit status of a child whose execve failed
	execFailed = 127

	pollInterval = time.Millisecond
)

type linuxBackend struct {
	env []string
	brk uintptr

	images map[string]*execImage
	// execErrno lives in a MAP_SHARED page so that a child can report why
	// execve failed.
	execErrno *uint32
	execPaths map[int]string
}

func newProcessBackend() processBackend {
	return &linuxBackend{
		env:       os.Environ(),
		images:    make(map[string]*execImage),
		execPaths: make(map[int]string),
	}
}

// execImage is the execve argument block for one program, built once.
type execImage struct {
	path *byte
	argv []*byte
	envv []*byte
}

func cstrings(ss []string) ([]*byte, error) {
	out := make([]*byte, len(ss)+1)
	for i, s := range ss {
		p, err := unix.BytePtrFromString(s)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

func (b *linuxBackend) image(path string) (*execImage, error) {
	if img, ok := b.images[path]; ok {
		return img, nil
	}
	p, err := unix.BytePtrFromString(path)
	if err != nil {
		return nil, fail(err, "execl", path)
	}
	argv, err := cstrings([]string{path})
	if err != nil {
		return nil, fail(err, "execl", path)
	}
	envv, err := cstrings(b.env)
	if err != nil {
		return nil, fail(err, "execl", path)
	}
	img := &execImage{path: p, argv: argv, envv: envv}
	b.images[path] = img
	return img, nil
}

func (b *linuxBackend) errnoSlot() (*uint32, error) {
	if b.execErrno == nil {
		page, err := unix.Mmap(-1, 0, os.Getpagesize(), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_ANON)
		if err != nil {
			return nil, fail(err, "mmap", "")
		}
		b.execErrno = (*uint32)(unsafe.Pointer(&page[0]))
	}
	return b.execErrno, nil
}

// forkExit clones the calling process; the child leaves through exit_group
// without returning into the Go runtime.
//
//go:nosplit
func forkExit() (int, syscall.Errno) {
	pid, _, errno := unix.RawSyscall6(unix.SYS_CLONE, uintptr(unix.SIGCHLD), 0, 0, 0, 0, 0)
	if errno != 0 {
		return 0, errno
	}
	if pid == 0 {
		unix.RawSyscall(unix.SYS_EXIT_GROUP, 0, 0, 0)
	}
	return int(pid), 0
}

// forkExec clones the calling process and replaces the child's image. A
// non-nil dfl is installed for SIGHUP and SIGINT first, so that the new
// program starts without inherited ignores. On failure the child stores the
// errno in *errp and exits with execFailed.
//
//go:nosplit
func forkExec(path *byte, argv, envv **byte, dfl *sigactiont, errp *uint32) (int, syscall.Errno) {
	pid, _, errno := unix.RawSyscall6(unix.SYS_CLONE, uintptr(unix.SIGCHLD), 0, 0, 0, 0, 0)
	if errno != 0 {
		return 0, errno
	}
	if pid != 0 {
		return int(pid), 0
	}
	if dfl != nil {
		unix.RawSyscall6(unix.SYS_RT_SIGACTION, uintptr(unix.SIGHUP), uintptr(unsafe.Pointer(dfl)), 0, unsafe.Sizeof(dfl.mask), 0, 0)
		unix.RawSyscall6(unix.SYS_RT_SIGACTION, uintptr(unix.SIGINT), uintptr(unsafe.Pointer(dfl)), 0, unsafe.Sizeof(dfl.mask), 0, 0)
	}
	_, _, errno = unix.RawSyscall(unix.SYS_EXECVE, uintptr(unsafe.Pointer(path)),
		uintptr(unsafe.Pointer(argv)), uintptr(unsafe.Pointer(envv)))
	*errp = uint32(errno)
	unix.RawSyscall(unix.SYS_EXIT_GROUP, execFailed, 0, 0)
	return 0, 0
}

func (b *linuxBackend) spawn(path string, resetSignals bool) (int, error) {
	img, err := b.image(path)
	if err != nil {
		return 0, err
	}
	errp, err := b.errnoSlot()
	if err != nil {
		return 0, err
	}
	var dfl *sigactiont
	if resetSignals {
		dfl = &sigactiont{handler: sigDfl}
	}
	*errp = 0
	pid, errno := forkExec(img.path, &img.argv[0], &img.envv[0], dfl, errp)
	runtime.KeepAlive(img)
	runtime.KeepAlive(dfl)
	if errno != 0 {
		return 0, fail(errno, "fork", "")
	}
	b.execPaths[pid] = path
	return pid, nil
}

func (b *linuxBackend) SpawnAndWait() error {
	pid, errno := forkExit()
	if errno != 0 {
		return fail(errno, "fork", "")
	}
	return b.Wait(pid)
}

func (b *linuxBackend) SpawnAndExec(path string) error {
	pid, err := b.spawn(path, false)
	if err != nil {
		return err
	}
	return b.Wait(pid)
}

// Launch returns once the child has replaced its image or exited, so that
// its signal masks are the new program's and not a copy of ours.
func (b *linuxBackend) Launch(path string) (int, error) {
	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_CLOEXEC); err != nil {
		return 0, fail(err, "pipe", "")
	}
	defer unix.Close(p[0])
	pid, err := b.spawn(path, true)
	unix.Close(p[1])
	if err != nil {
		return 0, err
	}
	// EOF once the child's copy of the write end is gone
	var buf [1]byte
	for {
		if _, err := unix.Read(p[0], buf[:]); err != unix.EINTR {
			break
		}
	}
	return pid, nil
}

func (b *linuxBackend) Wait(pid int) error {
	var ws unix.WaitStatus
	for {
		_, err := unix.Wait4(pid, &ws, 0, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return fail(err, "wait", strconv.Itoa(pid))
		}
		break
	}
	return b.exitError(pid, ws)
}

// execError reports a reaped child whose execve failed; it forgets pid.
func (b *linuxBackend) execError(pid int, ws unix.WaitStatus) error {
	path, execed := b.execPaths[pid]
	delete(b.execPaths, pid)
	if execed && ws.Exited() && ws.ExitStatus() == execFailed && *b.execErrno != 0 {
		return fail(syscall.Errno(*b.execErrno), "execl", path)
	}
	return nil
}

// exitError describes how a reaped child ended; a clean exit is nil.
func (b *linuxBackend) exitError(pid int, ws unix.WaitStatus) error {
	if err := b.execError(pid, ws); err != nil {
		return err
	}
	switch {
	case ws.Exited() && ws.ExitStatus() != 0:
		return errors.Errorf("wait: %d: exit status %d", pid, ws.ExitStatus())
	case ws.Signaled():
		return errors.Errorf("wait: %d: %v", pid, ws.Signal())
	}
	return nil
}

func (*linuxBackend) Signal(pid int, sig syscall.Signal) error {
	return fail(unix.Kill(pid, sig), "kill", unix.SignalName(sig))
}

func sigbit(sig syscall.Signal) uint64 { return 1 << (uint(sig) - 1) }

// signalsInfo reads the blocked, ignored and caught masks of pid.
func signalsInfo(pid int) (*process.SignalInfoStat, error) {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return nil, fail(err, "status", strconv.Itoa(pid))
	}
	info, err := p.SignalsInfo()
	if err != nil {
		return nil, fail(err, "status", strconv.Itoa(pid))
	}
	return info, nil
}

func (b *linuxBackend) AwaitSignals(pid int, ignored, caught syscall.Signal, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		info, err := signalsInfo(pid)
		if err != nil {
			return err
		}
		if info.Ignored&sigbit(ignored) != 0 && info.Caught&sigbit(caught) != 0 {
			return nil
		}
		var ws unix.WaitStatus
		if wpid, err := unix.Wait4(pid, &ws, unix.WNOHANG, nil); err != nil {
			return fail(err, "wait", strconv.Itoa(pid))
		} else if wpid == pid {
			if err := b.execError(pid, ws); err != nil {
				return err
			}
			return errors.Errorf("wait: %d: exited before ignoring %s", pid, unix.SignalName(ignored))
		}
		if time.Now().After(deadline) {
			return errors.Errorf("wait: %d: does not ignore %s and catch %s after %v",
				pid, unix.SignalName(ignored), unix.SignalName(caught), timeout)
		}
		time.Sleep(pollInterval)
	}
}

// sigactiont is the kernel's struct sigaction on amd64 and arm64.
type sigactiont struct {
	handler  uintptr
	flags    uint64
	restorer uintptr
	mask     uint64
}

func rtSigaction(sig syscall.Signal, act, old *sigactiont) error {
	_, _, errno := unix.RawSyscall6(unix.SYS_RT_SIGACTION, uintptr(sig),
		uintptr(unsafe.Pointer(act)), uintptr(unsafe.Pointer(old)), unsafe.Sizeof(sigactiont{}.mask), 0, 0)
	if errno != 0 {
		return fail(errno, "signal", unix.SignalName(sig))
	}
	return nil
}

func (*linuxBackend) InstallHandler(sig syscall.Signal, d disposition) error {
	act := sigactiont{handler: sigDfl}
	if d == dispIgnore {
		act.handler = sigIgn
	}
	return rtSigaction(sig, &act, nil)
}

func (*linuxBackend) SaveHandlers(sigs ...syscall.Signal) (func() error, error) {
	saved := make([]sigactiont, len(sigs))
	for i, sig := range sigs {
		if err := rtSigaction(sig, nil, &saved[i]); err != nil {
			return nil, err
		}
	}
	restore := func() error {
		for i, sig := range sigs {
			if err := rtSigaction(sig, &saved[i], nil); err != nil {
				return err
			}
		}
		return nil
	}
	return restore, nil
}

// currentBreak asks the kernel for the program break.
func currentBreak() uintptr {
	addr, _, _ := unix.RawSyscall(unix.SYS_BRK, 0, 0, 0)
	return addr
}

func (b *linuxBackend) Sbrk(incr int) (uintptr, error) {
	if b.brk == 0 {
		b.brk = currentBreak()
	}
	old := b.brk
	if incr == 0 {
		return old, nil
	}
	want := uintptr(int(old) + incr)
	got, _, _ := unix.RawSyscall(unix.SYS_BRK, want, 0, 0)
	if got != want {
		return 0, fail(unix.ENOMEM, "sbrk", strconv.Itoa(incr))
	}
	b.brk = got
	return old, nil
}

func kernelRelease() string {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return "linux"
	}
	return unix.ByteSliceToString(uts.Sysname[:]) + " " + unix.ByteSliceToString(uts.Release[:])
}
