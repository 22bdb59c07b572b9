//go:build !(linux && (amd64 || arm64))

package main

import (
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

var errUnsupported = errors.New("not supported on " + runtime.GOOS + "/" + runtime.GOARCH)

// unsupportedBackend keeps the non-process runners usable on other
// platforms; every process primitive fails.
type unsupportedBackend struct{}

func newProcessBackend() processBackend { return unsupportedBackend{} }

func (unsupportedBackend) SpawnAndWait() error { return fail(errUnsupported, "fork", "") }

func (unsupportedBackend) SpawnAndExec(path string) error {
	return fail(errUnsupported, "execl", path)
}

func (unsupportedBackend) Launch(path string) (int, error) {
	return 0, fail(errUnsupported, "execl", path)
}

func (unsupportedBackend) AwaitSignals(pid int, _, _ syscall.Signal, _ time.Duration) error {
	return fail(errUnsupported, "wait", strconv.Itoa(pid))
}

func (unsupportedBackend) Signal(_ int, sig syscall.Signal) error {
	return fail(errUnsupported, "kill", unix.SignalName(sig))
}

func (unsupportedBackend) Wait(pid int) error {
	return fail(errUnsupported, "wait", strconv.Itoa(pid))
}

func (unsupportedBackend) InstallHandler(sig syscall.Signal, _ disposition) error {
	return fail(errUnsupported, "signal", unix.SignalName(sig))
}

func (unsupportedBackend) SaveHandlers(...syscall.Signal) (func() error, error) {
	return nil, fail(errUnsupported, "signal", "")
}

func (unsupportedBackend) Sbrk(incr int) (uintptr, error) {
	return 0, fail(errUnsupported, "sbrk", strconv.Itoa(incr))
}

func kernelRelease() string { return runtime.GOOS }
