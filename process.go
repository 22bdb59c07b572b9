package main

import (
	"syscall"
	"time"
)

type disposition int

const (
	dispDefault disposition = iota
	dispIgnore
)

// processBackend carries the platform specific process, signal and memory
// primitives the runners measure.
type processBackend interface {
	// SpawnAndWait creates a child that exits at once and reaps it.
	SpawnAndWait() error
	// SpawnAndExec creates a child running path and reaps it.
	SpawnAndExec(path string) error
	// Launch starts path in a child with SIGHUP and SIGINT at their default
	// dispositions and returns without waiting.
	Launch(path string) (pid int, err error)
	// AwaitSignals blocks until pid ignores one signal and catches another.
	// It fails if pid exits first or timeout elapses.
	AwaitSignals(pid int, ignored, caught syscall.Signal, timeout time.Duration) error
	Signal(pid int, sig syscall.Signal) error
	Wait(pid int) error

	InstallHandler(sig syscall.Signal, d disposition) error
	// SaveHandlers records the current dispositions of sigs; restore puts
	// them back.
	SaveHandlers(sigs ...syscall.Signal) (restore func() error, err error)

	// Sbrk moves the program break by incr bytes and returns the previous break.
	Sbrk(incr int) (uintptr, error)
}
