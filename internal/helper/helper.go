// Package helper holds the behaviour of the programs the syscalls benchmark
// executes, so that the shipped commands and the tests run the same code.
package helper

import (
	"os"
	"os/signal"
	"syscall"
)

// GetKilled catches SIGINT, then ignores SIGHUP, and returns once SIGINT
// arrives. The kill benchmark starts sending SIGHUP when it sees both
// dispositions.
func GetKilled() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT)
	signal.Ignore(syscall.SIGHUP)
	<-quit
	signal.Stop(quit)
}
