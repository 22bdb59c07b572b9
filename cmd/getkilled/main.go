// Command getkilled ignores SIGHUP and exits cleanly on SIGINT. The syscalls
// benchmark launches it as ./get_killed and signals it:
//
//	go build -o get_killed ./cmd/getkilled
package main

import "github.com/violenttestpen/syscalls/internal/helper"

func main() {
	helper.GetKilled()
}
