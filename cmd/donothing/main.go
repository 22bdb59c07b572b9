// Command donothing exits as soon as it starts. The syscalls benchmark execs
// it as ./do_nothing:
//
//	go build -o do_nothing ./cmd/donothing
package main

func main() {}
