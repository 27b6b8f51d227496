package main

import (
	"os"

	"taskman/cmd/taskman/cmd"
)

func main() {
	os.Exit(cmd.Execute(os.Args[1:], os.Stdin, os.Stdout, os.Stderr, nil))
}
