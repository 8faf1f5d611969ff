// Package main provides the jelly CLI, which checks flow graphs from files.
package main

import (
	"errors"
	"fmt"
	"os"
)

// Version information set during build
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := newRootCommand(os.Stdout).Execute(); err != nil {
		if !errors.Is(err, errRejected) {
			fmt.Fprintln(os.Stderr, "jelly:", err)
		}
		os.Exit(1)
	}
}
