// Package main is the entry point for the everdex CLI.
package main

import (
	"fmt"
	"os"

	"github.com/imyousuf/everdex/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "everdex: %v\n", err)
		os.Exit(1)
	}
}
