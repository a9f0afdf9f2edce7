// Package main provides the entry point for the srcmetrics CLI.
package main

import (
	"os"

	"github.com/srcmetrics/srcmetrics/cmd/srcmetrics/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
