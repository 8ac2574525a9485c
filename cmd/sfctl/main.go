// Package main is the entry point for the sfctl CLI tool.
package main

import (
	"os"

	"github.com/scriptflow/scriptflow/cmd/sfctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
