// Package main is the entry point for the bjwater service and CLI.
package main

import (
	"os"

	"github.com/bher20/bjwater/cmd/bjwater/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
