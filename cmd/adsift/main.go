// Package main is the entry point for the adsift CLI.
package main

import (
	"os"

	"github.com/jmylchreest/adsift/cmd/adsift/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
