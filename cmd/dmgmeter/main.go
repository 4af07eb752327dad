// Package main provides the dmgmeter CLI: capture replay and health log
// maintenance for the party damage meter.
package main

import (
	"fmt"
	"os"

	"github.com/cory-johannsen/partydamage/cmd/dmgmeter/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
