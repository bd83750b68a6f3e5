// Command clockmesh runs and analyzes small clusters of machines that
// exchange timestamped messages over TCP while maintaining Lamport
// logical clocks.
package main

import (
	"fmt"
	"os"
)

const version = "0.1.0"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "clockmesh: %v\n", err)
		os.Exit(1)
	}
}
