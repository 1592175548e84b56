// Package main is the entry point for the osisim OSI stack simulator.
package main

import (
	"fmt"
	"os"

	"firestige.xyz/osisim/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
