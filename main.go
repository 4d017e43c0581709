// Package main provides a pointer to M2Sim's real entry point.
// M2Sim is a cycle-accurate out-of-order RV32I CPU simulator.
//
// For the CLI, use: go run ./cmd/m2sim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("M2Sim - out-of-order RV32I CPU simulator")
	fmt.Println("")
	fmt.Println("Usage: m2sim [options] < memory-image.txt")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -config    Path to timing configuration JSON file")
	fmt.Println("  -v         Print a progress heartbeat to stderr")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/m2sim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/m2sim' instead.")
	}
}
