package main

import (
	"fmt"
	"os"

	"github.com/bokulich-lab/q2pkg/cmd/q2pkg/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
