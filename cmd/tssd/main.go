package main

import (
	"fmt"
	"os"

	"github.com/yndnr/tssd/internal/cli/command"
)

func main() {
	if err := command.App(run).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
