package main

import (
	"fmt"
	"os"

	"github.com/GoSim-25-26J-441/scenario-search/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
