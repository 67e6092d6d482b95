package main

import (
	"os"

	"github.com/conorfennell/pocketdeck/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
