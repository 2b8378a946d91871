package main

import (
	"os"

	"github.com/petrows/github-linters/src/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
