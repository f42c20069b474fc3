package main

import (
	"os"

	"github.com/shandysiswandi/gobordereau/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
