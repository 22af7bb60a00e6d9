package main

import (
	"os"

	"github.com/voyago-dev/voyago/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
