package main

import (
	"os"

	"github.com/stockd-dev/stockd/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
