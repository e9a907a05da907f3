package main

import (
	"os"

	"github.com/perfline/perfline/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
