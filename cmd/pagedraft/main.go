package main

import (
	"os"

	"github.com/debemdeboas/pagedraft/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
