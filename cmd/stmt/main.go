package main

import (
	"os"

	"github.com/bitflow/ledger-backend/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
