package main

import (
	"os"

	"github.com/angelsen/termtap/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
