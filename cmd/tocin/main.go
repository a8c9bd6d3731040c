package main

import (
	"os"

	"github.com/tocinlang/tocin/cmd/tocin/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
