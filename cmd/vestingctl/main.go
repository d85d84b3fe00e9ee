package main

import (
	"os"

	"tokenvest/cmd/vestingctl/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
