package main

import (
	"os"

	"cdmbridge/cmd/cdmctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
