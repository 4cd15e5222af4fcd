package main

import (
	"os"

	"souzoku/cmd/souzoku/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
