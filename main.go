package main

import (
	"os"

	"github.com/tmuxwire/tmuxwire/internal/cmd"
	"github.com/tmuxwire/tmuxwire/internal/style"
)

func main() {
	if err := cmd.Execute(); err != nil {
		style.PrintError("%s", err)
		os.Exit(1)
	}
}
