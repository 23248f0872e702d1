package main

import (
	"os"

	"github.com/olehkaliuzhnyi/focus2earn/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
