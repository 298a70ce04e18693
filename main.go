package main

import (
	"os"

	"github.com/autovagas/autovagas/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
