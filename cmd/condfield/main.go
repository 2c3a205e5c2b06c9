package main

import (
	"os"

	"github.com/solatis/condfield/cmd/condfield/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
