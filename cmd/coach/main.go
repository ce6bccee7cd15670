package main

import (
	"os"

	"github.com/bnema/coachsync/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
