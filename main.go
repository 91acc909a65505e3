package main

import (
	"os"

	"github.com/ibeckermayer/tgharvest/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
