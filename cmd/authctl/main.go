package main

import (
	"os"

	"github.com/pribylovaa/go-photo-sharing/cmd/authctl/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
