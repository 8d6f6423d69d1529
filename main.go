package main

import (
	"os"

	"github.com/dp2pwn/surfacer/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
