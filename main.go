package main

import (
	"os"

	"github.com/wegman-software/pbf2json-go/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
