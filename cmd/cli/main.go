// Package main is the entry point for the tabula CLI binary.
package main

import (
	"os"

	cli "tabula/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
