// Package main is the entry point for the firebolt CLI binary.
package main

import (
	"os"

	cli "github.com/firebolt-db/firebolt-cli/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
