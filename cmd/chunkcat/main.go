// Package main provides chunkcat, a CLI for splitting byte streams into
// fixed-size chunks and replaying them through cursors.
package main

import (
	"os"

	"github.com/mulesoftforge/chunkstream/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Stdin, os.Stdout, os.Stderr, os.Args))
}
