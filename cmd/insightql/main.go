// Package main is the entry point for the insightql CLI binary.
package main

import (
	"os"

	cli "insightql/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
