// Package main is the entry point for the bqbridge CLI binary.
package main

import (
	"os"

	cli "bq-bridge/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
