// Package main is the entry point for the invindex CLI.
package main

import (
	"os"

	"github.com/Adithya-Monish-Kumar-K/invindex/cmd/indexer/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
