// Package main is the entry point for the walletdir CLI.
package main

import (
	"os"

	"github.com/aira-payment/walletdir/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
