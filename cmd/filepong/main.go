// Command filepong runs the client or server side of the shared-file
// ping/pong exchange.
package main

import (
	"os"

	"github.com/YaroslavSolovev/AKOS-Laba2/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
