// pasc is the command-line driver for the Pascal-subset compiler.
package main

import (
	"os"

	"github.com/chazu/pasc/cmd/pasc/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
