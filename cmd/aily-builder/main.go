// Command aily-builder resolves a board's build recipe, analyzes a
// sketch's dependencies, and drives an incremental, cached build.
package main

import (
	"os"

	"github.com/aily-project/aily-builder/internal/cli"
)

func main() {
	if err := cli.Root.Execute(); err != nil {
		os.Exit(1)
	}
}
