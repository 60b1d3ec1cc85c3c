// Command refctl is the operator tool for a refshelf data directory: it seeds
// the schema catalog, prints a catalog report, exports BibTeX and removes
// references regardless of owner.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
