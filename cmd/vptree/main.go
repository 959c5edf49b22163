// Command vptree imports histogram features into SQLite, builds and stores
// vantage-point trees, answers range queries and evaluates retrieval quality.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
