// Command gridcli downloads the daily generation reports, rebuilds their
// hierarchy into level CSV files and collects the meritindia feeds.
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
