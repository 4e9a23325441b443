// Command debbie builds Debian packages from definition files.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, red("Fatal:"), err)
		os.Exit(1)
	}
}
