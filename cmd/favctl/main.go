// Package main provides favctl, an operator tool for inspecting and
// repairing stored favorites and minting development tokens.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "favctl:", err)
		os.Exit(1)
	}
}
