// cmd is the tourreg command line: the HTTP server plus the operational
// subcommands (migrate, seed, summary, hash-password).
package main

import (
	"os"
)

// Build information injected via ldflags at build time.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
