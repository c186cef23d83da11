package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/heresorg/libheres-go/ledger"
)

// Version is set via -ldflags at build time.
var Version = "dev"

func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return true
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

func main() {
	// Handle --help/--version before opening the ledger.
	if isHelpOrVersion() {
		app := newCLIApp(nil)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	baseDir := os.Getenv("HERES_HOME")
	if baseDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
			os.Exit(1)
		}
		baseDir = filepath.Join(homeDir, ".heres")
	}
	if err := os.MkdirAll(baseDir, 0o700); err != nil {
		fmt.Fprintf(os.Stderr, "error: could not create %s: %v\n", baseDir, err)
		os.Exit(1)
	}

	store, err := ledger.OpenBoltStore(filepath.Join(baseDir, "ledger.db"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to open ledger: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	app := newCLIApp(store)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
