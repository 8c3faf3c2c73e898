package main

import (
	"context"
	"os"

	"github.com/tdh8316/probex/internal/app"
)

func main() {
	// A scan always runs to completion; an interrupt terminates the process.
	os.Exit(app.Run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
