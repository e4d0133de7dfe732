// Command dashgen generates Next.js admin CRUD modules from template inputs.
//
// Usage:
//
//	dashgen generate examples/templates/finance.json --root ../admin
//	dashgen validate input.yaml
//	dashgen preview input.json --kind model
//	dashgen drafts list
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/matthewbaird/dashgen/cmd/dashgen/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := commands.Execute(ctx, os.Args[1:]); err != nil {
		os.Exit(1)
	}
}
