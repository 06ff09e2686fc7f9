package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"pizzapos/pkg/app"
)

// main exposes a root-level entry point so operators can simply run `go run pizzapos.go`.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args[1:], nil); err != nil {
		fmt.Fprintf(os.Stderr, "pizzapos stopped with error: %v\n", err)
		os.Exit(1)
	}
}
