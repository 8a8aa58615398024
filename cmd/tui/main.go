package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tasktracker/internal/adapter/client"
	"tasktracker/internal/adapter/tui"
)

func main() {
	apiURL := flag.String("api", "http://127.0.0.1:8080", "base URL of the task API")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := tui.Run(ctx, client.New(*apiURL)); err != nil {
		fmt.Fprintln(os.Stderr, "tui:", err)
		os.Exit(1)
	}
}
