package main

import (
	"context"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	err := newRootCmd().ExecuteContext(ctx)
	stop()
	writeMetrics()

	if err != nil {
		printFailure(os.Stderr, err)
		os.Exit(1)
	}
}
