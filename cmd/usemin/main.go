package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"go.uber.org/automaxprocs/maxprocs"
)

func main() {
	// maxprocs.Set only fails on an invalid GOMAXPROCS, in which case runtime defaults apply
	_, _ = maxprocs.Set(maxprocs.Logger(func(string, ...interface{}) {}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	if err != nil {
		color.New(color.FgRed, color.Bold).Fprint(os.Stderr, "usemin: ")
		color.New(color.FgRed).Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
