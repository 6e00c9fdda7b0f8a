package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rxtech-lab/argo-sizing/internal/dashboard"
	"github.com/urfave/cli/v3"
)

func serveAction(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := openBot(ctx, cmd.String("config"), false)
	if err != nil {
		return err
	}
	defer b.close()

	server := dashboard.NewServer(b.agent, b.registry, b.log)
	if err := server.Start(cmd.String("addr")); err != nil {
		return err
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return server.Stop(shutdownCtx)
}
