package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dtcenter/METplus-sub003/cli"
	"github.com/dtcenter/METplus-sub003/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := cli.Run(ctx, os.Exit, os.Args[1:]...)

	stop()

	if err != nil {
		log.Error("rtgen failed", slog.Any("error", err))
		os.Exit(1)
	}
}
