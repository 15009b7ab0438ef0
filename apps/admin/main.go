package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/trezcool/examguard/core"
	logsvc "github.com/trezcool/examguard/services/logger"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewSlogLogger(logsvc.NewStdLogger(conf))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli := newCommandLine(conf, logger)
	defer cli.close()

	if err := cli.run(ctx, os.Args[1:]); err != nil {
		if err != errHelp {
			logger.Error("command failed", err)
		}
		stop()
		cli.close()
		os.Exit(1)
	}
}
