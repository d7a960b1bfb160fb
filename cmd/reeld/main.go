// Command reeld runs the call-recording pipeline daemon.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"reel/internal/config"
	"reel/internal/daemon"
	"reel/internal/logging"
	"reel/internal/queue"
	"reel/internal/workflow"
)

func main() {
	configPath := flag.String("config", "", "path to the configuration file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, resolvedPath, _, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, configLoadMessage(err))
		os.Exit(1)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		os.Exit(1)
	}

	manager := workflow.NewManager(cfg, store, logger)

	d, err := daemon.New(cfg, store, logger, manager)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		_ = store.Close()
		os.Exit(1)
	}

	if err := d.Start(ctx); err != nil {
		logger.Error("start daemon", logging.Error(err))
		_ = d.Close()
		os.Exit(1)
	}
	logger.Info("reeld running",
		logging.String("config", resolvedPath),
		logging.String("bind", d.HealthAddr()),
	)

	<-ctx.Done()
	logger.Info("reeld shutting down")
	if err := d.Close(); err != nil {
		logger.Error("shutdown", logging.Error(err))
		os.Exit(1)
	}
}

// configLoadMessage renders configuration failures for stderr. Validation
// problems are listed individually so operators can fix them in one pass.
func configLoadMessage(err error) string {
	var fatal *config.FatalError
	if errors.As(err, &fatal) {
		return fatal.Error()
	}
	return fmt.Sprintf("load config: %v", err)
}
