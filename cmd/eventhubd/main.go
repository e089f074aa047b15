// Command eventhubd runs the event hub standalone, logging every
// event it receives and periodically checking that the hub lock isn't
// stuck. It exists to exercise the hub the way a real input reader
// would drive it, not as a production consumer.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"golang.org/x/sync/errgroup"

	"eventhub.dev/eventhub"
	"eventhub.dev/eventhub/internal/config"
	"eventhub.dev/eventhub/internal/glossy"
)

func main() {
	logger := slog.New(glossy.Handler{Level: slog.LevelInfo})
	slog.SetDefault(logger)

	if err := run(); err != nil {
		logger.Error("eventhubd exited", "err", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ctx = eventhub.WithLogger(ctx, slog.Default())

	path, err := config.DefaultPath()
	cfg := config.Config{}
	if err == nil {
		if loaded, loadErr := config.Load(path); loadErr == nil {
			cfg = loaded
		}
	}
	if cfg.InputDirectory == "" {
		cfg.InputDirectory = config.DefaultInputDirectory
	}
	if cfg.VideoDirectory == "" {
		cfg.VideoDirectory = config.DefaultVideoDirectory
	}

	hub, err := eventhub.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("start hub: %w", err)
	}
	defer hub.Close()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for ctx.Err() == nil {
			events := hub.GetEvents(ctx, 1000, 64)
			for _, ev := range events {
				slog.Default().Info("event",
					"device", ev.DeviceId,
					"type", ev.Type,
					"code", ev.Code,
					"value", ev.Value,
				)
			}
		}
		return ctx.Err()
	})

	g.Go(func() error {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				hub.Wake()
				return ctx.Err()
			case <-ticker.C:
				if !hub.Monitor() {
					slog.Default().Warn("hub lock appears stuck")
				}
			}
		}
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
