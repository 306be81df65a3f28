package main

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"github.com/bonecondor/space-weather/internal/archive"
	"github.com/bonecondor/space-weather/internal/checker"
	"github.com/bonecondor/space-weather/internal/config"
	"github.com/bonecondor/space-weather/internal/dispatch"
	"github.com/bonecondor/space-weather/internal/logging"
	"github.com/bonecondor/space-weather/internal/prediction"
	"github.com/bonecondor/space-weather/internal/providers"
	"github.com/bonecondor/space-weather/internal/state"
	"github.com/bonecondor/space-weather/internal/swpc"
)

// The checker is invoked by an external scheduler (cron/systemd timer) every
// ~15 minutes; each invocation is one tick.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Keep the tick log bounded before opening it for append.
	logPath := filepath.Join(cfg.Logging.Dir, "checker.log")
	if err := logging.TruncateIfLarge(logPath, cfg.Checker.MaxLogSize); err != nil {
		log.Printf("Log truncation failed: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Dir, "checker", cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Close()

	lock := state.NewLock(cfg.Paths.LockFile, cfg.Checker.LockTimeout, logger)
	acquired, err := lock.Acquire()
	if err != nil {
		logger.Errorf("Lock acquisition failed: %v", err)
		os.Exit(1)
	}
	if !acquired {
		// A live holder within the timeout is an expected cadence
		// collision, not a failure.
		os.Exit(0)
	}
	defer lock.Release()

	ctx := context.Background()

	states := state.NewStore(cfg.Paths.StateFile, cfg.Checker.MaxAlertHistory, logger)
	client := swpc.NewClient(cfg, logger)
	predictions := prediction.NewStore(cfg, logger)

	channels, closeChannels := providers.Build(cfg, logger)
	defer closeChannels()
	dispatcher := dispatch.New(channels, cfg.Channels, logger)
	// The Kafka topic carries every dispatched alert, independent of the
	// urgency routing table.
	if publish, ok := channels["kafka"]; ok {
		dispatcher.Mirror("kafka", publish)
	}

	var arch *archive.Archive
	if cfg.DB.DSN != "" {
		arch, err = archive.New(ctx, cfg.DB.DSN)
		if err != nil {
			logger.Errorf("Archive unavailable, continuing without it: %v", err)
		} else {
			defer arch.Close()
		}
	}

	c := checker.New(cfg, logger, states, client, dispatcher, predictions, arch)
	if err := c.RunOnce(ctx); err != nil {
		logger.Errorf("Tick finished with pipeline error: %v", err)
		os.Exit(1)
	}
	logger.Infof("Tick complete")
}
