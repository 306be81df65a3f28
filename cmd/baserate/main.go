package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"time"

	"github.com/bonecondor/space-weather/internal/archive"
	"github.com/bonecondor/space-weather/internal/config"
	"github.com/bonecondor/space-weather/internal/logging"
	"github.com/bonecondor/space-weather/internal/prediction"
	"github.com/bonecondor/space-weather/internal/swpc"
)

// One-shot tool: sample random verification-length windows across a
// multi-year event history and persist the fraction containing at least one
// significant event as the prediction base rate. The live pipeline only
// consumes the stored value.
func main() {
	years := flag.Int("years", 5, "history depth in years")
	samples := flag.Int("samples", 2000, "number of random windows to sample")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger, err := logging.New(cfg.Logging.Dir, "baserate", cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Close()

	ctx := context.Background()
	now := time.Now().UTC()
	historyFrom := now.AddDate(-*years, 0, 0)

	// Prefer the local archive when configured; fall back to querying the
	// DONKI history services directly.
	var source prediction.EventSource
	if cfg.DB.DSN != "" {
		arch, err := archive.New(ctx, cfg.DB.DSN)
		if err != nil {
			log.Fatalf("Archive connect failed: %v", err)
		}
		defer arch.Close()
		source = arch
		logger.Infof("Sampling from Postgres archive")
	} else {
		source = swpc.NewHistory(swpc.NewClient(cfg, logger))
		logger.Infof("Sampling from DONKI history services")
	}

	if *seed == 0 {
		*seed = now.UnixNano()
	}
	rng := rand.New(rand.NewSource(*seed))

	windowHours := cfg.Prediction.VerificationWindowHours
	result, err := prediction.ComputeBaseRate(ctx, source, historyFrom, now, windowHours, *samples, rng)
	if err != nil {
		log.Fatalf("Base-rate computation failed: %v", err)
	}
	logger.Infof("Base rate %.4f over %d windows of %dh (%d events in %s..%s)",
		result.Rate, result.SampleWindows, windowHours, result.EventsSampled,
		result.HistoryFrom.Format("2006-01-02"), result.HistoryTo.Format("2006-01-02"))

	store := prediction.NewStore(cfg, logger)
	ps := store.Load(ctx)
	ps.Config.BaseRate = &result.Rate
	computedAt := now
	ps.Config.BaseRateComputedAt = &computedAt
	ps.Config.BaseRateSampleWindows = result.SampleWindows
	if err := store.Save(ctx, ps); err != nil {
		log.Fatalf("Persist base rate failed: %v", err)
	}
	logger.Infof("Base rate persisted")
}
