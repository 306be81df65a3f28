package main

import (
	"log"

	"github.com/bonecondor/space-weather/internal/api"
	"github.com/bonecondor/space-weather/internal/config"
	"github.com/bonecondor/space-weather/internal/logging"
	"github.com/bonecondor/space-weather/internal/prediction"
	"github.com/bonecondor/space-weather/internal/state"
)

// The API server is the read side: it exposes the persisted checker state
// and the prediction log to the dashboard, plus prediction submission.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.NewRotating(cfg.Logging.Dir, "server", cfg.Logging.Level)
	defer logger.Close()

	states := state.NewStore(cfg.Paths.StateFile, cfg.Checker.MaxAlertHistory, logger)
	predictions := prediction.NewStore(cfg, logger)

	router := api.NewRouter(states, predictions, cfg, logger)
	logger.Infof("API server starting on %s", cfg.API.Port)
	if err := router.Run(cfg.API.Port); err != nil {
		logger.Errorf("API server failed: %v", err)
	}
}
