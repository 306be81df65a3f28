package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bonecondor/space-weather/internal/config"
	"github.com/bonecondor/space-weather/internal/logging"
	"github.com/bonecondor/space-weather/internal/prediction"
	"github.com/bonecondor/space-weather/internal/state"
)

// NewRouter builds the read API over the persisted state and prediction
// files. The server never writes checker state; predictions are the one
// writable resource.
func NewRouter(states *state.Store, predictions *prediction.Store, cfg *config.Config, logger *logging.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(logger))

	h := NewHandler(states, predictions, cfg, logger)
	stream := NewStreamManager(states, logger)

	api := r.Group(cfg.API.BasePath)
	{
		api.GET("/alerts", h.GetAlerts)
		api.GET("/predictions", h.GetPredictions)
		api.POST("/predictions", h.SubmitPrediction)
	}
	r.GET("/ws/alerts", stream.Handle)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "checkerActive": states.Exists()})
	})
	return r
}
