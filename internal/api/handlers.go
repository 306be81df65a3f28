package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bonecondor/space-weather/internal/config"
	"github.com/bonecondor/space-weather/internal/logging"
	"github.com/bonecondor/space-weather/internal/models"
	"github.com/bonecondor/space-weather/internal/prediction"
	"github.com/bonecondor/space-weather/internal/state"
)

// alertsPageSize caps the alerts payload to the newest entries.
const alertsPageSize = 50

type Handler struct {
	states      *state.Store
	predictions *prediction.Store
	cfg         *config.Config
	logger      *logging.Logger
}

func NewHandler(states *state.Store, predictions *prediction.Store, cfg *config.Config, logger *logging.Logger) *Handler {
	return &Handler{states: states, predictions: predictions, cfg: cfg, logger: logger}
}

// GetAlerts returns the recent alert history plus current conditions.
func (h *Handler) GetAlerts(c *gin.Context) {
	active := h.states.Exists()
	st := h.states.Load()

	alerts := make([]models.SentAlert, 0, alertsPageSize)
	for i := len(st.AlertsSent) - 1; i >= 0 && len(alerts) < alertsPageSize; i-- {
		alerts = append(alerts, st.AlertsSent[i])
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts":        alerts,
		"health":        st.DataHealth,
		"lastRun":       st.LastRunAt,
		"checkerActive": active,
		"currentValues": gin.H{
			"kp":          st.LastKp,
			"bz":          st.LastBz,
			"windSpeed":   st.LastWindSpeed,
			"windDensity": st.LastWindDensity,
		},
	})
}

// GetPredictions returns the prediction log newest first plus the scorecard.
func (h *Handler) GetPredictions(c *gin.Context) {
	ps := h.predictions.Load(c.Request.Context())

	predictions := make([]models.Prediction, 0, len(ps.Predictions))
	for i := len(ps.Predictions) - 1; i >= 0; i-- {
		predictions = append(predictions, ps.Predictions[i])
	}

	c.JSON(http.StatusOK, gin.H{
		"predictions": predictions,
		"scorecard":   prediction.BuildScorecard(ps, time.Now().UTC()),
		"config": gin.H{
			"verificationWindowHours": ps.Config.VerificationWindowHours,
			"cooldownHours":           ps.Config.CooldownHours,
			"baseRate":                ps.Config.BaseRate,
		},
	})
}

type submitRequest struct {
	Note string `json:"note"`
}

// SubmitPrediction appends a new pending prediction, subject to the
// submission cooldown.
func (h *Handler) SubmitPrediction(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		h.logger.Errorf("Invalid prediction request body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ctx := c.Request.Context()
	ps := h.predictions.Load(ctx)

	p, err := h.predictions.Submit(ps, req.Note, time.Now().UTC())
	if err != nil {
		if cooldownErr, ok := err.(*prediction.ErrCooldown); ok {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":        "cooldown",
				"cooldownEnds": cooldownErr.CooldownEnds,
			})
			return
		}
		h.logger.Errorf("Prediction submit failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit prediction"})
		return
	}

	if err := h.predictions.Save(ctx, ps); err != nil {
		h.logger.Errorf("Prediction save failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save prediction"})
		return
	}

	h.logger.Infof("Prediction submitted: %s (window ends %s)", p.ID, p.WindowEnd.Format(time.RFC3339))
	c.JSON(http.StatusCreated, p)
}
