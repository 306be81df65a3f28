package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bonecondor/space-weather/internal/config"
	"github.com/bonecondor/space-weather/internal/logging"
	"github.com/bonecondor/space-weather/internal/models"
	"github.com/bonecondor/space-weather/internal/prediction"
	"github.com/bonecondor/space-weather/internal/state"
)

func testRouter(t *testing.T) (*gin.Engine, *state.Store, *prediction.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.Paths.StateFile = filepath.Join(dir, "checker-state.json")
	cfg.Paths.PredictionsFile = filepath.Join(dir, "predictions.json")
	cfg.Checker.MaxAlertHistory = 100
	cfg.Prediction.VerificationWindowHours = 48
	cfg.Prediction.CooldownHours = 6
	cfg.Prediction.MaxPredictions = 500
	cfg.API.BasePath = "/api/v0"

	logger := logging.Discard()
	states := state.NewStore(cfg.Paths.StateFile, cfg.Checker.MaxAlertHistory, logger)
	predictions := prediction.NewStore(cfg, logger)
	return NewRouter(states, predictions, cfg, logger), states, predictions
}

func TestGetAlertsInactiveWithoutStateFile(t *testing.T) {
	router, _, _ := testRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v0/alerts", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var body struct {
		CheckerActive bool               `json:"checkerActive"`
		Alerts        []models.SentAlert `json:"alerts"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.CheckerActive {
		t.Error("checkerActive must be false before the first tick")
	}
	if len(body.Alerts) != 0 {
		t.Errorf("alerts %+v", body.Alerts)
	}
}

func TestGetAlertsNewestFirst(t *testing.T) {
	router, states, _ := testRouter(t)

	now := time.Now().UTC().Truncate(time.Second)
	st := models.DefaultCheckerState()
	st.LastRunAt = &now
	st.LastKp = 5.3
	for i := 0; i < 60; i++ {
		st.AlertsSent = append(st.AlertsSent, models.SentAlert{
			ID:        "a" + string(rune('0'+i%10)) + string(rune('0'+i/10)),
			Type:      models.AlertKpThreshold,
			Timestamp: now.Add(time.Duration(i) * time.Minute),
		})
	}
	if err := states.Save(st); err != nil {
		t.Fatal(err)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v0/alerts", nil))

	var body struct {
		CheckerActive bool               `json:"checkerActive"`
		Alerts        []models.SentAlert `json:"alerts"`
		CurrentValues struct {
			Kp float64 `json:"kp"`
		} `json:"currentValues"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if !body.CheckerActive {
		t.Error("checkerActive must be true once state exists")
	}
	if len(body.Alerts) != 50 {
		t.Fatalf("alerts length %d, want capped at 50", len(body.Alerts))
	}
	if !body.Alerts[0].Timestamp.After(body.Alerts[1].Timestamp) {
		t.Error("alerts must be newest first")
	}
	if body.CurrentValues.Kp != 5.3 {
		t.Errorf("currentValues.kp %v", body.CurrentValues.Kp)
	}
}

func TestSubmitPredictionAndCooldown(t *testing.T) {
	router, _, _ := testRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v0/predictions", strings.NewReader(`{"note":"big sunspot group"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("first submit status %d: %s", w.Code, w.Body.String())
	}
	var created models.Prediction
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if created.Status != models.PredictionPending || created.Note != "big sunspot group" {
		t.Errorf("created %+v", created)
	}

	// Immediate resubmission hits the cooldown.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v0/predictions", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second submit status %d, want 429", w.Code)
	}
	var cooldown struct {
		Error        string    `json:"error"`
		CooldownEnds time.Time `json:"cooldownEnds"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &cooldown); err != nil {
		t.Fatal(err)
	}
	if cooldown.Error != "cooldown" || cooldown.CooldownEnds.IsZero() {
		t.Errorf("cooldown body %+v", cooldown)
	}
}

func TestGetPredictionsScorecard(t *testing.T) {
	router, _, preds := testRouter(t)

	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()
	ps := preds.Load(ctx)
	now := time.Now().UTC()
	ps.Predictions = []models.Prediction{
		{ID: "1", Timestamp: now.Add(-96 * time.Hour), Status: models.PredictionHit, WindowHours: 48, WindowEnd: now.Add(-48 * time.Hour)},
		{ID: "2", Timestamp: now.Add(-2 * time.Hour), Status: models.PredictionPending, WindowHours: 48, WindowEnd: now.Add(46 * time.Hour)},
	}
	if err := preds.Save(ctx, ps); err != nil {
		t.Fatal(err)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v0/predictions", nil))

	var body struct {
		Predictions []models.Prediction `json:"predictions"`
		Scorecard   models.Scorecard    `json:"scorecard"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Predictions) != 2 || body.Predictions[0].ID != "2" {
		t.Errorf("predictions must be newest first: %+v", body.Predictions)
	}
	if body.Scorecard.Hits != 1 || body.Scorecard.Pending != 1 {
		t.Errorf("scorecard %+v", body.Scorecard)
	}
}

func TestHealthEndpoint(t *testing.T) {
	router, _, _ := testRouter(t)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
}
