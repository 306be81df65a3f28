package prediction

import (
	"math"
	"testing"
	"time"

	"github.com/bonecondor/space-weather/internal/models"
)

func TestBuildScorecardCounts(t *testing.T) {
	now := time.Now().UTC()
	ps := models.DefaultPredictionState()
	ps.Predictions = []models.Prediction{
		{ID: "1", Timestamp: now.Add(-72 * time.Hour), Status: models.PredictionHit},
		{ID: "2", Timestamp: now.Add(-60 * time.Hour), Status: models.PredictionMiss},
		{ID: "3", Timestamp: now.Add(-48 * time.Hour), Status: models.PredictionHit},
		{ID: "4", Timestamp: now.Add(-2 * time.Hour), Status: models.PredictionPending},
	}

	card := BuildScorecard(ps, now)
	if card.Hits != 2 || card.Misses != 1 || card.Pending != 1 {
		t.Fatalf("counts hits=%d misses=%d pending=%d", card.Hits, card.Misses, card.Pending)
	}
	if card.Hits+card.Misses+card.Pending != len(ps.Predictions) {
		t.Error("counts must partition the prediction log")
	}
	if card.HitRate == nil || math.Abs(*card.HitRate-2.0/3.0) > 1e-9 {
		t.Errorf("hitRate %v, want 2/3", card.HitRate)
	}
	if card.TotalDaysTracked != 3 {
		t.Errorf("totalDaysTracked %d, want 3", card.TotalDaysTracked)
	}
	if card.PValue != nil {
		t.Error("pValue must be absent without a base rate")
	}
}

func TestBuildScorecardEmptyLog(t *testing.T) {
	card := BuildScorecard(models.DefaultPredictionState(), time.Now().UTC())
	if card.HitRate != nil || card.PValue != nil {
		t.Error("hitRate and pValue must be absent with no decided predictions")
	}
	if card.TotalDaysTracked != 0 {
		t.Errorf("totalDaysTracked %d", card.TotalDaysTracked)
	}
}

func TestBuildScorecardPValue(t *testing.T) {
	now := time.Now().UTC()
	base := 0.5
	ps := models.DefaultPredictionState()
	ps.Config.BaseRate = &base
	ps.Predictions = []models.Prediction{
		{ID: "1", Timestamp: now.Add(-48 * time.Hour), Status: models.PredictionHit},
		{ID: "2", Timestamp: now.Add(-24 * time.Hour), Status: models.PredictionMiss},
	}

	card := BuildScorecard(ps, now)
	if card.PValue == nil {
		t.Fatal("pValue missing")
	}
	// P(X >= 1 | n=2, p=0.5) = 0.75
	if math.Abs(*card.PValue-0.75) > 1e-9 {
		t.Errorf("pValue %v, want 0.75", *card.PValue)
	}
}

func TestBinomPValueEdges(t *testing.T) {
	if got := binomPValue(0, 10, 0.3); got != 1 {
		t.Errorf("zero hits should give p-value 1, got %v", got)
	}
	if got := binomPValue(3, 10, 0); got != 0 {
		t.Errorf("impossible hits under base rate 0 should give 0, got %v", got)
	}
	if got := binomPValue(3, 10, 1); got != 1 {
		t.Errorf("base rate 1 should give 1, got %v", got)
	}

	// Full tail sums to 1 regardless of p.
	if got := binomPValue(0, 50, 0.123); got != 1 {
		t.Errorf("hits=0 tail should be exactly 1, got %v", got)
	}

	// Stays in [0,1] and monotone in hits for a large n.
	prev := 2.0
	for hits := 0; hits <= 200; hits += 20 {
		p := binomPValue(hits, 200, 0.4)
		if p < 0 || p > 1 {
			t.Fatalf("p-value out of range at hits=%d: %v", hits, p)
		}
		if p > prev+1e-12 {
			t.Fatalf("p-value must not increase with hits: hits=%d %v > %v", hits, p, prev)
		}
		prev = p
	}
}

func TestBinomPValueAgainstClosedForm(t *testing.T) {
	// P(X >= 9 | n=10, p=0.5) = (10 + 1) / 1024
	want := 11.0 / 1024.0
	if got := binomPValue(9, 10, 0.5); math.Abs(got-want) > 1e-12 {
		t.Errorf("got %v, want %v", got, want)
	}
}
