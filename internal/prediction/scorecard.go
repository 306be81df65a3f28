package prediction

import (
	"math"
	"time"

	"github.com/bonecondor/space-weather/internal/models"
)

// BuildScorecard summarizes the prediction log and, when a base rate is
// available, tests the hit count against it.
func BuildScorecard(ps *models.PredictionState, now time.Time) models.Scorecard {
	card := models.Scorecard{BaseRate: ps.Config.BaseRate}
	for _, p := range ps.Predictions {
		switch p.Status {
		case models.PredictionHit:
			card.Hits++
		case models.PredictionMiss:
			card.Misses++
		default:
			card.Pending++
		}
	}

	if n := card.Hits + card.Misses; n > 0 {
		rate := float64(card.Hits) / float64(n)
		card.HitRate = &rate
		if ps.Config.BaseRate != nil {
			p := binomPValue(card.Hits, n, *ps.Config.BaseRate)
			card.PValue = &p
		}
	}

	if len(ps.Predictions) > 0 {
		card.TotalDaysTracked = int(now.Sub(ps.Predictions[0].Timestamp).Hours() / 24)
	}
	return card
}

// binomPValue computes the one-tailed P(X >= hits) for X ~ Binomial(n, p),
// summing the PMF in log space to stay stable for large n.
func binomPValue(hits, n int, p float64) float64 {
	if hits <= 0 {
		return 1
	}
	if p <= 0 {
		return 0
	}
	if p >= 1 {
		return 1
	}

	logP := math.Log(p)
	logQ := math.Log(1 - p)
	logTerms := make([]float64, 0, n-hits+1)
	for k := hits; k <= n; k++ {
		logTerms = append(logTerms, logChoose(n, k)+float64(k)*logP+float64(n-k)*logQ)
	}
	result := math.Exp(logSumExp(logTerms))
	if result > 1 {
		result = 1
	}
	return result
}

func logChoose(n, k int) float64 {
	lgN, _ := math.Lgamma(float64(n + 1))
	lgK, _ := math.Lgamma(float64(k + 1))
	lgNK, _ := math.Lgamma(float64(n - k + 1))
	return lgN - lgK - lgNK
}

// logSumExp computes log(sum(exp(x))) without overflow.
func logSumExp(xs []float64) float64 {
	if len(xs) == 0 {
		return math.Inf(-1)
	}
	max := xs[0]
	for _, x := range xs[1:] {
		if x > max {
			max = x
		}
	}
	if math.IsInf(max, -1) {
		return max
	}
	sum := 0.0
	for _, x := range xs {
		sum += math.Exp(x - max)
	}
	return max + math.Log(sum)
}
