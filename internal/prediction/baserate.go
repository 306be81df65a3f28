package prediction

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/bonecondor/space-weather/internal/models"
)

// EventSource provides significant historical events for base-rate sampling.
// Implemented by the Postgres archive and by the DONKI history adapter.
type EventSource interface {
	EventsInRange(ctx context.Context, from, to time.Time) ([]models.MatchedEvent, error)
}

// BaseRateResult is the outcome of one offline base-rate computation.
type BaseRateResult struct {
	Rate          float64
	SampleWindows int
	EventsSampled int
	HistoryFrom   time.Time
	HistoryTo     time.Time
}

// ComputeBaseRate samples random windows of windowHours across
// [historyFrom, historyTo] and returns the fraction containing at least one
// significant event. The whole history is fetched once; window membership is
// then a binary search over the sorted event times.
func ComputeBaseRate(ctx context.Context, source EventSource, historyFrom, historyTo time.Time, windowHours, samples int, rng *rand.Rand) (BaseRateResult, error) {
	window := time.Duration(windowHours) * time.Hour
	span := historyTo.Sub(historyFrom) - window
	if span <= 0 {
		return BaseRateResult{}, fmt.Errorf("history range %s..%s is shorter than one %dh window", historyFrom.Format("2006-01-02"), historyTo.Format("2006-01-02"), windowHours)
	}
	if samples <= 0 {
		return BaseRateResult{}, fmt.Errorf("sample count must be positive")
	}

	events, err := source.EventsInRange(ctx, historyFrom, historyTo)
	if err != nil {
		return BaseRateResult{}, fmt.Errorf("load historical events failed: %w", err)
	}
	times := make([]time.Time, len(events))
	for i, e := range events {
		times[i] = e.Timestamp
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	occupied := 0
	for i := 0; i < samples; i++ {
		start := historyFrom.Add(time.Duration(rng.Int63n(int64(span))))
		end := start.Add(window)
		// First event at or after start; occupied if it falls before end.
		idx := sort.Search(len(times), func(j int) bool { return !times[j].Before(start) })
		if idx < len(times) && times[idx].Before(end) {
			occupied++
		}
	}

	return BaseRateResult{
		Rate:          float64(occupied) / float64(samples),
		SampleWindows: samples,
		EventsSampled: len(events),
		HistoryFrom:   historyFrom,
		HistoryTo:     historyTo,
	}, nil
}
