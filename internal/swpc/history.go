package swpc

import (
	"context"
	"fmt"
	"time"

	"github.com/bonecondor/space-weather/internal/models"
)

// historyChunk keeps DONKI range queries inside what the service answers
// comfortably.
const historyChunk = 30 * 24 * time.Hour

// History adapts the DONKI services into a base-rate event source covering
// multi-year ranges, chunked by month.
type History struct {
	client *Client
}

// NewHistory wraps the client for historical queries.
func NewHistory(client *Client) *History {
	return &History{client: client}
}

type donkiFLR struct {
	FlrID     string `json:"flrID"`
	BeginTime string `json:"beginTime"`
	ClassType string `json:"classType"`
}

// EventsInRange returns significant events (M+ flares, Kp>=5 storms,
// Earth-directed CMEs) between from and to. Satisfies
// prediction.EventSource.
func (h *History) EventsInRange(ctx context.Context, from, to time.Time) ([]models.MatchedEvent, error) {
	var events []models.MatchedEvent

	for chunkStart := from; chunkStart.Before(to); chunkStart = chunkStart.Add(historyChunk) {
		chunkEnd := chunkStart.Add(historyChunk)
		if chunkEnd.After(to) {
			chunkEnd = to
		}
		dateRange := fmt.Sprintf("startDate=%s&endDate=%s",
			chunkStart.Format("2006-01-02"), chunkEnd.Format("2006-01-02"))

		var flares []donkiFLR
		if err := h.client.getJSON(ctx, h.client.donkiURL+"/FLR?"+dateRange, &flares); err != nil {
			return nil, fmt.Errorf("FLR history %s: %w", dateRange, err)
		}
		for _, raw := range flares {
			begin, err := parseFeedTime(raw.BeginTime)
			if err != nil {
				continue
			}
			letter := flareClassLetter(raw.ClassType)
			if letter != 'M' && letter != 'X' {
				continue
			}
			events = append(events, models.MatchedEvent{
				Type:        "flare",
				Description: raw.ClassType + " Flare",
				Timestamp:   begin,
			})
		}

		var gsts []donkiGST
		if err := h.client.getJSON(ctx, h.client.donkiURL+"/GST?"+dateRange, &gsts); err != nil {
			return nil, fmt.Errorf("GST history %s: %w", dateRange, err)
		}
		for _, raw := range gsts {
			start, err := parseFeedTime(raw.StartTime)
			if err != nil {
				continue
			}
			maxKp := 0.0
			for _, entry := range raw.AllKpIndex {
				if entry.KpIndex > maxKp {
					maxKp = entry.KpIndex
				}
			}
			if maxKp < 5 {
				continue
			}
			events = append(events, models.MatchedEvent{
				Type:        "storm",
				Description: fmt.Sprintf("Geomagnetic Storm Kp %.1f", maxKp),
				Timestamp:   start,
			})
		}

		var cmes []donkiCME
		if err := h.client.getJSON(ctx, h.client.donkiURL+"/CME?"+dateRange, &cmes); err != nil {
			return nil, fmt.Errorf("CME history %s: %w", dateRange, err)
		}
		for _, raw := range cmes {
			cme, ok := convertCME(raw)
			if !ok || !cme.IsEarthDirected {
				continue
			}
			events = append(events, models.MatchedEvent{
				Type:        "cme",
				Description: "Earth-Directed CME " + cme.ID,
				Timestamp:   cme.StartTime,
			})
		}
	}

	return events, nil
}

// flareClassLetter extracts the upper-cased class letter from e.g. "m2.1".
func flareClassLetter(classType string) byte {
	if classType == "" {
		return 0
	}
	c := classType[0]
	if c >= 'a' && c <= 'z' {
		c -= 'a' - 'A'
	}
	return c
}
