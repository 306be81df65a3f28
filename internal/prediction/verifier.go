package prediction

import (
	"fmt"
	"time"

	"github.com/bonecondor/space-weather/internal/models"
)

// verifiableAlertTypes are the alert types that count as significant events
// when they fall inside a prediction window.
var verifiableAlertTypes = map[string]bool{
	models.AlertFlareM:      true,
	models.AlertFlareX:      true,
	models.AlertKpThreshold: true,
	models.AlertKpElevated:  true,
	models.AlertCMEEarth:    true,
	models.AlertBzThreshold: true,
	models.AlertWindSpeed:   true,
}

// Verify decides every pending prediction whose window has closed, matching
// it against events observed inside [timestamp, windowEnd]. It mutates ps and
// returns the predictions decided this run. The checker state and snapshot
// are read only.
func Verify(ps *models.PredictionState, st *models.CheckerState, snap *models.Snapshot, now time.Time) []models.Prediction {
	var decided []models.Prediction
	for i := range ps.Predictions {
		p := &ps.Predictions[i]
		if p.Status != models.PredictionPending || p.WindowEnd.After(now) {
			continue
		}

		matched := CollectEvents(st, snap, p.Timestamp, p.WindowEnd)
		ts := now
		p.VerifiedAt = &ts
		p.MatchedEvents = matched
		if len(matched) > 0 {
			p.Status = models.PredictionHit
		} else {
			p.Status = models.PredictionMiss
		}
		decided = append(decided, *p)
	}
	return decided
}

// CollectEvents gathers significant events inside [from, to] from the alert
// history and the current snapshot. The snapshot sources cover events whose
// alerts were suppressed by cooldown. Matches are deduplicated by
// (type, timestamp).
func CollectEvents(st *models.CheckerState, snap *models.Snapshot, from, to time.Time) []models.MatchedEvent {
	var events []models.MatchedEvent

	inWindow := func(ts time.Time) bool {
		return !ts.Before(from) && !ts.After(to)
	}

	for _, sent := range st.AlertsSent {
		if verifiableAlertTypes[sent.Type] && inWindow(sent.Timestamp) {
			events = append(events, models.MatchedEvent{
				Type:        sent.Type,
				Description: sent.Title,
				Timestamp:   sent.Timestamp,
			})
		}
	}

	if snap != nil {
		for _, flare := range snap.RecentFlares {
			letter := flare.ClassType
			if len(letter) == 0 {
				continue
			}
			c := letter[0]
			if c >= 'a' && c <= 'z' {
				c -= 'a' - 'A'
			}
			if (c == 'M' || c == 'X') && inWindow(flare.BeginTime) {
				events = append(events, models.MatchedEvent{
					Type:        "flare",
					Description: fmt.Sprintf("%s Flare", flare.ClassType),
					Timestamp:   flare.BeginTime,
				})
			}
		}
		for _, storm := range snap.RecentStorms {
			if storm.KpIndex >= 5 && inWindow(storm.StartTime) {
				events = append(events, models.MatchedEvent{
					Type:        "storm",
					Description: fmt.Sprintf("Geomagnetic Storm Kp %.1f", storm.KpIndex),
					Timestamp:   storm.StartTime,
				})
			}
		}
		for _, cme := range snap.EarthDirectedCMEs {
			if inWindow(cme.StartTime) {
				events = append(events, models.MatchedEvent{
					Type:        "cme",
					Description: fmt.Sprintf("Earth-Directed CME %s", cme.ID),
					Timestamp:   cme.StartTime,
				})
			}
		}
	}

	return dedupeEvents(events)
}

// dedupeEvents drops events sharing (type, timestamp), keeping first seen.
func dedupeEvents(events []models.MatchedEvent) []models.MatchedEvent {
	seen := map[string]bool{}
	var out []models.MatchedEvent
	for _, e := range events {
		key := e.Type + "|" + e.Timestamp.UTC().Format(time.RFC3339)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	return out
}

// ResultAlert formats the user-facing notification for a decided prediction.
func ResultAlert(p models.Prediction, now time.Time) models.Alert {
	var title, body string
	if p.Status == models.PredictionHit {
		title = "Prediction Verified: Hit"
		body = fmt.Sprintf("Your prediction from %s matched %d event(s) in its %dh window.",
			p.Timestamp.Format("Jan 2 15:04 MST"), len(p.MatchedEvents), p.WindowHours)
		if len(p.MatchedEvents) > 0 {
			body += " First match: " + p.MatchedEvents[0].Description + "."
		}
	} else {
		title = "Prediction Verified: Miss"
		body = fmt.Sprintf("Your prediction from %s saw no significant events in its %dh window.",
			p.Timestamp.Format("Jan 2 15:04 MST"), p.WindowHours)
	}
	return models.Alert{
		ID:            models.AlertPrediction + ":" + p.ID,
		Type:          models.AlertPrediction,
		Urgency:       models.UrgencyInfo,
		Title:         title,
		Body:          body,
		Timestamp:     now,
		SourceEventID: p.ID,
	}
}
