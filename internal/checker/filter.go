package checker

import (
	"time"

	"github.com/bonecondor/space-weather/internal/config"
	"github.com/bonecondor/space-weather/internal/logging"
	"github.com/bonecondor/space-weather/internal/models"
)

// Filter drops candidates whose type is inside its cooldown window, and
// non-critical candidates during quiet hours. A cooldown of zero never
// suppresses.
func Filter(cfg *config.Config, logger *logging.Logger, candidates []models.Alert, lastCooldowns map[string]time.Time, now time.Time) []models.Alert {
	quiet := inQuietHours(cfg.QuietHours, now.Local().Hour())

	var kept []models.Alert
	for _, alert := range candidates {
		if cooldown := cfg.Cooldowns[alert.Type]; cooldown > 0 {
			if last, ok := lastCooldowns[alert.Type]; ok && now.Sub(last) < cooldown {
				logger.Infof("Suppressed %s (%s): cooldown until %s", alert.Type, alert.Title, last.Add(cooldown).Format(time.RFC3339))
				continue
			}
		}
		if quiet && alert.Urgency != models.UrgencyCritical {
			logger.Infof("Suppressed %s (%s): quiet hours", alert.Type, alert.Title)
			continue
		}
		kept = append(kept, alert)
	}
	return kept
}

// inQuietHours tests the local hour against the configured window. Start is
// inclusive, End exclusive; Start > End means the window wraps midnight.
func inQuietHours(q config.QuietHours, hour int) bool {
	if !q.Enabled {
		return false
	}
	if q.Start == q.End {
		return false
	}
	if q.Start < q.End {
		return hour >= q.Start && hour < q.End
	}
	return hour >= q.Start || hour < q.End
}
