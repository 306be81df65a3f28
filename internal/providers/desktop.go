package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/bonecondor/space-weather/internal/config"
	"github.com/bonecondor/space-weather/internal/models"
)

// ntfyPriority maps alert urgency onto ntfy's 1-5 priority scale.
var ntfyPriority = map[models.Urgency]string{
	models.UrgencyCritical: "5",
	models.UrgencyHigh:     "4",
	models.UrgencyModerate: "3",
	models.UrgencyInfo:     "2",
}

// SendDesktop delivers an alert as a push notification via an ntfy topic.
func SendDesktop(ctx context.Context, alert models.Alert, cfg *config.Config) error {
	if cfg.Ntfy.Topic == "" {
		return fmt.Errorf("missing NTFY_TOPIC")
	}

	url := fmt.Sprintf("%s/%s", strings.TrimRight(cfg.Ntfy.URL, "/"), cfg.Ntfy.Topic)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(alert.Body))
	if err != nil {
		return fmt.Errorf("failed to create ntfy request: %w", err)
	}
	req.Header.Set("Title", alert.Title)
	req.Header.Set("Priority", ntfyPriority[alert.Urgency])
	req.Header.Set("Tags", "sunny,"+alert.Type)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post to ntfy topic %s: %w", cfg.Ntfy.Topic, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ntfy returned status %d for topic %s", resp.StatusCode, cfg.Ntfy.Topic)
	}
	return nil
}
