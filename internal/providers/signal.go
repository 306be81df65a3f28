package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/bonecondor/space-weather/internal/config"
	"github.com/bonecondor/space-weather/internal/models"
)

type signalMessage struct {
	Message    string   `json:"message"`
	Number     string   `json:"number"`
	Recipients []string `json:"recipients"`
}

// SendSignal delivers an alert through a signal-cli REST API instance.
func SendSignal(ctx context.Context, alert models.Alert, cfg *config.Config) error {
	if cfg.Signal.URL == "" || cfg.Signal.Number == "" || len(cfg.Signal.Recipients) == 0 {
		return fmt.Errorf("missing Signal configuration: SIGNAL_API_URL, SIGNAL_NUMBER, or SIGNAL_RECIPIENTS is empty")
	}

	payload, err := json.Marshal(signalMessage{
		Message:    fmt.Sprintf("%s\n%s", alert.Title, alert.Body),
		Number:     cfg.Signal.Number,
		Recipients: cfg.Signal.Recipients,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal signal payload: %w", err)
	}

	url := strings.TrimRight(cfg.Signal.URL, "/") + "/v2/send"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create signal request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send signal message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("signal API returned status %d", resp.StatusCode)
	}
	return nil
}
