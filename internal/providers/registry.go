package providers

import (
	"context"

	"github.com/bonecondor/space-weather/internal/config"
	"github.com/bonecondor/space-weather/internal/dispatch"
	"github.com/bonecondor/space-weather/internal/logging"
	"github.com/bonecondor/space-weather/internal/models"
)

// Build assembles the delivery-channel registry from config. Channels whose
// credentials are absent are left out; the dispatcher skips unrouted or
// unconfigured channels per alert. The returned closer releases any held
// connections.
func Build(cfg *config.Config, logger *logging.Logger) (map[string]dispatch.SendFunc, func()) {
	channels := map[string]dispatch.SendFunc{}
	closers := []func(){}

	if cfg.Ntfy.Topic != "" {
		channels["desktop"] = func(ctx context.Context, alert models.Alert) error {
			return SendDesktop(ctx, alert, cfg)
		}
	}
	if cfg.Signal.URL != "" {
		channels["signal"] = func(ctx context.Context, alert models.Alert) error {
			return SendSignal(ctx, alert, cfg)
		}
	}
	if cfg.Telegram.BotToken != "" {
		channels["telegram"] = func(ctx context.Context, alert models.Alert) error {
			return SendTelegram(ctx, alert, cfg, logger)
		}
	}
	if cfg.Email.SMTPServer != "" {
		channels["email"] = func(ctx context.Context, alert models.Alert) error {
			return SendEmail(alert, cfg)
		}
	}
	if len(cfg.Kafka.Brokers) > 0 {
		// Registered under "kafka" so callers can route it or, as the
		// checker does, mirror the full alert stream through it.
		publisher := NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		channels["kafka"] = publisher.Publish
		closers = append(closers, func() { _ = publisher.Close() })
	}

	return channels, func() {
		for _, fn := range closers {
			fn()
		}
	}
}
