package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"golang.org/x/time/rate"

	"github.com/bonecondor/space-weather/internal/config"
	"github.com/bonecondor/space-weather/internal/logging"
	"github.com/bonecondor/space-weather/internal/models"
	"github.com/bonecondor/space-weather/internal/utils"
)

// telegramLimiter is the global rate limiter for Telegram messages.
var telegramLimiter = rate.NewLimiter(rate.Limit(1), 3)

// SendTelegram delivers an alert via the go-telegram/bot library.
func SendTelegram(ctx context.Context, alert models.Alert, cfg *config.Config, logger *logging.Logger) error {
	if cfg.Telegram.BotToken == "" {
		return fmt.Errorf("missing TELEGRAM_BOT_TOKEN")
	}
	if cfg.Telegram.ChatID == 0 {
		return fmt.Errorf("missing TELEGRAM_CHAT_ID")
	}

	if err := telegramLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram rate limit exceeded: %w", err)
	}

	text := fmt.Sprintf("*%s*\n%s\n\n_%s · %s_",
		alert.Title, alert.Body, alert.Urgency, alert.Timestamp.Format("2006-01-02 15:04 MST"))

	return utils.Retry(logger, 3, time.Second, func() error {
		b, err := bot.New(cfg.Telegram.BotToken)
		if err != nil {
			return fmt.Errorf("failed to initialize Telegram bot: %w", err)
		}
		params := &bot.SendMessageParams{
			ChatID:    cfg.Telegram.ChatID,
			Text:      text,
			ParseMode: "Markdown",
		}
		if _, err := b.SendMessage(ctx, params); err != nil {
			return fmt.Errorf("failed to send Telegram message to chat_id %d: %w", cfg.Telegram.ChatID, err)
		}
		return nil
	})
}
