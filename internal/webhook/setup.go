package webhook

import (
	"context"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// SetupAPI is the slice of the Telegram client the startup sequence needs.
type SetupAPI interface {
	DeleteWebhook(ctx context.Context, params *bot.DeleteWebhookParams) (bool, error)
	GetUpdates(ctx context.Context, params *bot.GetUpdatesParams) ([]*models.Update, error)
	SetWebhook(ctx context.Context, params *bot.SetWebhookParams) (bool, error)
	GetMe(ctx context.Context) (*models.User, error)
}

// URL builds the webhook registration target for the given public base URL
// and bot token.
func URL(publicURL, token string) string {
	return strings.TrimRight(publicURL, "/") + "/webhook/" + token
}

// Setup runs the one-time registration sequence against the live bot API:
// drop any existing webhook, drain pending updates by acknowledging the
// latest offset, then register the new webhook URL. Each step is best effort;
// a partial bot-API outage must not prevent the HTTP server from starting.
func Setup(ctx context.Context, api SetupAPI, publicURL, token string, log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "webhook_setup")
	url := URL(publicURL, token)

	if _, err := api.DeleteWebhook(ctx, &bot.DeleteWebhookParams{}); err != nil {
		log.Warn("failed to delete existing webhook", "error", err)
	}
	if _, err := api.GetUpdates(ctx, &bot.GetUpdatesParams{Offset: -1}); err != nil {
		log.Warn("failed to drain pending updates", "error", err)
	}
	if _, err := api.SetWebhook(ctx, &bot.SetWebhookParams{URL: url}); err != nil {
		log.Warn("failed to register webhook", "error", err)
		return
	}
	log.Info("webhook registered", "url", url)
}

// Identify logs the bot identity; used in development mode where no webhook
// is registered.
func Identify(ctx context.Context, api SetupAPI, log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}
	me, err := api.GetMe(ctx)
	if err != nil {
		log.Warn("failed to fetch bot identity", "error", err)
		return
	}
	log.Info("bot identity", "bot_id", me.ID, "bot_username", me.Username)
}
