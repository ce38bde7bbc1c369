// Package webhook answers inbound bot messages pushed by the Telegram
// platform. A message passes a narrow admission filter, gets exactly one
// reply (or none), and the handler is done with it.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/apirelay/featbot/internal/logger"
	"github.com/apirelay/featbot/internal/metrics"
)

// ErrMalformed indicates the update body lacked the fields the handler
// unconditionally needs. This is the only webhook failure class surfaced as a
// server error; callers may treat it as retryable.
var ErrMalformed = errors.New("malformed update payload")

// BotAPI is the slice of the Telegram client the handler needs.
type BotAPI interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error)
}

// Handler replies to recognized commands in private chats.
type Handler struct {
	api       BotAPI
	maxAge    time.Duration
	blocked   []string
	startedAt time.Time
	now       func() time.Time
	log       *slog.Logger
}

// NewHandler creates a webhook command handler. Messages older than maxAge or
// whose text matches a blocked phrase are skipped without a reply.
func NewHandler(api BotAPI, maxAge time.Duration, blockedPhrases []string, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		api:       api,
		maxAge:    maxAge,
		blocked:   blockedPhrases,
		startedAt: time.Now(),
		now:       time.Now,
		log:       log.With("component", "webhook_handler"),
	}
}

// Handle processes one inbound update. It returns ErrMalformed when the
// update carries no usable message; every other outcome, replied or skipped,
// is nil so the webhook caller gets HTTP 200.
func (h *Handler) Handle(ctx context.Context, update *models.Update) error {
	if update == nil || update.Message == nil || update.Message.From == nil {
		return ErrMalformed
	}
	msg := update.Message

	if reason, skip := h.admit(msg); skip {
		metrics.WebhookUpdates.WithLabelValues("skipped").Inc()
		h.log.DebugContext(ctx, "message skipped", "reason", reason,
			"chat_id", msg.Chat.ID, "message_id", msg.ID)
		return nil
	}

	if strings.Contains(strings.ToLower(msg.Text), "ping") {
		metrics.WebhookUpdates.WithLabelValues("ping").Inc()
		h.handlePing(ctx, msg)
		return nil
	}

	metrics.WebhookUpdates.WithLabelValues("echo").Inc()
	h.handleEcho(ctx, msg)
	return nil
}

// admit applies the admission filter; the returned reason is for logging only.
func (h *Handler) admit(msg *models.Message) (string, bool) {
	if age := h.now().Sub(time.Unix(int64(msg.Date), 0)); age > h.maxAge {
		return "stale", true
	}
	if msg.Chat.Type != "private" {
		return "not_private", true
	}
	if msg.From.IsBot {
		return "bot_sender", true
	}
	text := strings.ToLower(msg.Text)
	for _, phrase := range h.blocked {
		if phrase != "" && strings.Contains(text, strings.ToLower(phrase)) {
			return "blocked_phrase", true
		}
	}
	return "", false
}

// handlePing replies with a placeholder, measures the round trip, then edits
// the placeholder in place with the latency and the process uptime.
func (h *Handler) handlePing(ctx context.Context, msg *models.Message) {
	start := h.now()
	sent, err := h.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:          msg.Chat.ID,
		Text:            "Pinging...",
		ReplyParameters: &models.ReplyParameters{MessageID: msg.ID},
	})
	if err != nil {
		h.log.WarnContext(ctx, "failed to send ping reply", "error", err, "chat_id", msg.Chat.ID)
		return
	}
	latency := h.now().Sub(start)

	text := fmt.Sprintf("<b>PONG:</b> <code>%dms</code>\n<b>UPTIME:</b> <code>%s</code>",
		latency.Milliseconds(), formatUptime(h.now().Sub(h.startedAt)))
	if _, err := h.api.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    msg.Chat.ID,
		MessageID: sent.ID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}); err != nil {
		h.log.WarnContext(ctx, "failed to edit ping reply", "error", err, "chat_id", msg.Chat.ID)
	}
}

// handleEcho replies silently with the raw message object as a formatted block.
func (h *Handler) handleEcho(ctx context.Context, msg *models.Message) {
	raw, err := json.MarshalIndent(msg, "", "  ")
	if err != nil {
		h.log.WarnContext(ctx, "failed to marshal message for echo", "error", err)
		return
	}
	if _, err := h.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:              msg.Chat.ID,
		Text:                "<pre>" + html.EscapeString(string(raw)) + "</pre>",
		ParseMode:           models.ParseModeHTML,
		DisableNotification: true,
		ReplyParameters:     &models.ReplyParameters{MessageID: msg.ID},
	}); err != nil {
		h.log.WarnContext(ctx, "failed to send echo reply", "error", err,
			"chat_id", msg.Chat.ID, "text_preview", logger.Truncate(msg.Text, 50))
	}
}

// formatUptime renders a duration as Dd:Hh:Mm:Ss.
func formatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dd:%dh:%dm:%ds", days, hours, minutes, seconds)
}
