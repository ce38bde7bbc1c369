// Package notify mirrors every completed feature request to the operator chat.
// Delivery is best effort: a failed notification degrades, then is dropped,
// and never reaches the HTTP caller.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/apirelay/featbot/internal/metrics"
)

// inlineLimit is the Telegram message size boundary; anything at or above it
// goes out as a file attachment instead.
const inlineLimit = 4096

// Field is one ordered requestor classification entry (network address,
// user-agent attributes and the like), assembled by the ingress middleware and
// treated as opaque here.
type Field struct {
	Key   string
	Value string
}

// BotAPI is the slice of the Telegram client the sink needs.
type BotAPI interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendDocument(ctx context.Context, params *bot.SendDocumentParams) (*models.Message, error)
}

// Sink formats audit records and delivers them to the operator chat.
type Sink struct {
	api      BotAPI
	chatID   int64
	timeout  time.Duration
	linkName string
	linkURL  string
	log      *slog.Logger
}

// NewSink creates a notification sink for the given operator chat. Every
// delivery attempt runs under its own timeout, independent of the provider
// call that produced the payload. When linkName and linkURL are set, messages
// carry a single URL button.
func NewSink(api BotAPI, chatID int64, timeout time.Duration, linkName, linkURL string, log *slog.Logger) *Sink {
	if log == nil {
		log = slog.Default()
	}
	return &Sink{
		api:      api,
		chatID:   chatID,
		timeout:  timeout,
		linkName: linkName,
		linkURL:  linkURL,
		log:      log.With("component", "notification_sink"),
	}
}

// Notify delivers one audit record: the requestor classification plus the
// feature result payload. Small records go out as a single inline message;
// anything else as a .txt attachment. Failures never propagate.
func (s *Sink) Notify(ctx context.Context, requestor []Field, featureName string, payload map[string]string) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		// A map[string]string cannot fail to marshal; keep the audit anyway.
		result = fmt.Appendf(nil, "%v", payload)
	}

	block := formatRequestor(requestor)
	inline := "<pre>" + html.EscapeString(string(result)) + "</pre>\n\n" + block

	if utf8.RuneCountInString(inline) < inlineLimit {
		if err := s.sendMessage(ctx, inline); err != nil {
			metrics.Notifications.WithLabelValues("inline", "error").Inc()
			s.fallback(ctx, err, block)
			return
		}
		metrics.Notifications.WithLabelValues("inline", "ok").Inc()
		return
	}

	document := string(result) + "\n\n" + stripTags(block)
	filename := attachmentName(requestor, featureName)
	if err := s.sendDocument(ctx, filename, document); err != nil {
		metrics.Notifications.WithLabelValues("document", "error").Inc()
		s.fallback(ctx, err, block)
		return
	}
	metrics.Notifications.WithLabelValues("document", "ok").Inc()
}

// fallback makes the single degraded attempt describing the delivery failure;
// if that fails too, the notification is abandoned with a log line.
func (s *Sink) fallback(ctx context.Context, cause error, block string) {
	text := "<pre>" + html.EscapeString(cause.Error()) + "</pre>\n\n" + block
	if err := s.sendMessage(ctx, text); err != nil {
		metrics.Notifications.WithLabelValues("fallback", "error").Inc()
		s.log.Warn("audit notification abandoned", "cause", cause, "fallback_error", err)
		return
	}
	metrics.Notifications.WithLabelValues("fallback", "ok").Inc()
	s.log.Debug("audit notification delivered via fallback", "cause", cause)
}

func (s *Sink) sendMessage(ctx context.Context, text string) error {
	_, err := s.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:             s.chatID,
		Text:               text,
		ParseMode:          models.ParseModeHTML,
		LinkPreviewOptions: &models.LinkPreviewOptions{IsDisabled: bot.True()},
		ReplyMarkup:        s.replyMarkup(),
	})
	return err
}

func (s *Sink) sendDocument(ctx context.Context, filename, content string) error {
	_, err := s.api.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID: s.chatID,
		Document: &models.InputFileUpload{
			Filename: filename,
			Data:     bytes.NewReader([]byte(content)),
		},
		ReplyMarkup: s.replyMarkup(),
	})
	return err
}

func (s *Sink) replyMarkup() models.ReplyMarkup {
	if s.linkURL == "" {
		return nil
	}
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{{
			{Text: s.linkName, URL: s.linkURL},
		}},
	}
}

// formatRequestor renders the ordered classification fields as one
// HTML-escaped line per field.
func formatRequestor(fields []Field) string {
	var sb strings.Builder
	for _, f := range fields {
		sb.WriteString("<b>")
		sb.WriteString(html.EscapeString(strings.ToUpper(f.Key)))
		sb.WriteString(":</b> <code>")
		sb.WriteString(html.EscapeString(f.Value))
		sb.WriteString("</code>\n")
	}
	return sb.String()
}

var tagRe = regexp.MustCompile(`<[^>]*>`)

func stripTags(s string) string {
	return tagRe.ReplaceAllString(s, "")
}

// attachmentName derives the .txt filename from the digits of the requestor's
// network address, falling back to the feature name.
func attachmentName(requestor []Field, featureName string) string {
	for _, f := range requestor {
		if f.Key != "ip" {
			continue
		}
		digits := strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, f.Value)
		if digits != "" {
			return digits + ".txt"
		}
	}
	if featureName != "" {
		return featureName + ".txt"
	}
	return "audit.txt"
}
