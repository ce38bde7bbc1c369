// Package server exposes the feature endpoint, the bot webhook endpoint, and
// the operational routes over a single net/http listener.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-telegram/bot/models"

	"github.com/apirelay/featbot/internal/config"
	"github.com/apirelay/featbot/internal/feature"
	"github.com/apirelay/featbot/internal/metrics"
	"github.com/apirelay/featbot/internal/notify"
	"github.com/apirelay/featbot/internal/queue"
	"github.com/apirelay/featbot/internal/webhook"
)

const shutdownTimeout = 10 * time.Second

// Notifier delivers one audit record; implemented by notify.Sink.
type Notifier interface {
	Notify(ctx context.Context, requestor []notify.Field, featureName string, payload map[string]string)
}

// UpdateHandler answers one inbound bot update; implemented by webhook.Handler.
type UpdateHandler interface {
	Handle(ctx context.Context, update *models.Update) error
}

// Server routes inbound HTTP traffic into the core pipeline.
type Server struct {
	cfg        *config.Config
	log        *slog.Logger
	registry   *feature.Registry
	dispatcher *queue.Dispatcher
	sink       Notifier
	updates    UpdateHandler

	http      *http.Server
	ipBlocked map[string]struct{}
	uaBlocked []string
	nonce     string
}

// NewServer wires the HTTP routes. The dispatcher gates every feature call;
// the sink mirrors every completed one; updates answers webhook deliveries.
func NewServer(
	cfg *config.Config,
	log *slog.Logger,
	registry *feature.Registry,
	dispatcher *queue.Dispatcher,
	sink Notifier,
	updates UpdateHandler,
) *Server {
	if log == nil {
		log = slog.Default()
	}

	s := &Server{
		cfg:        cfg,
		log:        log.With("component", "http_server"),
		registry:   registry,
		dispatcher: dispatcher,
		sink:       sink,
		updates:    updates,
		ipBlocked:  blockedIPSet(cfg.Server.IPBlocklist),
		uaBlocked:  normalizeBlocklist(cfg.Server.UABlocklist),
		nonce:      newNonce(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/{feature}", s.handleFeature)
	mux.HandleFunc("POST /webhook/{token}", s.handleWebhook)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("/", s.handleRoot)

	s.http = &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           s.secureHeaders(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the fully wired HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run serves until ctx is cancelled, then drains with a bounded shutdown.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info("http server stopped")
	return nil
}

// handleFeature runs the shared request pipeline: classify, block-lists,
// parse, dispatch through the queue, mirror to the operator chat, respond.
func (s *Server) handleFeature(w http.ResponseWriter, r *http.Request) {
	requestor := s.classify(r)

	if s.isBlockedUA(r.UserAgent()) {
		http.Error(w, "Bot not allowed.", http.StatusForbidden)
		return
	}
	if _, blocked := s.ipBlocked[clientIP(r)]; blocked {
		// Blocked addresses are handled as if no feature matched.
		s.handleRoot(w, r)
		return
	}

	featureName := r.PathValue("feature")
	req, ok := feature.ParseRequest(featureName, r.URL.Query())
	if !ok {
		metrics.FeatureRequests.WithLabelValues(featureName, "unrecognized").Inc()
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	var res feature.Result
	err := s.dispatcher.Do(r.Context(), func(ctx context.Context) {
		metrics.InflightProviders.Inc()
		defer metrics.InflightProviders.Dec()
		res = s.registry.Handle(ctx, req)
	})
	if err != nil {
		// Admission only fails when the client is already gone.
		s.log.Debug("feature call abandoned", "feature", featureName, "error", err)
		return
	}

	outcome := "ok"
	if res.Fields["error"] != "" {
		outcome = "error"
	}
	metrics.FeatureRequests.WithLabelValues(featureName, outcome).Inc()

	// The audit mirror is awaited before responding but bounded by its own
	// timeout; its failures never reach the caller.
	s.sink.Notify(r.Context(), requestor, featureName, res.Fields)

	corsHeaders(w)
	noCache(w)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res.Fields); err != nil {
		s.log.Warn("failed to write feature response", "feature", featureName, "error", err)
	}
}

// handleWebhook authenticates the delivery by its path token and hands the
// update to the command handler. A malformed body is the one retryable,
// 5xx-class failure.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.PathValue("token") != s.cfg.Telegram.Token {
		http.NotFound(w, r)
		return
	}

	var update models.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		s.log.Warn("failed to decode webhook body", "error", err)
		http.Error(w, "malformed update", http.StatusInternalServerError)
		return
	}

	if err := s.updates.Handle(r.Context(), &update); err != nil {
		if errors.Is(err, webhook.ErrMalformed) {
			http.Error(w, "malformed update", http.StatusInternalServerError)
			return
		}
		s.log.Warn("webhook handling failed", "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte("{}"))
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("featbot - a simple multi-featured API\n"))
}

func corsHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST")
	w.Header().Set("Access-Control-Allow-Headers", "content-type")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Credentials", "true")
}

func noCache(w http.ResponseWriter) {
	w.Header().Set("Expires", time.Now().AddDate(-1, 0, 0).UTC().Format(http.TimeFormat))
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Cache-Control", "public, no-cache")
}
