// Package api serves the read-only status surface over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/assetmatic/telegram-observer/internal/biz/repo"
	"github.com/assetmatic/telegram-observer/internal/conf"
)

const apiVersion = "0.1.0"

// Server exposes /health and /status.
type Server struct {
	httpServer *http.Server
	store      repo.MessageStore
	monitors   repo.MonitorRepo
	cfg        *conf.Config
	log        *slog.Logger
}

// NewServer builds the router and the underlying http.Server.
func NewServer(cfg *conf.Config, store repo.MessageStore, monitors repo.MonitorRepo, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		store:    store,
		monitors: monitors,
		cfg:      cfg,
		log:      log.With("component", "api"),
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)

	s.httpServer = &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("status server listening", "addr", s.httpServer.Addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	}
}

// Handler exposes the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusResponse struct {
	BotName           string          `json:"bot_name"`
	APIVersion        string          `json:"api_version"`
	MonitoringGroups  []string        `json:"monitoring_groups_config"`
	MonitoredChats    []monitoredChat `json:"monitored_chats"`
	DatabaseStats     repo.StoreStats `json:"database_stats"`
	AIModel           string          `json:"ai_model,omitempty"`
	WebhookConfigured bool            `json:"webhook_configured"`
}

type monitoredChat struct {
	ChatID   int64  `json:"chat_id"`
	Title    string `json:"title,omitempty"`
	Username string `json:"username,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := s.store.Stats(ctx)
	if err != nil {
		s.log.Error("failed to read store stats", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to read database stats"})
		return
	}

	monitored, err := s.monitors.ListMonitoredChats(ctx)
	if err != nil {
		s.log.Error("failed to list monitored chats", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list monitored chats"})
		return
	}

	resp := statusResponse{
		BotName:           s.cfg.BotName,
		APIVersion:        apiVersion,
		MonitoringGroups:  s.cfg.InitialGroups,
		MonitoredChats:    make([]monitoredChat, 0, len(monitored)),
		DatabaseStats:     stats,
		WebhookConfigured: s.cfg.Webhook.URL != "",
	}
	if s.cfg.AI.Configured() {
		resp.AIModel = s.cfg.AI.Model
	}
	for _, m := range monitored {
		resp.MonitoredChats = append(resp.MonitoredChats, monitoredChat{
			ChatID:   m.ChatID,
			Title:    m.Title,
			Username: m.Username,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
