package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/pders01/newspulse/internal/config"
	"github.com/pders01/newspulse/internal/debuglog"
	"github.com/pders01/newspulse/internal/feed"
	"github.com/pders01/newspulse/internal/news"
	"github.com/pders01/newspulse/internal/search"
	"github.com/pders01/newspulse/internal/storage"
	"github.com/pders01/newspulse/internal/validation"
)

const (
	maxRequestBody  = 1 << 20
	maxHistoryLimit = 500
	shutdownTimeout = 10 * time.Second
)

// Server is the local backend for the dashboard: it records search history
// and answers topic searches from stored feed articles.
type Server struct {
	cfg      *config.Config
	store    *storage.Store
	searcher search.Searcher
	manager  *feed.Manager
	router   chi.Router
	now      func() time.Time
}

// New wires the routes. searcher may be nil, in which case every search
// returns an empty array.
func New(cfg *config.Config, store *storage.Store, searcher search.Searcher, manager *feed.Manager) *Server {
	s := &Server{
		cfg:      cfg,
		store:    store,
		searcher: searcher,
		manager:  manager,
		now:      time.Now,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/get-news", s.handleGetNews)
		r.Post("/history", s.handleRecordHistory)
		r.Get("/history", s.handleListHistory)
		r.Delete("/history", s.handleClearHistory)
	})

	s.router = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
// Configured feeds are refreshed in the background while serving.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	s.startFeeds(gCtx, g)

	g.Go(func() error {
		debuglog.Infof("backend listening on %s", s.cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		debuglog.Infof("backend shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// startFeeds reconciles stored sources with the configured feeds, pruning
// everything else even when no feeds are configured, and starts the
// refresher when there is something to refresh.
func (s *Server) startFeeds(ctx context.Context, g *errgroup.Group) {
	if s.manager == nil {
		return
	}
	for _, err := range s.manager.SyncSources() {
		debuglog.Warnf("feed sync: %v", err)
	}
	if len(s.cfg.Server.Feeds) == 0 {
		return
	}
	g.Go(func() error {
		s.manager.Run(ctx, s.cfg.Server.RefreshInterval)
		return nil
	})
}

type topicRequest struct {
	Topic string `json:"topic"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok"}
	if last, err := s.store.GetMeta(feed.LastRefreshKey); err == nil {
		resp["last_refresh"] = last
	}
	if counter, ok := s.searcher.(search.DocCounter); ok {
		if n, err := counter.DocCount(); err == nil {
			resp["indexed"] = n
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetNews(w http.ResponseWriter, r *http.Request) {
	topic, ok := decodeTopic(w, r)
	if !ok {
		return
	}

	items := []news.Item{}
	if s.searcher != nil {
		found, err := s.searcher.Search(topic, s.cfg.Server.ResultLimit)
		if err != nil {
			debuglog.Errorf("search %q: %v", topic, err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "search failed"})
			return
		}
		if found != nil {
			items = found
		}
	}

	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleRecordHistory(w http.ResponseWriter, r *http.Request) {
	topic, ok := decodeTopic(w, r)
	if !ok {
		return
	}

	var entry *storage.HistoryEntry
	err := retryOperation(r.Context(), func() error {
		var addErr error
		entry, addErr = s.store.AddHistory(topic, s.now())
		return addErr
	})
	if err != nil {
		debuglog.Errorf("recording history %q: %v", topic, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "history not recorded"})
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	limit := clampInt(r.URL.Query().Get("limit"), s.cfg.Server.HistoryLimit, maxHistoryLimit)

	entries, err := s.store.RecentHistory(limit)
	if err != nil {
		debuglog.Errorf("listing history: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "history unavailable"})
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := retryOperation(r.Context(), s.store.ClearHistory); err != nil {
		debuglog.Errorf("clearing history: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "history not cleared"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeTopic reads {"topic": ...} and writes a 400 when it is missing.
func decodeTopic(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req topicRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return "", false
	}

	topic := validation.SanitizeTopic(req.Topic)
	if topic == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "topic is required"})
		return "", false
	}
	return topic, true
}

func clampInt(raw string, fallback, max int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	if value > max {
		return max
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		debuglog.Warnf("writing response: %v", err)
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		debuglog.Logger().LogAttrs(r.Context(), slog.LevelDebug, "request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("id", middleware.GetReqID(r.Context())),
		)
	})
}
