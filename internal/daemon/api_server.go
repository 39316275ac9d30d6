package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"chanmirror/internal/config"
	"chanmirror/internal/filters"
	"chanmirror/internal/fourchan"
	"chanmirror/internal/history"
	"chanmirror/internal/logging"
	"chanmirror/internal/mirror"
)

type apiServer struct {
	bind    string
	logger  *slog.Logger
	service *mirror.Service

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, service *mirror.Service, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:    strings.TrimSpace(cfg.Paths.Bind),
		logger:  logging.NewComponentLogger(logger, "api-server"),
		service: service,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", srv.handleHealth)
	mux.HandleFunc("/api/boards", srv.handleBoards)
	mux.HandleFunc("/api/catalog/", srv.handleCatalog)
	mux.HandleFunc("/api/thread/", srv.handleThread)
	mux.HandleFunc("/api/image/", srv.handleImage)
	mux.HandleFunc("/api/download/", srv.handleDownload)
	mux.HandleFunc("/api/settings", srv.handleSettings)
	mux.HandleFunc("/api/history", srv.handleHistory)
	mux.HandleFunc("/api/history/clear", srv.handleHistoryClear)
	mux.HandleFunc("/api/filters/", srv.handleFilters)
	mux.HandleFunc("/api/cache/stats", srv.handleCacheStats)
	mux.HandleFunc("/api/cache/clear", srv.handleCacheClear)

	srv.server = &http.Server{
		Handler:           srv.withRequestID(mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// Addr returns the bound listener address, empty before start.
func (s *apiServer) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// withRequestID tags every request with a correlation id, honoring one the
// client supplied.
func (s *apiServer) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := logging.WithRequestID(r.Context(), id)
		s.logger.Debug("request",
			logging.String("method", r.Method),
			logging.String(logging.FieldPath, r.URL.Path),
			logging.String(logging.FieldCorrelationID, id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.service.CheckHealth(r.Context()))
}

func (s *apiServer) handleBoards(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	boards, err := s.service.Boards(r.Context())
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"boards": boards})
}

func (s *apiServer) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	board, ok := singleSegment(r.URL.Path, "/api/catalog/")
	if !ok {
		s.writeError(w, http.StatusNotFound, "board not found")
		return
	}
	threads, err := s.service.Catalog(r.Context(), board)
	if err != nil {
		s.writeFetchError(w, err)
		return
	}
	raw := make([]json.RawMessage, len(threads))
	for i, thread := range threads {
		raw[i] = thread.Raw
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"threads": raw})
}

func (s *apiServer) handleThread(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	board, idStr, ok := twoSegments(r.URL.Path, "/api/thread/")
	if !ok {
		s.writeError(w, http.StatusNotFound, "thread not found")
		return
	}
	threadID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid thread id")
		return
	}
	thread, err := s.service.Thread(r.Context(), board, threadID)
	if err != nil {
		s.writeFetchError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(thread.Raw)
}

func (s *apiServer) handleImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	board, filename, ok := twoSegments(r.URL.Path, "/api/image/")
	if !ok {
		s.writeError(w, http.StatusNotFound, "image not found")
		return
	}
	path, err := s.service.ImagePath(r.Context(), board, filename)
	if err != nil {
		switch {
		case errors.Is(err, mirror.ErrBadFilename):
			s.writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.writeError(w, http.StatusNotFound, "image not found")
		}
		return
	}
	http.ServeFile(w, r, path)
}

func (s *apiServer) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	board, filename, ok := twoSegments(r.URL.Path, "/api/download/")
	if !ok {
		s.writeError(w, http.StatusNotFound, "image not found")
		return
	}
	dest, err := s.service.DownloadImage(r.Context(), board, filename)
	if err != nil {
		switch {
		case errors.Is(err, mirror.ErrDownloadsDisabled):
			s.writeError(w, http.StatusForbidden, err.Error())
		case errors.Is(err, mirror.ErrBadFilename):
			s.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, fourchan.ErrNotFound):
			s.writeError(w, http.StatusNotFound, "image not found")
		default:
			s.writeError(w, http.StatusBadGateway, err.Error())
		}
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"saved": dest})
}

func (s *apiServer) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeJSON(w, http.StatusOK, s.service.Settings().Get())
	case http.MethodPost, http.MethodPut:
		values := make(map[string]any)
		if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid settings payload")
			return
		}
		if err := s.service.Settings().Save(values); err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, s.service.Settings().Get())
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeJSON(w, http.StatusOK, map[string]any{"history": s.service.History().List()})
	case http.MethodPost:
		var entries []history.Entry
		if err := json.NewDecoder(r.Body).Decode(&entries); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid history payload")
			return
		}
		if err := s.service.History().Replace(entries); err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"history": s.service.History().List()})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleHistoryClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := s.service.History().Clear(); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// handleFilters dispatches /api/filters/{board} and /api/filters/{board}/{id}.
func (s *apiServer) handleFilters(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/filters/")
	parts := strings.Split(rest, "/")

	switch {
	case len(parts) == 1 && parts[0] != "":
		s.handleBoardFilters(w, r, parts[0])
	case len(parts) == 2 && parts[0] != "" && parts[1] != "":
		id, err := strconv.Atoi(parts[1])
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid filter id")
			return
		}
		s.handleFilterItem(w, r, parts[0], id)
	default:
		s.writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *apiServer) handleBoardFilters(w http.ResponseWriter, r *http.Request, board string) {
	mgr := s.service.Filters()
	switch r.Method {
	case http.MethodGet:
		list := mgr.BoardFilters(board)
		if list == nil {
			list = []filters.Filter{}
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"filters": list})
	case http.MethodPost:
		var filter filters.Filter
		if err := json.NewDecoder(r.Body).Decode(&filter); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid filter payload")
			return
		}
		added, err := mgr.Add(board, filter)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeJSON(w, http.StatusCreated, added)
	case http.MethodDelete:
		if err := mgr.ClearBoard(board); err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleFilterItem(w http.ResponseWriter, r *http.Request, board string, id int) {
	mgr := s.service.Filters()
	switch r.Method {
	case http.MethodPut:
		var filter filters.Filter
		if err := json.NewDecoder(r.Body).Decode(&filter); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid filter payload")
			return
		}
		filter.ID = id
		if err := mgr.Update(board, filter); err != nil {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, filter)
	case http.MethodDelete:
		if err := mgr.Remove(board, id); err != nil {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	stats, err := s.service.Stats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *apiServer) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := s.service.ClearCaches(r.Context()); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// writeFetchError maps remote fetch failures onto HTTP statuses.
func (s *apiServer) writeFetchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, fourchan.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, mirror.ErrUnavailable):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.writeError(w, http.StatusBadGateway, err.Error())
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// singleSegment extracts the sole path segment after prefix.
func singleSegment(path, prefix string) (string, bool) {
	rest := strings.TrimPrefix(path, prefix)
	if rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}

// twoSegments extracts exactly two path segments after prefix.
func twoSegments(path, prefix string) (string, string, bool) {
	rest := strings.TrimPrefix(path, prefix)
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
