package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/sightline-analytics/sightline/internal/auth"
	"github.com/sightline-analytics/sightline/internal/store"
)

// Server runs the track API, the admin surface, and the optional management
// listener (health, metrics).
type Server struct {
	TrackHandler   http.Handler
	AdminAuth      *auth.Validator
	Store          store.Store
	MetricsHandler http.Handler
	Logger         zerolog.Logger
	ListenAddr     string
	ManagementAddr string
	NowFn          func() time.Time
}

// Run starts the servers and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	router := chi.NewRouter()
	router.Use(middleware.RealIP, middleware.Recoverer, requestLogger(s.Logger))
	router.Post("/api/track", s.TrackHandler.ServeHTTP)
	router.Get("/api/visitors", s.handleListVisitors)
	router.Post("/api/admin/overrides", s.handlePutOverride)

	srv := &http.Server{
		Addr:              s.ListenAddr,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	if s.ManagementAddr != "" {
		mgmt := chi.NewRouter()
		mgmt.Get("/health", s.serveLiveness)
		mgmt.Get("/live", s.serveLiveness)
		mgmt.Get("/ready", s.serveReadiness)
		if s.MetricsHandler != nil {
			mgmt.Handle("/metrics", s.MetricsHandler)
		}
		mgmtSrv := &http.Server{
			Addr:              s.ManagementAddr,
			Handler:           mgmt,
			ReadTimeout:       5 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      5 * time.Second,
			IdleTimeout:       30 * time.Second,
		}
		go func() {
			s.Logger.Info().Str("addr", s.ManagementAddr).Msg("management server listening")
			_ = mgmtSrv.ListenAndServe()
		}()
		defer func() {
			mgmtCtx, mgmtCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer mgmtCancel()
			_ = mgmtSrv.Shutdown(mgmtCtx)
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		s.Logger.Info().Str("addr", s.ListenAddr).Msg("track server listening")
		errCh <- srv.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.Logger.Warn().Err(err).Msg("track server shutdown")
		}
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleListVisitors(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	visitors, err := s.Store.ListVisitors(r.Context(), store.ListFilter{
		HideNoise: q.Get("hide_noise") == "true",
		Country:   q.Get("country"),
		Search:    q.Get("search"),
		Limit:     limit,
	})
	if err != nil {
		s.Logger.Error().Err(err).Msg("list visitors")
		respondErr(w, http.StatusInternalServerError, "internal_error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"visitors": visitors})
}

type overrideRequest struct {
	Addr    string `json:"ip"`
	Company string `json:"company"`
	Notes   string `json:"notes"`
}

func (s *Server) handlePutOverride(w http.ResponseWriter, r *http.Request) {
	if !s.AdminAuth.Validate(bearerToken(r)) {
		respondErr(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req overrideRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 16*1024)).Decode(&req); err != nil {
		respondErr(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.Addr == "" || req.Company == "" {
		respondErr(w, http.StatusBadRequest, "missing_ip_or_company")
		return
	}
	now := time.Now().UTC()
	if s.NowFn != nil {
		now = s.NowFn()
	}
	if err := s.Store.PutOverride(r.Context(), req.Addr, req.Company, req.Notes, now); err != nil {
		s.Logger.Error().Err(err).Str("addr", req.Addr).Msg("put override")
		respondErr(w, http.StatusBadRequest, "invalid_override")
		return
	}
	s.Logger.Info().Str("addr", req.Addr).Str("company", req.Company).Msg("override stored")
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) serveLiveness(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) serveReadiness(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("store not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func bearerToken(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return ""
	}
	return strings.TrimSpace(authz[len("bearer "):])
}

func respondJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func respondErr(w http.ResponseWriter, code int, errMsg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(`{"error":"` + errMsg + `"}`))
}

func requestLogger(log zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}
