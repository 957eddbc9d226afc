// Package server exposes verification and knowledge-base administration over HTTP.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/ppiankov/tinthat/internal/metrics"
	"github.com/ppiankov/tinthat/internal/model"
	"github.com/ppiankov/tinthat/internal/nli"
	"github.com/ppiankov/tinthat/internal/pipeline"
	"github.com/ppiankov/tinthat/internal/store"
)

const unavailableMessage = "verification temporarily unavailable"

// Verifier checks one article
type Verifier interface {
	VerifyArticle(ctx context.Context, article model.Article) (*model.VerificationResult, error)
}

// Deps are the components the HTTP handlers call into
type Deps struct {
	Verifier      Verifier
	Store         store.Store
	Verifiers     *nli.Holder
	BuildVerifier func() (nli.Verifier, error) // Used by /admin/reload
	Metrics       *metrics.Metrics
	Logger        *zap.Logger
}

// Server routes HTTP requests to the verification pipeline
type Server struct {
	cfg    model.ServerConfig
	deps   Deps
	logger *zap.Logger
	router *mux.Router
}

// New creates a server and registers its routes
func New(cfg model.ServerConfig, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{cfg: cfg, deps: deps, logger: logger, router: mux.NewRouter()}

	s.router.Use(s.requestIDMiddleware)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/verify", s.handleVerify).Methods(http.MethodPost)

	admin := s.router.PathPrefix("/admin").Subrouter()
	admin.Use(s.adminMiddleware)
	admin.HandleFunc("/claims/{id:[0-9]+}/approve", s.handleApprove).Methods(http.MethodPost)
	admin.HandleFunc("/reload", s.handleReload).Methods(http.MethodPost)

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	if deps.Metrics != nil {
		s.router.Handle("/metrics", deps.Metrics.Handler()).Methods(http.MethodGet)
	}
	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is canceled, then drains in-flight requests
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Address,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("address", s.cfg.Address))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	s.logger.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	if s.cfg.MaxRequestBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxRequestBytes)
	}

	var article model.Article
	if err := json.NewDecoder(r.Body).Decode(&article); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	result, err := s.deps.Verifier.VerifyArticle(r.Context(), article)
	if err != nil {
		s.logger.Error("verify request failed",
			zap.String("request_id", pipeline.RequestID(r.Context())),
			zap.Error(err))
		respondWithError(w, http.StatusServiceUnavailable, unavailableMessage)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid claim id")
		return
	}

	err = s.deps.Store.SetTrustLabel(r.Context(), id, model.TrustReal)
	switch {
	case errors.Is(err, model.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "claim not found")
	case err != nil:
		s.logger.Error("approve claim failed", zap.Int64("claim_id", id), zap.Error(err))
		respondWithError(w, http.StatusServiceUnavailable, "knowledge store unavailable")
	default:
		s.logger.Info("claim approved", zap.Int64("claim_id", id))
		respondWithJSON(w, http.StatusOK, map[string]any{
			"id":          id,
			"trust_label": model.TrustReal,
			"verified":    true,
		})
	}
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if s.deps.Verifiers == nil || s.deps.BuildVerifier == nil {
		respondWithError(w, http.StatusNotImplemented, "reload not configured")
		return
	}

	err := s.deps.Verifiers.Reload(r.Context(), s.deps.BuildVerifier)
	generation := s.deps.Verifiers.Generation()
	s.deps.Metrics.ObserveReload(err, generation)
	if err != nil {
		s.logger.Error("nli reload failed", zap.Int64("generation", generation), zap.Error(err))
		respondWithError(w, http.StatusServiceUnavailable, "reload failed; previous model still active")
		return
	}

	s.logger.Info("nli reloaded",
		zap.Int64("generation", generation),
		zap.String("verifier", s.deps.Verifiers.Current().Name()))
	respondWithJSON(w, http.StatusOK, map[string]any{
		"generation": generation,
		"verifier":   s.deps.Verifiers.Current().Name(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok"}
	if s.deps.Verifiers != nil {
		resp["nli_generation"] = s.deps.Verifiers.Generation()
	}
	respondWithJSON(w, http.StatusOK, resp)
}

// requestIDMiddleware tags each request with X-Request-ID and logs it on completion
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(pipeline.WithRequestID(r.Context(), id)))

		s.logger.Debug("http request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)))
	})
}

// adminMiddleware requires "Authorization: Bearer <admin_token>"
func (s *Server) adminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AdminToken == "" {
			respondWithError(w, http.StatusForbidden, "admin endpoints disabled")
			return
		}
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AdminToken)) != 1 {
			respondWithError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"failed to marshal response"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}
