package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"expenses/internal/backend"
	"expenses/internal/services"
)

// Server is the JSON presentation layer over the ledger engine. It keeps
// one engine session per username, created lazily on first request, so
// each user's mutations stay serialized behind that session's lock.
type Server struct {
	http.Server

	store     backend.Store
	converter services.Converter
	notifier  services.Notifier

	sessionMu sync.Mutex
	sessions  map[string]*services.Tracker

	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, store backend.Store, converter services.Converter, notifier services.Notifier) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		store:     store,
		converter: converter,
		notifier:  notifier,
		sessions:  make(map[string]*services.Tracker),
		limiters:  make(map[string]*rate.Limiter),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /api/expenses", s.withMiddleware(s.handleListExpenses))
	mux.HandleFunc("POST /api/expenses", s.withMiddleware(s.handleAddExpense))
	mux.HandleFunc("DELETE /api/expenses", s.withMiddleware(s.handleDeleteExpenses))
	mux.HandleFunc("GET /api/expenses/search", s.withMiddleware(s.handleSearch))
	mux.HandleFunc("GET /api/expenses/range", s.withMiddleware(s.handleDateRange))
	mux.HandleFunc("GET /api/expenses/filter", s.withMiddleware(s.handleFilter))
	mux.HandleFunc("GET /api/summary", s.withMiddleware(s.handleSummary))
	mux.HandleFunc("GET /api/budgets", s.withMiddleware(s.handleListBudgets))
	mux.HandleFunc("PUT /api/budgets", s.withMiddleware(s.handleSetBudget))
	mux.HandleFunc("POST /api/recurring", s.withMiddleware(s.handleAddRecurring))
	mux.HandleFunc("GET /api/convert", s.withMiddleware(s.handleConvert))

	return s
}

// session returns the engine for a username, loading its state on first
// use.
func (s *Server) session(ctx context.Context, username string) (*services.Tracker, error) {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	if tracker, ok := s.sessions[username]; ok {
		return tracker, nil
	}

	tracker, err := services.NewTracker(ctx, s.store, username, s.converter, s.notifier)
	if err != nil {
		return nil, err
	}
	s.sessions[username] = tracker
	return tracker, nil
}

// limiter returns the per-client rate limiter, 60 requests per minute
// with a matching burst.
func (s *Server) limiter(clientIP string) *rate.Limiter {
	s.limiterMu.Lock()
	defer s.limiterMu.Unlock()

	if l, ok := s.limiters[clientIP]; ok {
		return l
	}
	l := rate.NewLimiter(rate.Every(time.Second), 60)
	s.limiters[clientIP] = l
	return l
}

// withMiddleware adds request tracing, rate limiting, request logging
// and security headers.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Extract client IP (considering proxies)
		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		if !s.limiter(clientIP).Allow() {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
