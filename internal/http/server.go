// Package http exposes the ledger, summary, session and client directory
// operations as a JSON API.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"megafin/internal/cache"
	"megafin/internal/crm"
	applog "megafin/internal/log"
	"megafin/internal/service"
	"megafin/internal/session"
)

// maxWritesPerMinute caps POST requests per client IP.
const maxWritesPerMinute = 60

type Server struct {
	http.Server

	ledgers   *service.LedgerService
	sessions  *service.SessionService
	directory *crm.Directory

	// Bearer-token session registry. Activity is always re-checked
	// against the guard's TTLs, the registry TTL only bounds memory.
	tokens *cache.TTLCache[session.Session]

	rateLimiter  *rateLimiter
	metrics      *securityMetrics
	slogger      *applog.StructuredLogger
	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, ledgers *service.LedgerService, sessions *service.SessionService, directory *crm.Directory) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		ledgers:     ledgers,
		sessions:    sessions,
		directory:   directory,
		tokens:      cache.New[session.Session](1000, 24*time.Hour),
		rateLimiter: newRateLimiter(maxWritesPerMinute, time.Minute),
		metrics:     &securityMetrics{},
		slogger: applog.NewStructuredLogger(
			applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)),
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("/session/branch", s.withSecurityHeaders(s.handleUnlockBranch))
	mux.HandleFunc("/session/admin", s.withSecurityHeaders(s.handleUnlockAdmin))

	mux.HandleFunc("/entries", s.withSecurityHeaders(s.requireSession(s.handleEntries)))
	mux.HandleFunc("/summary/month", s.withSecurityHeaders(s.requireSession(s.handleMonthSummary)))
	mux.HandleFunc("/summary/daily", s.withSecurityHeaders(s.requireSession(s.handleDailySummary)))
	mux.HandleFunc("/summary/daily.csv", s.withSecurityHeaders(s.requireSession(s.handleDailySummaryCSV)))

	mux.HandleFunc("/clients", s.withSecurityHeaders(s.requireSession(s.handleClients)))
	mux.HandleFunc("/clients/lookup", s.withSecurityHeaders(s.requireSession(s.handleClientLookup)))

	return s
}

// Shutdown stops the HTTP server and the rate limiter's cleanup goroutine.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting and request
// logging to a handler.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		s.slogger.LogHTTPStart(ctx, r, requestID, clientIP)

		if detectSuspiciousRequest(r, s.metrics) {
			slog.WarnContext(ctx, "Suspicious request pattern",
				"request_id", requestID,
				"client_ip", clientIP,
				"url", r.URL.Path)
		}

		// Writes are rate limited per client; reads are not.
		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP, s.metrics) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		s.slogger.LogHTTPEnd(ctx, r, requestID, rw.statusCode, duration.Milliseconds(), clientIP)
	}
}

// requireSession resolves the bearer token into a session and rejects
// requests whose branch unlock has expired.
func (s *Server) requireSession(next func(http.ResponseWriter, *http.Request, session.Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing session token")
			return
		}
		sess, ok := s.tokens.Get(token)
		if !ok || !s.sessions.Guard().BranchActive(sess, time.Now()) {
			writeError(w, http.StatusUnauthorized, "session expired, unlock the branch again")
			return
		}
		next(w, r, sess)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
