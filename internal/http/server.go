// Package http exposes a user's finance session as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/naramuhl/finance-friend-central/internal/log"
	"github.com/naramuhl/finance-friend-central/internal/middleware/ratelimit"
	"github.com/naramuhl/finance-friend-central/internal/middleware/security"
	"github.com/naramuhl/finance-friend-central/internal/middleware/trace"
	"github.com/naramuhl/finance-friend-central/internal/services"
)

// ReadinessCheck reports whether the backing services can take traffic.
type ReadinessCheck func(ctx context.Context) error

// Config holds the server options.
type Config struct {
	Addr               string
	RateLimitPerMinute int
	Ready              ReadinessCheck
	Logger             *log.Logger
}

type Server struct {
	http.Server
	sessions *services.SessionManager
	detector *security.Detector
	limiter  *ratelimit.Limiter
	ready    ReadinessCheck
	logger   *log.Logger
	errors   *log.StructuredLogger

	shutdownOnce sync.Once
}

func NewServer(cfg Config, sessions *services.SessionManager) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		Server: http.Server{
			Addr:              cfg.Addr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		sessions: sessions,
		detector: security.NewDetector(),
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
		ready:    cfg.Ready,
		logger:   logger,
		errors:   log.NewStructuredLogger(logger),
	}

	mux := http.NewServeMux()
	s.routes(mux)

	var h http.Handler = mux
	h = s.limiter.Middleware(s.rateLimitKey, isReadOnly, s.handleRateLimited)(h)
	h = s.flagSuspicious(h)
	h = trace.NewMiddleware(logger, s.detector.ExtractClientIP).Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	s.Handler = h

	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/session", s.handleStartSession)
	mux.HandleFunc("DELETE /api/session", s.handleEndSession)
	mux.HandleFunc("GET /api/summary", s.withSession(s.handleSummary))
	mux.HandleFunc("GET /api/notifications", s.withSession(s.handleNotifications))

	mux.HandleFunc("GET /api/transactions", s.withSession(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.withSession(s.handleCreateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.withSession(s.handleDeleteTransaction))
	mux.HandleFunc("POST /api/transactions/{id}/toggle", s.withSession(s.handleToggleTransaction))

	mux.HandleFunc("GET /api/accounts", s.withSession(s.handleListAccounts))
	mux.HandleFunc("POST /api/accounts", s.withSession(s.handleCreateAccount))
	mux.HandleFunc("PATCH /api/accounts/{id}", s.withSession(s.handleUpdateAccount))
	mux.HandleFunc("DELETE /api/accounts/{id}", s.withSession(s.handleDeactivateAccount))
	mux.HandleFunc("POST /api/accounts/{id}/adjust", s.withSession(s.handleAdjustBalance))

	mux.HandleFunc("GET /api/incomes", s.withSession(s.handleListIncomes))
	mux.HandleFunc("POST /api/incomes", s.withSession(s.handleCreateIncome))
	mux.HandleFunc("PATCH /api/incomes/{id}", s.withSession(s.handleUpdateIncome))
	mux.HandleFunc("DELETE /api/incomes/{id}", s.withSession(s.handleDeleteIncome))

	mux.HandleFunc("GET /api/goals", s.withSession(s.handleListGoals))
	mux.HandleFunc("POST /api/goals", s.withSession(s.handleCreateGoal))
	mux.HandleFunc("POST /api/goals/{id}/contribute", s.withSession(s.handleContributeToGoal))
	mux.HandleFunc("POST /api/goals/{id}/complete", s.withSession(s.handleCompleteGoal))
	mux.HandleFunc("DELETE /api/goals/{id}", s.withSession(s.handleDeleteGoal))

	mux.HandleFunc("GET /api/charts/expenses-by-category", s.withSession(s.handleExpensesByCategory))
	mux.HandleFunc("GET /api/charts/monthly", s.withSession(s.handleMonthlyComparison))
	mux.HandleFunc("GET /api/charts/patrimony", s.withSession(s.handlePatrimonyHistory))
}

// Shutdown stops background work and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func isReadOnly(r *http.Request) bool {
	return r.Method == http.MethodGet || r.Method == http.MethodHead
}

// rateLimitKey limits per user when one is identified and per client
// address otherwise.
func (s *Server) rateLimitKey(r *http.Request) string {
	if id, err := userIDFrom(r); err == nil {
		return "user:" + id
	}
	return "ip:" + s.detector.ExtractClientIP(r)
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	writeErrorMessage(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
}

func (s *Server) flagSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			log.FromContext(r.Context()).WithComponent(log.ComponentSecurity).WarnContext(r.Context(), "Suspicious request",
				log.FieldClientIP, s.detector.ExtractClientIP(r),
				log.FieldPath, r.URL.Path,
				log.FieldUserAgent, r.UserAgent())
		}
		next.ServeHTTP(w, r)
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
