// Package api serves a read-only view of the ledger and ingestion endpoints over HTTP.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/Veraticus/spice-ledger/internal/aggregate"
	"github.com/Veraticus/spice-ledger/internal/ingest"
	"github.com/Veraticus/spice-ledger/internal/ledger"
	"github.com/Veraticus/spice-ledger/internal/service"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 1 << 20

// Deps are the collaborators the server reads from and writes to.
type Deps struct {
	Ledger  *ledger.Ledger
	Ingest  *ingest.Service
	Engine  *aggregate.Engine
	Budgets service.BudgetStore
	Logger  *slog.Logger
	// WriteLimit bounds POST requests per second; zero disables the limit.
	WriteLimit rate.Limit
	WriteBurst int
}

// Server holds the HTTP handlers.
type Server struct {
	ledger  *ledger.Ledger
	ingest  *ingest.Service
	engine  *aggregate.Engine
	budgets service.BudgetStore
	logger  *slog.Logger
	limiter *rate.Limiter
	now     func() time.Time
}

// New creates a server.
func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limit, burst := deps.WriteLimit, deps.WriteBurst
	if limit == 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 10
	}
	return &Server{
		ledger:  deps.Ledger,
		ingest:  deps.Ingest,
		engine:  deps.Engine,
		budgets: deps.Budgets,
		logger:  logger.With("component", "api"),
		limiter: rate.NewLimiter(limit, burst),
		now:     time.Now,
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Get("/transactions", s.handleListTransactions)
		r.Get("/transactions/{id}", s.handleGetTransaction)
		r.Get("/summary", s.handleSummary)
		r.Get("/advice/{month}", s.handleAdvice)
		r.Get("/budgets", s.handleBudgets)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Use(middleware.AllowContentType("application/json"))
		r.Post("/sms", s.handlePostSMS)
		r.Post("/manual", s.handlePostManual)
		r.Post("/receipts", s.handlePostReceipt)
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		ww.Header().Set("X-Request-ID", requestID)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.logger.Debug("request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start))
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			s.logger.Warn("rate limit exceeded", "path", r.URL.Path)
			writeError(w, http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests))
			return
		}
		next.ServeHTTP(w, r)
	})
}
