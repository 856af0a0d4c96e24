// Package http exposes the JSON API: authentication, ledger CRUD,
// recurring rules, and the report endpoints.
package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"finledger/internal/backend"
	"finledger/internal/cache"
	"finledger/internal/core"
	"finledger/internal/middleware/ratelimit"
	"finledger/internal/middleware/trace"
	"finledger/internal/services"
)

// ReportExporter pushes a monthly report to an external destination.
type ReportExporter interface {
	ExportMonthlyReport(ctx context.Context, username string, months []core.MonthTotal) error
}

// Options carries the optional collaborators of the server.
type Options struct {
	Alerts            *services.AlertPublisher
	Exporter          ReportExporter
	SessionTTL        time.Duration
	RequestsPerMinute int
}

type Server struct {
	http.Server

	store        backend.Store
	transactions *services.TransactionService
	aggregator   *services.Aggregator
	forecaster   *services.Forecaster
	materializer *services.Materializer
	exporter     ReportExporter

	sessionTTL time.Duration
	limiter    *ratelimit.Limiter
	tracer     *trace.Middleware

	// Report responses are cached per user; any write by that user
	// bumps their epoch, orphaning every cached entry at once.
	reportCache  *cache.LRUCache[[]byte]
	cacheManager *cache.Manager
	epochMu      sync.Mutex
	cacheEpoch   map[int64]int64

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, store backend.Store, opts Options) *Server {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 7 * 24 * time.Hour
	}

	converter := services.NewConverter(store)
	resolver := services.NewResolver(store)
	aggregator := services.NewAggregator(store)

	s := &Server{
		store:        store,
		transactions: services.NewTransactionService(store, resolver, converter, opts.Alerts),
		aggregator:   aggregator,
		forecaster:   services.NewForecaster(store, converter),
		materializer: services.NewMaterializer(store, converter),
		exporter:     opts.Exporter,
		sessionTTL:   opts.SessionTTL,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RequestsPerMinute,
		}),
		tracer:       trace.NewMiddleware(clientIP),
		reportCache:  cache.NewLRUCache[[]byte](200, 5*time.Minute),
		cacheManager: cache.NewManager(),
		cacheEpoch:   make(map[int64]int64),
	}

	s.cacheManager.Register(s.reportCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /api/register", s.handleRegister)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/logout", s.requireUser(s.handleLogout))
	mux.HandleFunc("PUT /api/account/password", s.requireUser(s.handleChangePassword))
	mux.HandleFunc("DELETE /api/account", s.requireUser(s.handleDeleteAccount))

	mux.HandleFunc("GET /api/transactions", s.requireUser(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.requireUser(s.handleCreateTransaction))
	mux.HandleFunc("GET /api/transactions/{id}", s.requireUser(s.handleGetTransaction))
	mux.HandleFunc("PUT /api/transactions/{id}", s.requireUser(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.requireUser(s.handleDeleteTransaction))

	mux.HandleFunc("GET /api/budgets", s.requireUser(s.handleListBudgets))
	mux.HandleFunc("POST /api/budgets", s.requireUser(s.handleCreateBudget))
	mux.HandleFunc("PUT /api/budgets/{id}", s.requireUser(s.handleUpdateBudget))
	mux.HandleFunc("DELETE /api/budgets/{id}", s.requireUser(s.handleDeleteBudget))

	mux.HandleFunc("GET /api/categories", s.requireUser(s.handleListCategories))
	mux.HandleFunc("POST /api/categories", s.requireUser(s.handleCreateCategory))
	mux.HandleFunc("DELETE /api/categories/{id}", s.requireUser(s.handleDeleteCategory))

	mux.HandleFunc("GET /api/category-rules", s.requireUser(s.handleListCategoryRules))
	mux.HandleFunc("POST /api/category-rules", s.requireUser(s.handleCreateCategoryRule))
	mux.HandleFunc("DELETE /api/category-rules/{id}", s.requireUser(s.handleDeleteCategoryRule))

	mux.HandleFunc("GET /api/rates", s.requireUser(s.handleListRates))
	mux.HandleFunc("PUT /api/rates", s.requireUser(s.handleUpsertRate))
	mux.HandleFunc("DELETE /api/rates/{code}", s.requireUser(s.handleDeleteRate))

	mux.HandleFunc("GET /api/settings", s.requireUser(s.handleGetSettings))
	mux.HandleFunc("PUT /api/settings", s.requireUser(s.handleSaveSettings))

	mux.HandleFunc("GET /api/savings-goal", s.requireUser(s.handleGetSavingsGoal))
	mux.HandleFunc("PUT /api/savings-goal", s.requireUser(s.handleSetSavingsGoal))
	mux.HandleFunc("POST /api/savings-goal/contribute", s.requireUser(s.handleContributeSavingsGoal))

	mux.HandleFunc("GET /api/recurring", s.requireUser(s.handleListRecurring))
	mux.HandleFunc("POST /api/recurring", s.requireUser(s.handleCreateRecurring))
	mux.HandleFunc("PUT /api/recurring/{id}", s.requireUser(s.handleUpdateRecurring))
	mux.HandleFunc("DELETE /api/recurring/{id}", s.requireUser(s.handleDeleteRecurring))
	mux.HandleFunc("POST /api/recurring/materialize", s.requireUser(s.handleMaterialize))

	mux.HandleFunc("GET /api/reports/dashboard", s.requireUser(s.cached(s.handleDashboard)))
	mux.HandleFunc("GET /api/reports/categories", s.requireUser(s.cached(s.handleCategoryReport)))
	mux.HandleFunc("GET /api/reports/monthly", s.requireUser(s.cached(s.handleMonthlyReport)))
	mux.HandleFunc("GET /api/reports/balance", s.requireUser(s.cached(s.handleBalanceReport)))
	mux.HandleFunc("GET /api/reports/budgets", s.requireUser(s.cached(s.handleBudgetReport)))
	mux.HandleFunc("GET /api/reports/forecast", s.requireUser(s.cached(s.handleForecastReport)))
	mux.HandleFunc("GET /api/reports/net", s.requireUser(s.cached(s.handleNetReport)))
	mux.HandleFunc("POST /api/reports/export", s.requireUser(s.handleExportReport))

	s.Server = http.Server{
		Addr:    addr,
		Handler: s.tracer.Middleware(s.withRateLimit(mux)),
	}

	return s
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// withRateLimit rejects clients over their per-minute budget.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow(clientIP(r)) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// cacheKey folds the user's current epoch into the key so bumping the
// epoch invalidates without scanning.
func (s *Server) cacheKey(userID int64, r *http.Request) string {
	s.epochMu.Lock()
	epoch := s.cacheEpoch[userID]
	s.epochMu.Unlock()
	return fmt.Sprintf("%d:%d:%s", userID, epoch, r.URL.RequestURI())
}

func (s *Server) invalidateReports(userID int64) {
	s.epochMu.Lock()
	s.cacheEpoch[userID]++
	s.epochMu.Unlock()
}

// cached serves report responses from the per-user LRU cache.
func (s *Server) cached(next userHandler) userHandler {
	return func(w http.ResponseWriter, r *http.Request, userID int64) {
		key := s.cacheKey(userID, r)
		if body, ok := s.reportCache.Get(key); ok {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Cache", "hit")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(body)
			return
		}

		rec := &recordingWriter{ResponseWriter: w, status: http.StatusOK}
		next(rec, r, userID)
		if rec.status == http.StatusOK {
			s.reportCache.Set(key, rec.body)
		}
	}
}

// recordingWriter captures the body so a successful response can be cached.
type recordingWriter struct {
	http.ResponseWriter
	status int
	body   []byte
}

func (rw *recordingWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recordingWriter) Write(b []byte) (int, error) {
	if rw.status == http.StatusOK {
		rw.body = append(rw.body, b...)
	}
	return rw.ResponseWriter.Write(b)
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
