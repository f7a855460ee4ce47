package http

import (
	"context"
	"net/http"
	"time"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
)

// BudgetAPI is the service surface the handlers call.
type BudgetAPI interface {
	Ready(ctx context.Context) error

	Metrics(ctx context.Context, userID string, sorted bool) ([]core.BudgetMetrics, error)
	Summary(ctx context.Context, userID string) (core.BudgetSummary, error)
	Alerts(ctx context.Context, userID string) ([]core.BudgetAlert, error)
	Groups(ctx context.Context, userID string) ([]core.CategoryGroup, error)
	MonthOverview(ctx context.Context, userID string, year, month int) (core.MonthOverview, error)
	Transactions(ctx context.Context, userID string, year, month int) ([]core.Transaction, error)
	Budgets(ctx context.Context, userID string) ([]core.Budget, error)
	Categories(ctx context.Context, userID string) ([]core.Category, error)
	GoalProgress(ctx context.Context, userID string) ([]core.GoalProgress, error)
	Accounts(ctx context.Context, userID string) ([]core.Account, error)
	UpcomingBills(ctx context.Context, userID string, horizon time.Duration) ([]services.UpcomingBill, error)

	CreateBudget(ctx context.Context, userID string, b core.Budget) (core.Budget, error)
	UpdateBudget(ctx context.Context, userID string, b core.Budget) error
	DeleteBudget(ctx context.Context, userID, id string) error
	CreateCategory(ctx context.Context, userID string, c core.Category) (core.Category, error)
	RecordTransaction(ctx context.Context, userID string, tx core.Transaction) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, id string) error
	CreateGoal(ctx context.Context, userID string, g core.Goal) (core.Goal, error)
	CreateBill(ctx context.Context, userID string, b core.Bill) (core.Bill, error)
	CreateAccount(ctx context.Context, userID string, a core.Account) (core.Account, error)
}

var _ BudgetAPI = (*services.BudgetService)(nil)

// Options tunes the server. Zero values select the defaults.
type Options struct {
	Now               func() time.Time
	BillsHorizon      time.Duration
	MaxBodyBytes      int64
	WritesPerMinute   int
	ReadHeaderTimeout time.Duration
}

const (
	defaultBillsHorizon = 30 * 24 * time.Hour
	defaultMaxBodyBytes = 1 << 20
)

type Server struct {
	http.Server
	api          BudgetAPI
	logger       *applog.Logger
	now          func() time.Time
	billsHorizon time.Duration
	limiter      *ratelimit.Limiter
	tracer       *trace.Middleware
	detector     *security.Detector
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, api BudgetAPI, logger *applog.Logger, opts Options) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.BillsHorizon <= 0 {
		opts.BillsHorizon = defaultBillsHorizon
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	if opts.ReadHeaderTimeout <= 0 {
		opts.ReadHeaderTimeout = 10 * time.Second
	}

	s := &Server{
		api:          api,
		logger:       logger.WithComponent(applog.ComponentHTTP),
		now:          opts.Now,
		billsHorizon: opts.BillsHorizon,
		limiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.WritesPerMinute}),
		tracer:       trace.NewMiddleware(logger),
		detector:     security.NewDetector(),
	}

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = mux
	handler = s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited)(handler)
	handler = security.BodyLimit(opts.MaxBodyBytes)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.detector.Middleware(logger)(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/budgets", s.handleListBudgets)
	mux.HandleFunc("POST /api/budgets", s.handleCreateBudget)
	mux.HandleFunc("PUT /api/budgets/{id}", s.handleUpdateBudget)
	mux.HandleFunc("DELETE /api/budgets/{id}", s.handleDeleteBudget)
	mux.HandleFunc("GET /api/budgets/metrics", s.handleMetrics)
	mux.HandleFunc("GET /api/budgets/summary", s.handleSummary)
	mux.HandleFunc("GET /api/budgets/groups", s.handleGroups)
	mux.HandleFunc("GET /api/alerts", s.handleAlerts)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/categories", s.handleCreateCategory)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleRecordTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/overview", s.handleOverview)

	mux.HandleFunc("GET /api/goals", s.handleListGoals)
	mux.HandleFunc("POST /api/goals", s.handleCreateGoal)

	mux.HandleFunc("GET /api/bills/upcoming", s.handleUpcomingBills)
	mux.HandleFunc("POST /api/bills", s.handleCreateBill)

	mux.HandleFunc("GET /api/accounts", s.handleListAccounts)
	mux.HandleFunc("POST /api/accounts", s.handleCreateAccount)
}

// Shutdown stops background work and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}

// TraceMetrics exposes request counters collected by the trace middleware.
func (s *Server) TraceMetrics() trace.Metrics {
	return s.tracer.GetMetrics()
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.api.Ready(r.Context()); err != nil {
		s.logger.WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err)
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
