package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/events"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
)

// ErrValidation marks write requests rejected before reaching storage.
var ErrValidation = errors.New("validation failed")

// BudgetService orchestrates budget reads and writes for one user at a time.
type BudgetService struct {
	repo      *storage.Repository
	publisher events.Publisher
	metrics   *cache.LRUCache[[]core.BudgetMetrics]
	flight    singleflight.Group
	now       func() time.Time

	// generations counts invalidations per user. Loads started under an
	// older generation never populate the cache.
	genMu       sync.Mutex
	generations map[string]uint64

	logger    *applog.Logger
	audit     *applog.StructuredLogger
}

type Option func(*BudgetService)

// WithClock injects the time source used for month scoping.
func WithClock(now func() time.Time) Option {
	return func(s *BudgetService) { s.now = now }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *BudgetService) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithMetricsCache replaces the default metrics cache.
func WithMetricsCache(c *cache.LRUCache[[]core.BudgetMetrics]) Option {
	return func(s *BudgetService) { s.metrics = c }
}

func WithLogger(l *applog.Logger) Option {
	return func(s *BudgetService) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewBudgetService(repo *storage.Repository, opts ...Option) *BudgetService {
	s := &BudgetService{
		repo:      repo,
		publisher: events.Discard,
		metrics:   cache.NewLRUCache[[]core.BudgetMetrics](256, 5*time.Minute),
		now:       time.Now,
		logger:    applog.New(applog.DefaultConfig()),

		generations: map[string]uint64{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent(applog.ComponentBudget)
	s.audit = applog.NewStructuredLogger(s.logger)
	return s
}

// MetricsCache exposes the cache for registration with a cache.Manager.
func (s *BudgetService) MetricsCache() *cache.LRUCache[[]core.BudgetMetrics] {
	return s.metrics
}

// Ready reports whether the storage backend answers.
func (s *BudgetService) Ready(ctx context.Context) error {
	if _, err := s.repo.KV.Get(ctx, "_health", "ping"); err != nil {
		return fmt.Errorf("storage not ready: %w", err)
	}
	return nil
}

type snapshot struct {
	budgets      []core.Budget
	categories   []core.Category
	transactions []core.Transaction
}

func (s *BudgetService) load(ctx context.Context, userID string) (snapshot, error) {
	var snap snapshot
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap.budgets, err = s.repo.Budgets.All(ctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		snap.categories, err = s.repo.Categories.All(ctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		snap.transactions, err = s.repo.Transactions.All(ctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return snapshot{}, fmt.Errorf("load budget data: %w", err)
	}
	return snap, nil
}

func metricsKey(userID string, now time.Time) string {
	return userID + "|" + now.Format("2006-01")
}

// Invalidate drops the user's cached metrics. Loads already in flight for
// the user are not cached.
func (s *BudgetService) Invalidate(userID string) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	s.generations[userID]++
	s.metrics.DeletePrefix(userID + "|")
}

func (s *BudgetService) generation(userID string) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.generations[userID]
}

// storeMetrics caches m unless the user was invalidated after gen was read.
func (s *BudgetService) storeMetrics(userID string, gen uint64, key string, m []core.BudgetMetrics) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if s.generations[userID] == gen {
		s.metrics.Set(key, m)
	}
}

// Metrics derives the metrics of every active budget for the current month.
// Results are cached per user and month until the next write.
func (s *BudgetService) Metrics(ctx context.Context, userID string, sorted bool) ([]core.BudgetMetrics, error) {
	now := s.now()
	key := metricsKey(userID, now)

	cached, ok := s.metrics.Get(key)
	if !ok {
		gen := s.generation(userID)
		v, err, _ := s.flight.Do(key+"#"+strconv.FormatUint(gen, 10), func() (any, error) {
			snap, err := s.load(ctx, userID)
			if err != nil {
				return nil, err
			}
			m := core.DeriveBudgetMetrics(snap.budgets, snap.categories, snap.transactions, now)
			s.storeMetrics(userID, gen, key, m)
			return m, nil
		})
		if err != nil {
			return nil, err
		}
		cached = v.([]core.BudgetMetrics)
	}

	out := make([]core.BudgetMetrics, len(cached))
	copy(out, cached)
	if sorted {
		core.SortByUtilization(out)
	}
	return out, nil
}

func (s *BudgetService) Summary(ctx context.Context, userID string) (core.BudgetSummary, error) {
	m, err := s.Metrics(ctx, userID, false)
	if err != nil {
		return core.BudgetSummary{}, err
	}
	return core.SummarizeBudgets(m), nil
}

func (s *BudgetService) Alerts(ctx context.Context, userID string) ([]core.BudgetAlert, error) {
	m, err := s.Metrics(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	return core.BudgetAlerts(m), nil
}

// Groups returns metrics grouped by category.
func (s *BudgetService) Groups(ctx context.Context, userID string) ([]core.CategoryGroup, error) {
	m, err := s.Metrics(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	return core.GroupByCategory(m), nil
}

// MonthOverview totals a month; zero year or month selects the current one.
func (s *BudgetService) MonthOverview(ctx context.Context, userID string, year, month int) (core.MonthOverview, error) {
	year, month, loc := s.resolveMonth(year, month)
	snap, err := s.load(ctx, userID)
	if err != nil {
		return core.MonthOverview{}, err
	}
	return core.BuildMonthOverview(snap.transactions, snap.categories, year, month, loc), nil
}

// Transactions lists the user's transactions of a month, newest first.
func (s *BudgetService) Transactions(ctx context.Context, userID string, year, month int) ([]core.Transaction, error) {
	year, month, loc := s.resolveMonth(year, month)
	all, err := s.repo.Transactions.All(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]core.Transaction, 0, len(all))
	for _, tx := range all {
		if core.InMonth(tx.TransactionDate, year, month, loc) {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TransactionDate.After(out[j].TransactionDate)
	})
	return out, nil
}

func (s *BudgetService) Budgets(ctx context.Context, userID string) ([]core.Budget, error) {
	return s.repo.Budgets.All(ctx, userID)
}

func (s *BudgetService) Categories(ctx context.Context, userID string) ([]core.Category, error) {
	return s.repo.Categories.All(ctx, userID)
}

func (s *BudgetService) Accounts(ctx context.Context, userID string) ([]core.Account, error) {
	return s.repo.Accounts.All(ctx, userID)
}

// GoalProgress derives progress for every active goal.
func (s *BudgetService) GoalProgress(ctx context.Context, userID string) ([]core.GoalProgress, error) {
	goals, err := s.repo.Goals.All(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]core.GoalProgress, 0, len(goals))
	for _, g := range goals {
		if g.IsActive {
			out = append(out, core.GoalProgressOf(g, now))
		}
	}
	return out, nil
}

func (s *BudgetService) UpcomingBills(ctx context.Context, userID string, horizon time.Duration) ([]UpcomingBill, error) {
	bills, err := s.repo.Bills.All(ctx, userID)
	if err != nil {
		return nil, err
	}
	return UpcomingBills(bills, s.now(), horizon), nil
}

func (s *BudgetService) CreateBudget(ctx context.Context, userID string, b core.Budget) (core.Budget, error) {
	b.ID = ""
	if err := b.Validate(); err != nil {
		return core.Budget{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	saved, err := s.repo.Budgets.Append(ctx, userID, b)
	if err != nil {
		return core.Budget{}, fmt.Errorf("save budget: %w", err)
	}
	s.afterWrite(ctx, applog.OpCreate, events.BudgetCreated, userID, "budget", saved.ID)
	return saved, nil
}

func (s *BudgetService) UpdateBudget(ctx context.Context, userID string, b core.Budget) error {
	if err := b.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if err := s.repo.Budgets.Replace(ctx, userID, b); err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	s.afterWrite(ctx, applog.OpUpdate, events.BudgetUpdated, userID, "budget", b.ID)
	return nil
}

func (s *BudgetService) DeleteBudget(ctx context.Context, userID, id string) error {
	if err := s.repo.Budgets.Remove(ctx, userID, id); err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	s.afterWrite(ctx, applog.OpDelete, events.BudgetDeleted, userID, "budget", id)
	return nil
}

func (s *BudgetService) CreateCategory(ctx context.Context, userID string, c core.Category) (core.Category, error) {
	c.ID = ""
	if c.Color == "" {
		c.Color = core.DefaultColor
	}
	if err := c.Validate(); err != nil {
		return core.Category{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	saved, err := s.repo.Categories.Append(ctx, userID, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("save category: %w", err)
	}
	s.afterWrite(ctx, applog.OpCreate, events.CategoryCreated, userID, "category", saved.ID)
	return saved, nil
}

// RecordTransaction stores a transaction. An empty status means completed.
func (s *BudgetService) RecordTransaction(ctx context.Context, userID string, tx core.Transaction) (core.Transaction, error) {
	tx.ID = ""
	if tx.Status == "" {
		tx.Status = core.Completed
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	saved, err := s.repo.Transactions.Append(ctx, userID, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	s.afterWrite(ctx, applog.OpCreate, events.TransactionRecorded, userID, "transaction", saved.ID)
	return saved, nil
}

func (s *BudgetService) DeleteTransaction(ctx context.Context, userID, id string) error {
	if err := s.repo.Transactions.Remove(ctx, userID, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.afterWrite(ctx, applog.OpDelete, events.TransactionDeleted, userID, "transaction", id)
	return nil
}

func (s *BudgetService) CreateGoal(ctx context.Context, userID string, g core.Goal) (core.Goal, error) {
	g.ID = ""
	if err := g.Validate(); err != nil {
		return core.Goal{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	saved, err := s.repo.Goals.Append(ctx, userID, g)
	if err != nil {
		return core.Goal{}, fmt.Errorf("save goal: %w", err)
	}
	s.afterWrite(ctx, applog.OpCreate, events.GoalCreated, userID, "goal", saved.ID)
	return saved, nil
}

func (s *BudgetService) CreateBill(ctx context.Context, userID string, b core.Bill) (core.Bill, error) {
	b.ID = ""
	if err := b.Validate(); err != nil {
		return core.Bill{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	saved, err := s.repo.Bills.Append(ctx, userID, b)
	if err != nil {
		return core.Bill{}, fmt.Errorf("save bill: %w", err)
	}
	s.afterWrite(ctx, applog.OpCreate, events.BillCreated, userID, "bill", saved.ID)
	return saved, nil
}

func (s *BudgetService) CreateAccount(ctx context.Context, userID string, a core.Account) (core.Account, error) {
	a.ID = ""
	if err := a.Validate(); err != nil {
		return core.Account{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	saved, err := s.repo.Accounts.Append(ctx, userID, a)
	if err != nil {
		return core.Account{}, fmt.Errorf("save account: %w", err)
	}
	s.afterWrite(ctx, applog.OpCreate, events.AccountCreated, userID, "account", saved.ID)
	return saved, nil
}

// afterWrite drops the user's cached metrics and announces the change.
// The write already succeeded, so publish errors are only logged.
func (s *BudgetService) afterWrite(ctx context.Context, op string, t events.Type, userID, kind, id string) {
	s.Invalidate(userID)
	s.audit.LogRecordChanged(ctx, op, userID, kind, id)

	ev := events.New(t, userID, id, s.now())
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.audit.LogError(ctx, "Failed to publish event", err, applog.OpPublish,
			applog.NewFields().WithUser(userID).WithRecord(kind, id))
	}
}

// resolveMonth fills in the current month when year or month is zero. Months
// are read in the clock's location.
func (s *BudgetService) resolveMonth(year, month int) (int, int, *time.Location) {
	now := s.now()
	if year == 0 || month == 0 {
		return now.Year(), int(now.Month()), now.Location()
	}
	return year, month, now.Location()
}
