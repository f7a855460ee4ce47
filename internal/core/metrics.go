package core

import (
	"sort"
	"time"
)

// BudgetStatus is a derived utilization class. It is never persisted.
type BudgetStatus string

const (
	StatusOver    BudgetStatus = "over"
	StatusWarning BudgetStatus = "warning"
	StatusGood    BudgetStatus = "good"
)

// WarningThreshold is the raw utilization percentage above which a budget
// that is not over its limit is flagged as a warning.
const WarningThreshold = 80.0

// GeneralCategoryName labels budgets without a resolvable category.
const GeneralCategoryName = "General"

// BudgetMetrics is a budget enriched with its derived spend figures.
type BudgetMetrics struct {
	Budget        Budget       `json:"budget"`
	CategoryName  string       `json:"category_name"`
	CategoryColor ColorToken   `json:"category_color"`
	ActualSpent   Money        `json:"actual_spent"`
	Remaining     Money        `json:"remaining"`
	OverBy        Money        `json:"over_by"`
	PercentRaw    float64      `json:"percent_raw"`
	Percentage    float64      `json:"percentage"`
	IsOverBudget  bool         `json:"is_over_budget"`
	Status        BudgetStatus `json:"status"`
}

// SameMonth reports whether t falls in the calendar month and year of now,
// evaluated in now's location.
func SameMonth(t, now time.Time) bool {
	return InMonth(t, now.Year(), int(now.Month()), now.Location())
}

// InMonth reports whether t falls in the given year and month as seen from
// loc. A nil loc keeps t's own offset.
func InMonth(t time.Time, year, month int, loc *time.Location) bool {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Year() == year && int(t.Month()) == month
}

// DeriveBudgetMetrics computes spend metrics for every active budget.
//
// Budgets tied to a category recompute their spend from completed expense
// transactions of that category in the calendar month of now; the stored
// Spent field is only used by budgets without a category. Missing categories
// fall back to "General" with the default color. Inputs are not modified and
// the output keeps the input order of the active budgets.
func DeriveBudgetMetrics(budgets []Budget, categories []Category, transactions []Transaction, now time.Time) []BudgetMetrics {
	byID := make(map[string]Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}

	spentByCategory := make(map[string]int64)
	for _, tx := range transactions {
		if tx.CategoryID == "" || tx.Type != Expense || tx.Status != Completed {
			continue
		}
		if !SameMonth(tx.TransactionDate, now) {
			continue
		}
		spentByCategory[tx.CategoryID] += tx.Amount.Abs().Cents
	}

	out := make([]BudgetMetrics, 0, len(budgets))
	for _, b := range budgets {
		if !b.IsActive {
			continue
		}

		m := BudgetMetrics{
			Budget:        b,
			CategoryName:  GeneralCategoryName,
			CategoryColor: DefaultColor,
		}
		if c, ok := byID[b.CategoryID]; ok && b.CategoryID != "" {
			m.CategoryName = c.Name
			if c.Color != "" {
				m.CategoryColor = c.Color
			}
		}

		if b.CategoryID != "" {
			m.ActualSpent = Money{Cents: spentByCategory[b.CategoryID]}
		} else {
			m.ActualSpent = b.Spent
		}

		m.PercentRaw = Percent(m.ActualSpent, b.Amount)
		m.Percentage = min(m.PercentRaw, 100)
		m.IsOverBudget = m.ActualSpent.Cents > b.Amount.Cents
		m.Remaining = Money{Cents: max(0, b.Amount.Cents-m.ActualSpent.Cents)}
		m.OverBy = Money{Cents: max(0, m.ActualSpent.Cents-b.Amount.Cents)}
		m.Status = classify(m.IsOverBudget, m.PercentRaw)

		out = append(out, m)
	}
	return out
}

func classify(over bool, percent float64) BudgetStatus {
	switch {
	case over:
		return StatusOver
	case percent > WarningThreshold:
		return StatusWarning
	default:
		return StatusGood
	}
}

// SortByUtilization orders metrics by raw percentage, highest first.
// Ties keep their relative order.
func SortByUtilization(metrics []BudgetMetrics) {
	sort.SliceStable(metrics, func(i, j int) bool {
		return metrics[i].PercentRaw > metrics[j].PercentRaw
	})
}

// CategoryGroup collects the metrics of the budgets sharing a category.
type CategoryGroup struct {
	CategoryID    string          `json:"category_id"`
	CategoryName  string          `json:"category_name"`
	CategoryColor ColorToken      `json:"category_color"`
	Budgeted      Money           `json:"budgeted"`
	Spent         Money           `json:"spent"`
	Budgets       []BudgetMetrics `json:"budgets"`
}

// GroupByCategory groups metrics by category id in first-seen order.
// Total budgets share the group with an empty category id.
func GroupByCategory(metrics []BudgetMetrics) []CategoryGroup {
	index := map[string]int{}
	var groups []CategoryGroup
	for _, m := range metrics {
		id := m.Budget.CategoryID
		i, ok := index[id]
		if !ok {
			i = len(groups)
			index[id] = i
			groups = append(groups, CategoryGroup{
				CategoryID:    id,
				CategoryName:  m.CategoryName,
				CategoryColor: m.CategoryColor,
			})
		}
		g := &groups[i]
		g.Budgeted.Cents += m.Budget.Amount.Cents
		g.Spent.Cents += m.ActualSpent.Cents
		g.Budgets = append(g.Budgets, m)
	}
	return groups
}

// BudgetSummary aggregates metrics for the dashboard stat cards.
type BudgetSummary struct {
	TotalBudgeted  Money   `json:"total_budgeted"`
	TotalSpent     Money   `json:"total_spent"`
	TotalRemaining Money   `json:"total_remaining"`
	PercentUsed    float64 `json:"percent_used"`
	OverCount      int     `json:"over_count"`
	WarningCount   int     `json:"warning_count"`
	GoodCount      int     `json:"good_count"`
	BudgetCount    int     `json:"budget_count"`
}

func SummarizeBudgets(metrics []BudgetMetrics) BudgetSummary {
	var s BudgetSummary
	for _, m := range metrics {
		s.TotalBudgeted.Cents += m.Budget.Amount.Cents
		s.TotalSpent.Cents += m.ActualSpent.Cents
		s.TotalRemaining.Cents += m.Remaining.Cents
		switch m.Status {
		case StatusOver:
			s.OverCount++
		case StatusWarning:
			s.WarningCount++
		default:
			s.GoodCount++
		}
	}
	s.BudgetCount = len(metrics)
	s.PercentUsed = Percent(s.TotalSpent, s.TotalBudgeted)
	return s
}

// BudgetAlert is an entry of the alerts list.
type BudgetAlert struct {
	BudgetID   string       `json:"budget_id"`
	BudgetName string       `json:"budget_name"`
	Category   string       `json:"category"`
	Amount     Money        `json:"amount"`
	Spent      Money        `json:"spent"`
	Percent    float64      `json:"percent"`
	Status     BudgetStatus `json:"status"`
}

// BudgetAlerts lists over and warning budgets, over first, then by raw
// percentage descending.
func BudgetAlerts(metrics []BudgetMetrics) []BudgetAlert {
	alerts := make([]BudgetAlert, 0)
	for _, m := range metrics {
		if m.Status == StatusGood {
			continue
		}
		alerts = append(alerts, BudgetAlert{
			BudgetID:   m.Budget.ID,
			BudgetName: m.Budget.Name,
			Category:   m.CategoryName,
			Amount:     m.Budget.Amount,
			Spent:      m.ActualSpent,
			Percent:    m.PercentRaw,
			Status:     m.Status,
		})
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		if alerts[i].Status != alerts[j].Status {
			return alerts[i].Status == StatusOver
		}
		return alerts[i].Percent > alerts[j].Percent
	})
	return alerts
}
