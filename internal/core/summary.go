package core

import (
	"sort"
	"time"
)

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	CategoryID string     `json:"category_id"`
	Name       string     `json:"name"`
	Color      ColorToken `json:"color"`
	Amount     Money      `json:"amount"`
}

// MonthOverview is a compact summary for a specific year+month.
type MonthOverview struct {
	Year       int              `json:"year"`
	Month      int              `json:"month"` // 1-12
	Income     Money            `json:"income"`
	Expenses   Money            `json:"expenses"`
	Net        Money            `json:"net"`
	ByCategory []CategoryAmount `json:"by_category"`
}

// BuildMonthOverview totals the completed transactions of the given month,
// with transaction dates read in loc. Expense totals per category are sorted
// by amount, largest first.
func BuildMonthOverview(transactions []Transaction, categories []Category, year, month int, loc *time.Location) MonthOverview {
	ov := MonthOverview{Year: year, Month: month, ByCategory: []CategoryAmount{}}

	names := make(map[string]Category, len(categories))
	for _, c := range categories {
		names[c.ID] = c
	}

	byCat := map[string]int64{}
	for _, tx := range transactions {
		if tx.Status != Completed {
			continue
		}
		if !InMonth(tx.TransactionDate, year, month, loc) {
			continue
		}
		amount := tx.Amount.Abs().Cents
		switch tx.Type {
		case Income:
			ov.Income.Cents += amount
		case Expense:
			ov.Expenses.Cents += amount
			byCat[tx.CategoryID] += amount
		}
	}
	ov.Net = Money{Cents: ov.Income.Cents - ov.Expenses.Cents}

	for id, cents := range byCat {
		ca := CategoryAmount{CategoryID: id, Name: GeneralCategoryName, Color: DefaultColor, Amount: Money{Cents: cents}}
		if c, ok := names[id]; ok && id != "" {
			ca.Name = c.Name
			if c.Color != "" {
				ca.Color = c.Color
			}
		}
		ov.ByCategory = append(ov.ByCategory, ca)
	}
	sort.Slice(ov.ByCategory, func(i, j int) bool {
		a, b := ov.ByCategory[i], ov.ByCategory[j]
		if a.Amount.Cents != b.Amount.Cents {
			return a.Amount.Cents > b.Amount.Cents
		}
		return a.Name < b.Name
	})
	return ov
}

// GoalProgress is the derived view of a savings goal.
type GoalProgress struct {
	Goal       Goal    `json:"goal"`
	PercentRaw float64 `json:"percent_raw"`
	Percentage float64 `json:"percentage"`
	Remaining  Money   `json:"remaining"`
	DaysLeft   int     `json:"days_left"`
	Completed  bool    `json:"completed"`
}

// GoalProgressOf derives progress for g as of now. DaysLeft is zero when the
// goal has no target date or the date has passed.
func GoalProgressOf(g Goal, now time.Time) GoalProgress {
	p := GoalProgress{Goal: g}
	p.PercentRaw = Percent(g.CurrentAmount, g.TargetAmount)
	p.Percentage = min(p.PercentRaw, 100)
	p.Remaining = Money{Cents: max(0, g.TargetAmount.Cents-g.CurrentAmount.Cents)}
	p.Completed = g.TargetAmount.Cents > 0 && g.CurrentAmount.Cents >= g.TargetAmount.Cents
	if !g.TargetDate.IsZero() && g.TargetDate.After(now) {
		p.DaysLeft = int(g.TargetDate.Sub(now).Hours() / 24)
	}
	return p
}
