// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for bill scheduling. Each
// frequency (daily, weekly, monthly, yearly) has its own scheduler that
// computes the next due date of a recurring bill.
package services

import (
	"fmt"
	"sort"
	"time"

	"fintrack/internal/core"
)

// DueScheduler computes occurrences of a recurring date.
type DueScheduler interface {
	// NextDue returns the first occurrence on or after the day of after,
	// for a series starting on start. Both are compared at day granularity
	// in after's location.
	NextDue(start, after time.Time) time.Time
}

// DailyScheduler repeats every day from the start date.
type DailyScheduler struct{}

func (DailyScheduler) NextDue(start, after time.Time) time.Time {
	s, a := dayOf(start, after.Location()), dayOf(after, after.Location())
	if !s.Before(a) {
		return s
	}
	return a
}

// WeeklyScheduler repeats every 7 days from the start date.
type WeeklyScheduler struct{}

func (WeeklyScheduler) NextDue(start, after time.Time) time.Time {
	s, a := dayOf(start, after.Location()), dayOf(after, after.Location())
	if !s.Before(a) {
		return s
	}
	days := daysBetween(s, a)
	weeks := (days + 6) / 7
	return s.AddDate(0, 0, weeks*7)
}

// MonthlyScheduler repeats on the start day of every month, clamped to the
// last day of shorter months.
type MonthlyScheduler struct{}

func (MonthlyScheduler) NextDue(start, after time.Time) time.Time {
	loc := after.Location()
	s, a := dayOf(start, loc), dayOf(after, loc)
	if !s.Before(a) {
		return s
	}
	k := (a.Year()-s.Year())*12 + int(a.Month()-s.Month())
	due := clampedDate(s.Year(), s.Month()+time.Month(k), s.Day(), loc)
	if due.Before(a) {
		due = clampedDate(s.Year(), s.Month()+time.Month(k+1), s.Day(), loc)
	}
	return due
}

// YearlyScheduler repeats on the start month and day every year; February 29
// falls back to February 28 in common years.
type YearlyScheduler struct{}

func (YearlyScheduler) NextDue(start, after time.Time) time.Time {
	loc := after.Location()
	s, a := dayOf(start, loc), dayOf(after, loc)
	if !s.Before(a) {
		return s
	}
	due := clampedDate(a.Year(), s.Month(), s.Day(), loc)
	if due.Before(a) {
		due = clampedDate(a.Year()+1, s.Month(), s.Day(), loc)
	}
	return due
}

// schedulers maps repetition types to their corresponding schedulers.
var schedulers = map[core.RepetitionType]DueScheduler{
	core.Daily:   DailyScheduler{},
	core.Weekly:  WeeklyScheduler{},
	core.Monthly: MonthlyScheduler{},
	core.Yearly:  YearlyScheduler{},
}

// GetScheduler returns the scheduler for a repetition type.
func GetScheduler(frequency core.RepetitionType) (DueScheduler, error) {
	s, ok := schedulers[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown repetition type: %s", frequency)
	}
	return s, nil
}

// UpcomingBill is a bill occurrence inside the lookahead window.
type UpcomingBill struct {
	Bill      core.Bill `json:"bill"`
	DueDate   time.Time `json:"due_date"`
	DaysUntil int       `json:"days_until"`
}

// UpcomingBills lists the next occurrence of every active bill due between
// today and now+horizon, sorted by due date then name. Bills whose series
// has ended are skipped.
func UpcomingBills(bills []core.Bill, now time.Time, horizon time.Duration) []UpcomingBill {
	today := dayOf(now, now.Location())
	limit := dayOf(now.Add(horizon), now.Location())

	out := make([]UpcomingBill, 0)
	for _, b := range bills {
		if !b.IsActive {
			continue
		}
		sched, err := GetScheduler(b.Every)
		if err != nil {
			continue
		}
		due := sched.NextDue(b.StartDate, today)
		if due.After(limit) {
			continue
		}
		if !b.EndDate.IsZero() && due.After(dayOf(b.EndDate, now.Location())) {
			continue
		}
		out = append(out, UpcomingBill{Bill: b, DueDate: due, DaysUntil: daysBetween(today, due)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].Bill.Name < out[j].Bill.Name
	})
	return out
}

func dayOf(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func clampedDate(year int, month time.Month, day int, loc *time.Location) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	last := first.AddDate(0, 1, -1).Day()
	return first.AddDate(0, 0, min(day, last)-1)
}

// daysBetween counts calendar days from a to b, both at midnight.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
