package core

import (
	"errors"
	"testing"
	"time"
)

var day = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

func TestBudgetValidate(t *testing.T) {
	good := Budget{Name: "Food", Amount: Money{Cents: 30000}, Period: PeriodMonthly, StartDate: day}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []struct {
		b    Budget
		want error
	}{
		{Budget{Name: " ", Amount: Money{Cents: 1}, Period: PeriodMonthly, StartDate: day}, ErrEmptyName},
		{Budget{Name: "a", Amount: Money{Cents: -1}, Period: PeriodMonthly, StartDate: day}, ErrInvalidAmount},
		{Budget{Name: "a", Amount: Money{Cents: 1}, Period: "daily", StartDate: day}, ErrInvalidPeriod},
		{Budget{Name: "a", Amount: Money{Cents: 1}, Period: PeriodYearly}, ErrMissingDate},
		{Budget{Name: "a", Amount: Money{Cents: 1}, Period: PeriodYearly, StartDate: day, EndDate: day.AddDate(0, 0, -1)}, ErrInvalidDateRange},
	}
	for i, tc := range bads {
		if err := tc.b.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{Amount: Money{Cents: -1200}, Type: Expense, Status: Completed, TransactionDate: day}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Transaction{
		{Amount: Money{}, Type: Expense, Status: Completed, TransactionDate: day},
		{Amount: Money{Cents: 1}, Type: "transfer", Status: Completed, TransactionDate: day},
		{Amount: Money{Cents: 1}, Type: Income, Status: "done", TransactionDate: day},
		{Amount: Money{Cents: 1}, Type: Income, Status: Pending},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestCategoryGoalBillValidate(t *testing.T) {
	if err := (Category{Name: "Rent", Type: Expense}).Validate(); err != nil {
		t.Fatalf("category: %v", err)
	}
	if err := (Category{Name: "Rent", Type: "other"}).Validate(); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("category type: got %v", err)
	}
	if err := (Goal{Name: "Trip", TargetAmount: Money{Cents: 100}}).Validate(); err != nil {
		t.Fatalf("goal: %v", err)
	}
	if err := (Goal{Name: "Trip"}).Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("goal amount: got %v", err)
	}
	bill := Bill{Name: "Internet", Amount: Money{Cents: 2999}, Every: Monthly, StartDate: day}
	if err := bill.Validate(); err != nil {
		t.Fatalf("bill: %v", err)
	}
	bill.Every = "hourly"
	if err := bill.Validate(); !errors.Is(err, ErrInvalidFrequency) {
		t.Fatalf("bill frequency: got %v", err)
	}
}

func TestWithIDKeepsFields(t *testing.T) {
	b := Budget{Name: "Food"}.WithID("b1")
	if b.RecordID() != "b1" || b.Name != "Food" {
		t.Fatalf("unexpected budget %+v", b)
	}
}
