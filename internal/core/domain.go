package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"

	Completed TransactionStatus = "completed"
	Pending   TransactionStatus = "pending"
	Failed    TransactionStatus = "failed"
	Cancelled TransactionStatus = "cancelled"

	PeriodWeekly    BudgetPeriod = "weekly"
	PeriodMonthly   BudgetPeriod = "monthly"
	PeriodQuarterly BudgetPeriod = "quarterly"
	PeriodYearly    BudgetPeriod = "yearly"

	Daily   RepetitionType = "daily"
	Weekly  RepetitionType = "weekly"
	Monthly RepetitionType = "monthly"
	Yearly  RepetitionType = "yearly"
)

// DefaultColor is used for budgets whose category cannot be resolved.
const DefaultColor ColorToken = "gray"

type (
	// TransactionType doubles as the category type ("income" | "expense").
	TransactionType   string
	TransactionStatus string
	BudgetPeriod      string
	RepetitionType    string

	// ColorToken names a display color ("blue", "emerald", "gray"...).
	ColorToken string

	Money struct {
		Cents int64
	}

	Category struct {
		ID       string          `json:"id"`
		Name     string          `json:"name"`
		Color    ColorToken      `json:"color"`
		Type     TransactionType `json:"type"`
		IsActive bool            `json:"is_active"`
	}

	Transaction struct {
		ID              string            `json:"id"`
		CategoryID      string            `json:"category_id,omitempty"`
		Amount          Money             `json:"amount"`
		Type            TransactionType   `json:"type"`
		Status          TransactionStatus `json:"status"`
		Description     string            `json:"description,omitempty"`
		TransactionDate time.Time         `json:"transaction_date"`
	}

	// Budget is a spending limit. An empty CategoryID makes it a total
	// budget whose Spent is maintained by the caller.
	Budget struct {
		ID         string       `json:"id"`
		CategoryID string       `json:"category_id,omitempty"`
		Name       string       `json:"name"`
		Amount     Money        `json:"amount"`
		Spent      Money        `json:"spent"`
		Period     BudgetPeriod `json:"period"`
		StartDate  time.Time    `json:"start_date"`
		EndDate    time.Time    `json:"end_date"`
		IsActive   bool         `json:"is_active"`
	}

	Goal struct {
		ID            string    `json:"id"`
		Name          string    `json:"name"`
		TargetAmount  Money     `json:"target_amount"`
		CurrentAmount Money     `json:"current_amount"`
		TargetDate    time.Time `json:"target_date"`
		IsActive      bool      `json:"is_active"`
	}

	// Bill is a recurring payment shown in the upcoming bills list.
	Bill struct {
		ID         string         `json:"id"`
		Name       string         `json:"name"`
		CategoryID string         `json:"category_id,omitempty"`
		Amount     Money          `json:"amount"`
		Every      RepetitionType `json:"every"`
		StartDate  time.Time      `json:"start_date"`
		EndDate    time.Time      `json:"end_date"`
		IsActive   bool           `json:"is_active"`
	}

	Account struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Type    string `json:"type"`
		Balance Money  `json:"balance"`
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyName        = errors.New("empty name")
	ErrNameTooLong      = errors.New("name too long (max 200 characters)")
	ErrInvalidType      = errors.New("invalid type")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrInvalidPeriod    = errors.New("invalid period")
	ErrInvalidFrequency = errors.New("invalid repetition type")
	ErrMissingDate      = errors.New("date cannot be zero")
	ErrInvalidDateRange = errors.New("end date must be after start date")
)

func (c Category) RecordID() string    { return c.ID }
func (t Transaction) RecordID() string { return t.ID }
func (b Budget) RecordID() string      { return b.ID }
func (g Goal) RecordID() string        { return g.ID }
func (b Bill) RecordID() string        { return b.ID }
func (a Account) RecordID() string     { return a.ID }

func (c Category) WithID(id string) Category       { c.ID = id; return c }
func (t Transaction) WithID(id string) Transaction { t.ID = id; return t }
func (b Budget) WithID(id string) Budget           { b.ID = id; return b }
func (g Goal) WithID(id string) Goal               { g.ID = id; return g }
func (b Bill) WithID(id string) Bill               { b.ID = id; return b }
func (a Account) WithID(id string) Account         { a.ID = id; return a }

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (s TransactionStatus) Valid() bool {
	switch s {
	case Completed, Pending, Failed, Cancelled:
		return true
	}
	return false
}

func (p BudgetPeriod) Valid() bool {
	switch p {
	case PeriodWeekly, PeriodMonthly, PeriodQuarterly, PeriodYearly:
		return true
	}
	return false
}

func (r RepetitionType) Valid() bool {
	switch r {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	if len(name) > 200 {
		return ErrNameTooLong
	}
	return nil
}

func validateRange(start, end time.Time) error {
	if start.IsZero() {
		return fmt.Errorf("start date: %w", ErrMissingDate)
	}
	if !end.IsZero() && end.Before(start) {
		return ErrInvalidDateRange
	}
	return nil
}

func (c Category) Validate() error {
	if err := validateName(c.Name); err != nil {
		return err
	}
	if !c.Type.Valid() {
		return fmt.Errorf("category type %q: %w", c.Type, ErrInvalidType)
	}
	return nil
}

func (t Transaction) Validate() error {
	if t.Amount.Cents == 0 {
		return ErrInvalidAmount
	}
	if !t.Type.Valid() {
		return fmt.Errorf("transaction type %q: %w", t.Type, ErrInvalidType)
	}
	if !t.Status.Valid() {
		return fmt.Errorf("transaction status %q: %w", t.Status, ErrInvalidStatus)
	}
	if t.TransactionDate.IsZero() {
		return fmt.Errorf("transaction date: %w", ErrMissingDate)
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

func (b Budget) Validate() error {
	if err := validateName(b.Name); err != nil {
		return err
	}
	if b.Amount.Cents < 0 || b.Spent.Cents < 0 {
		return ErrInvalidAmount
	}
	if !b.Period.Valid() {
		return fmt.Errorf("budget period %q: %w", b.Period, ErrInvalidPeriod)
	}
	return validateRange(b.StartDate, b.EndDate)
}

func (g Goal) Validate() error {
	if err := validateName(g.Name); err != nil {
		return err
	}
	if g.TargetAmount.Cents <= 0 || g.CurrentAmount.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (a Account) Validate() error {
	return validateName(a.Name)
}

func (b Bill) Validate() error {
	if err := validateName(b.Name); err != nil {
		return err
	}
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	if !b.Every.Valid() {
		return fmt.Errorf("bill frequency %q: %w", b.Every, ErrInvalidFrequency)
	}
	return validateRange(b.StartDate, b.EndDate)
}
