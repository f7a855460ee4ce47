package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

// HeaderUserID identifies the acting user. The "user" query parameter is
// accepted as a fallback.
const HeaderUserID = "X-User-ID"

var (
	errMissingUser  = errors.New("missing user id")
	errInvalidUser  = errors.New("invalid user id")
	errInvalidQuery = errors.New("invalid query parameter")
	errInvalidBody  = errors.New("invalid request body")
)

var validUserID = regexp.MustCompile(`^[A-Za-z0-9_.@\-]{1,128}$`)

func userID(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.Header.Get(HeaderUserID))
	if id == "" {
		id = strings.TrimSpace(r.URL.Query().Get("user"))
	}
	if id == "" {
		return "", errMissingUser
	}
	if !validUserID.MatchString(id) {
		return "", errInvalidUser
	}
	return id, nil
}

// parseMonthParams reads optional year and month query parameters. Zero
// values mean "current month" to the service.
func parseMonthParams(r *http.Request) (year, month int, err error) {
	q := r.URL.Query()
	if v := strings.TrimSpace(q.Get("year")); v != "" {
		year, err = strconv.Atoi(v)
		if err != nil || year < 1970 || year > 9999 {
			return 0, 0, fmt.Errorf("%w: year %q", errInvalidQuery, v)
		}
	}
	if v := strings.TrimSpace(q.Get("month")); v != "" {
		month, err = strconv.Atoi(v)
		if err != nil || month < 1 || month > 12 {
			return 0, 0, fmt.Errorf("%w: month %q", errInvalidQuery, v)
		}
	}
	return year, month, nil
}

// parseDays reads the "days" lookahead, falling back to def.
func parseDays(r *http.Request, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(r.URL.Query().Get("days"))
	if v == "" {
		return def, nil
	}
	days, err := strconv.Atoi(v)
	if err != nil || days < 1 || days > 366 {
		return 0, fmt.Errorf("%w: days %q", errInvalidQuery, v)
	}
	return time.Duration(days) * 24 * time.Hour, nil
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %w", errInvalidBody, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data", errInvalidBody)
	}
	return nil
}

// invalid marks a field-level problem so it maps to 422 like service
// validation failures.
func invalid(field string, err error) error {
	return fmt.Errorf("%w: %s: %w", services.ErrValidation, field, err)
}

// parseMoney parses a decimal string such as "12.34" or "-380". Empty and
// zero values yield zero; negative values are rejected unless signed.
func parseMoney(field, raw string, signed bool) (core.Money, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return core.Money{}, nil
	}
	if d, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ".")); err == nil && d.IsZero() {
		return core.Money{}, nil
	}
	cents, err := core.ParseSignedDecimalToCents(raw)
	if err != nil {
		return core.Money{}, invalid(field, err)
	}
	if !signed && cents < 0 {
		return core.Money{}, invalid(field, core.ErrInvalidAmount)
	}
	return core.Money{Cents: cents}, nil
}

// parseDate accepts "2006-01-02" or RFC 3339. Empty yields the zero time.
func parseDate(field, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, invalid(field, fmt.Errorf("date %q: want YYYY-MM-DD or RFC 3339", raw))
	}
	return t, nil
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

type budgetRequest struct {
	CategoryID string `json:"category_id"`
	Name       string `json:"name"`
	Amount     string `json:"amount"`
	Spent      string `json:"spent"`
	Period     string `json:"period"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	IsActive   *bool  `json:"is_active"`
}

// toBudget starts undated budgets on the first day of now's month.
func (req budgetRequest) toBudget(now time.Time) (core.Budget, error) {
	b := core.Budget{
		CategoryID: strings.TrimSpace(req.CategoryID),
		Name:       strings.TrimSpace(req.Name),
		Period:     core.BudgetPeriod(strings.ToLower(strings.TrimSpace(req.Period))),
		IsActive:   boolOr(req.IsActive, true),
	}
	if b.Period == "" {
		b.Period = core.PeriodMonthly
	}
	var err error
	if b.Amount, err = parseMoney("amount", req.Amount, false); err != nil {
		return core.Budget{}, err
	}
	if b.Spent, err = parseMoney("spent", req.Spent, false); err != nil {
		return core.Budget{}, err
	}
	if b.StartDate, err = parseDate("start_date", req.StartDate); err != nil {
		return core.Budget{}, err
	}
	if b.EndDate, err = parseDate("end_date", req.EndDate); err != nil {
		return core.Budget{}, err
	}
	if b.StartDate.IsZero() {
		b.StartDate = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	}
	return b, nil
}

type categoryRequest struct {
	Name     string `json:"name"`
	Color    string `json:"color"`
	Type     string `json:"type"`
	IsActive *bool  `json:"is_active"`
}

func (req categoryRequest) toCategory() core.Category {
	return core.Category{
		Name:     strings.TrimSpace(req.Name),
		Color:    core.ColorToken(strings.ToLower(strings.TrimSpace(req.Color))),
		Type:     core.TransactionType(strings.ToLower(strings.TrimSpace(req.Type))),
		IsActive: boolOr(req.IsActive, true),
	}
}

type transactionRequest struct {
	CategoryID      string `json:"category_id"`
	Amount          string `json:"amount"`
	Type            string `json:"type"`
	Status          string `json:"status"`
	Description     string `json:"description"`
	TransactionDate string `json:"transaction_date"`
}

// toTransaction dates undated transactions at now.
func (req transactionRequest) toTransaction(now time.Time) (core.Transaction, error) {
	tx := core.Transaction{
		CategoryID:  strings.TrimSpace(req.CategoryID),
		Type:        core.TransactionType(strings.ToLower(strings.TrimSpace(req.Type))),
		Status:      core.TransactionStatus(strings.ToLower(strings.TrimSpace(req.Status))),
		Description: sanitizeInput(req.Description),
	}
	var err error
	if tx.Amount, err = parseMoney("amount", req.Amount, true); err != nil {
		return core.Transaction{}, err
	}
	if tx.Amount.Cents == 0 {
		return core.Transaction{}, invalid("amount", core.ErrInvalidAmount)
	}
	if tx.TransactionDate, err = parseDate("transaction_date", req.TransactionDate); err != nil {
		return core.Transaction{}, err
	}
	if tx.TransactionDate.IsZero() {
		tx.TransactionDate = now
	}
	return tx, nil
}

type goalRequest struct {
	Name          string `json:"name"`
	TargetAmount  string `json:"target_amount"`
	CurrentAmount string `json:"current_amount"`
	TargetDate    string `json:"target_date"`
	IsActive      *bool  `json:"is_active"`
}

func (req goalRequest) toGoal() (core.Goal, error) {
	g := core.Goal{Name: strings.TrimSpace(req.Name), IsActive: boolOr(req.IsActive, true)}
	var err error
	if g.TargetAmount, err = parseMoney("target_amount", req.TargetAmount, false); err != nil {
		return core.Goal{}, err
	}
	if g.CurrentAmount, err = parseMoney("current_amount", req.CurrentAmount, false); err != nil {
		return core.Goal{}, err
	}
	if g.TargetDate, err = parseDate("target_date", req.TargetDate); err != nil {
		return core.Goal{}, err
	}
	return g, nil
}

type billRequest struct {
	Name       string `json:"name"`
	CategoryID string `json:"category_id"`
	Amount     string `json:"amount"`
	Every      string `json:"every"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	IsActive   *bool  `json:"is_active"`
}

func (req billRequest) toBill() (core.Bill, error) {
	b := core.Bill{
		Name:       strings.TrimSpace(req.Name),
		CategoryID: strings.TrimSpace(req.CategoryID),
		Every:      core.RepetitionType(strings.ToLower(strings.TrimSpace(req.Every))),
		IsActive:   boolOr(req.IsActive, true),
	}
	var err error
	if b.Amount, err = parseMoney("amount", req.Amount, false); err != nil {
		return core.Bill{}, err
	}
	if b.StartDate, err = parseDate("start_date", req.StartDate); err != nil {
		return core.Bill{}, err
	}
	if b.EndDate, err = parseDate("end_date", req.EndDate); err != nil {
		return core.Bill{}, err
	}
	return b, nil
}

type accountRequest struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Balance string `json:"balance"`
}

func (req accountRequest) toAccount() (core.Account, error) {
	a := core.Account{Name: strings.TrimSpace(req.Name), Type: strings.ToLower(strings.TrimSpace(req.Type))}
	var err error
	if a.Balance, err = parseMoney("balance", req.Balance, true); err != nil {
		return core.Account{}, err
	}
	return a, nil
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
