package storage

import "fintrack/internal/core"

// Repository groups the typed collections of one KV backend.
type Repository struct {
	KV           KV
	Budgets      *Collection[core.Budget]
	Categories   *Collection[core.Category]
	Transactions *Collection[core.Transaction]
	Goals        *Collection[core.Goal]
	Bills        *Collection[core.Bill]
	Accounts     *Collection[core.Account]
}

func NewRepository(kv KV) *Repository {
	return &Repository{
		KV:           kv,
		Budgets:      NewCollection[core.Budget](kv, KeyBudgets),
		Categories:   NewCollection[core.Category](kv, KeyCategories),
		Transactions: NewCollection[core.Transaction](kv, KeyTransactions),
		Goals:        NewCollection[core.Goal](kv, KeyGoals),
		Bills:        NewCollection[core.Bill](kv, KeyBills),
		Accounts:     NewCollection[core.Account](kv, KeyAccounts),
	}
}

func (r *Repository) Close() error {
	if r.KV != nil {
		return r.KV.Close()
	}
	return nil
}
