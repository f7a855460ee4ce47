package http

import (
	"net/http"

	applog "fintrack/internal/log"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	user, ok := withUser(w, r)
	if !ok {
		return
	}
	cats, err := s.api.Categories(r.Context(), user)
	if err != nil {
		s.writeServiceError(w, r, applog.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	user, ok := withUser(w, r)
	if !ok {
		return
	}
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeRequestError(w, err)
		return
	}
	saved, err := s.api.CreateCategory(r.Context(), user, req.toCategory())
	if err != nil {
		s.writeServiceError(w, r, applog.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	user, ok := withUser(w, r)
	if !ok {
		return
	}
	year, month, err := parseMonthParams(r)
	if err != nil {
		writeRequestError(w, err)
		return
	}
	txs, err := s.api.Transactions(r.Context(), user, year, month)
	if err != nil {
		s.writeServiceError(w, r, applog.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleRecordTransaction(w http.ResponseWriter, r *http.Request) {
	user, ok := withUser(w, r)
	if !ok {
		return
	}
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeRequestError(w, err)
		return
	}
	tx, err := req.toTransaction(s.now())
	if err != nil {
		writeRequestError(w, err)
		return
	}
	saved, err := s.api.RecordTransaction(r.Context(), user, tx)
	if err != nil {
		s.writeServiceError(w, r, applog.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	user, ok := withUser(w, r)
	if !ok {
		return
	}
	if err := s.api.DeleteTransaction(r.Context(), user, r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, applog.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	user, ok := withUser(w, r)
	if !ok {
		return
	}
	year, month, err := parseMonthParams(r)
	if err != nil {
		writeRequestError(w, err)
		return
	}
	ov, err := s.api.MonthOverview(r.Context(), user, year, month)
	if err != nil {
		s.writeServiceError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	user, ok := withUser(w, r)
	if !ok {
		return
	}
	goals, err := s.api.GoalProgress(r.Context(), user)
	if err != nil {
		s.writeServiceError(w, r, applog.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, goals)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	user, ok := withUser(w, r)
	if !ok {
		return
	}
	var req goalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeRequestError(w, err)
		return
	}
	g, err := req.toGoal()
	if err != nil {
		writeRequestError(w, err)
		return
	}
	saved, err := s.api.CreateGoal(r.Context(), user, g)
	if err != nil {
		s.writeServiceError(w, r, applog.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleUpcomingBills(w http.ResponseWriter, r *http.Request) {
	user, ok := withUser(w, r)
	if !ok {
		return
	}
	horizon, err := parseDays(r, s.billsHorizon)
	if err != nil {
		writeRequestError(w, err)
		return
	}
	bills, err := s.api.UpcomingBills(r.Context(), user, horizon)
	if err != nil {
		s.writeServiceError(w, r, applog.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, bills)
}

func (s *Server) handleCreateBill(w http.ResponseWriter, r *http.Request) {
	user, ok := withUser(w, r)
	if !ok {
		return
	}
	var req billRequest
	if err := decodeJSON(r, &req); err != nil {
		writeRequestError(w, err)
		return
	}
	b, err := req.toBill()
	if err != nil {
		writeRequestError(w, err)
		return
	}
	saved, err := s.api.CreateBill(r.Context(), user, b)
	if err != nil {
		s.writeServiceError(w, r, applog.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	user, ok := withUser(w, r)
	if !ok {
		return
	}
	accounts, err := s.api.Accounts(r.Context(), user)
	if err != nil {
		s.writeServiceError(w, r, applog.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	user, ok := withUser(w, r)
	if !ok {
		return
	}
	var req accountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeRequestError(w, err)
		return
	}
	a, err := req.toAccount()
	if err != nil {
		writeRequestError(w, err)
		return
	}
	saved, err := s.api.CreateAccount(r.Context(), user, a)
	if err != nil {
		s.writeServiceError(w, r, applog.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}
