package http

import (
	"net/http"

	applog "fintrack/internal/log"
)

// withUser resolves the acting user or answers 400.
func withUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := userID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return id, true
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	user, ok := withUser(w, r)
	if !ok {
		return
	}
	sorted := r.URL.Query().Get("sort") == "utilization"
	metrics, err := s.api.Metrics(r.Context(), user, sorted)
	if err != nil {
		s.writeServiceError(w, r, applog.OpDerive, err)
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	user, ok := withUser(w, r)
	if !ok {
		return
	}
	summary, err := s.api.Summary(r.Context(), user)
	if err != nil {
		s.writeServiceError(w, r, applog.OpDerive, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	user, ok := withUser(w, r)
	if !ok {
		return
	}
	groups, err := s.api.Groups(r.Context(), user)
	if err != nil {
		s.writeServiceError(w, r, applog.OpDerive, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	user, ok := withUser(w, r)
	if !ok {
		return
	}
	alerts, err := s.api.Alerts(r.Context(), user)
	if err != nil {
		s.writeServiceError(w, r, applog.OpDerive, err)
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	user, ok := withUser(w, r)
	if !ok {
		return
	}
	budgets, err := s.api.Budgets(r.Context(), user)
	if err != nil {
		s.writeServiceError(w, r, applog.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, budgets)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	user, ok := withUser(w, r)
	if !ok {
		return
	}
	var req budgetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeRequestError(w, err)
		return
	}
	b, err := req.toBudget(s.now())
	if err != nil {
		writeRequestError(w, err)
		return
	}
	saved, err := s.api.CreateBudget(r.Context(), user, b)
	if err != nil {
		s.writeServiceError(w, r, applog.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	user, ok := withUser(w, r)
	if !ok {
		return
	}
	var req budgetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeRequestError(w, err)
		return
	}
	b, err := req.toBudget(s.now())
	if err != nil {
		writeRequestError(w, err)
		return
	}
	b.ID = r.PathValue("id")
	if err := s.api.UpdateBudget(r.Context(), user, b); err != nil {
		s.writeServiceError(w, r, applog.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	user, ok := withUser(w, r)
	if !ok {
		return
	}
	if err := s.api.DeleteBudget(r.Context(), user, r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, applog.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
