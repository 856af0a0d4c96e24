package http

import (
	"errors"
	"log/slog"
	"net/http"

	"finledger/internal/core"
	"finledger/internal/storage"
)

type budgetRequest struct {
	PeriodStart core.Date   `json:"period_start"`
	PeriodEnd   core.Date   `json:"period_end"`
	Category    string      `json:"category"`
	Amount      amountField `json:"amount"`
}

func (req budgetRequest) toBudget(userID int64) (core.Budget, error) {
	amount, err := req.Amount.Parse()
	if err != nil {
		return core.Budget{}, err
	}
	return core.Budget{
		UserID:      userID,
		PeriodStart: req.PeriodStart,
		PeriodEnd:   req.PeriodEnd,
		Category:    sanitizeInput(req.Category),
		Amount:      amount,
	}, nil
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request, userID int64) {
	budgets, err := s.store.ListBudgets(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list budgets", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to list budgets")
		return
	}
	writeJSON(w, http.StatusOK, budgets)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request, userID int64) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	budget, err := req.toBudget(userID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := budget.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.CreateBudget(r.Context(), &budget); err != nil {
		slog.ErrorContext(r.Context(), "Failed to create budget", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to create budget")
		return
	}

	s.invalidateReports(userID)
	writeJSON(w, http.StatusCreated, budget)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request, userID int64) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	budget, err := req.toBudget(userID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	budget.ID = id
	if err := budget.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.UpdateBudget(r.Context(), budget); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "budget not found")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to update budget", "error", err, "user_id", userID, "budget_id", id)
		writeError(w, http.StatusInternalServerError, "failed to update budget")
		return
	}

	s.invalidateReports(userID)
	writeJSON(w, http.StatusOK, budget)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request, userID int64) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.DeleteBudget(r.Context(), userID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "budget not found")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to delete budget", "error", err, "user_id", userID, "budget_id", id)
		writeError(w, http.StatusInternalServerError, "failed to delete budget")
		return
	}

	s.invalidateReports(userID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
