package http

import (
	"errors"
	"log/slog"
	"net/http"

	"finledger/internal/core"
	"finledger/internal/storage"
)

type savingsGoalResponse struct {
	core.SavingsGoal
	Percent float64 `json:"percent"`
}

func (s *Server) handleGetSavingsGoal(w http.ResponseWriter, r *http.Request, userID int64) {
	goal, err := s.store.GetSavingsGoal(r.Context(), userID)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no savings goal set")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to load savings goal", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to load savings goal")
		return
	}
	writeJSON(w, http.StatusOK, savingsGoalResponse{SavingsGoal: goal, Percent: goal.Percent()})
}

func (s *Server) handleSetSavingsGoal(w http.ResponseWriter, r *http.Request, userID int64) {
	var req struct {
		Name         string     `json:"name"`
		TargetAmount float64    `json:"target_amount"`
		Deadline     *core.Date `json:"deadline"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	goal, err := s.store.GetSavingsGoal(r.Context(), userID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		slog.ErrorContext(r.Context(), "Failed to load savings goal", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to save savings goal")
		return
	}

	goal.UserID = userID
	goal.Name = sanitizeInput(req.Name)
	goal.TargetAmount = req.TargetAmount
	goal.Deadline = req.Deadline
	if err := goal.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.SaveSavingsGoal(r.Context(), &goal); err != nil {
		slog.ErrorContext(r.Context(), "Failed to save savings goal", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to save savings goal")
		return
	}
	writeJSON(w, http.StatusOK, savingsGoalResponse{SavingsGoal: goal, Percent: goal.Percent()})
}

func (s *Server) handleContributeSavingsGoal(w http.ResponseWriter, r *http.Request, userID int64) {
	var req struct {
		Amount amountField `json:"amount"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	amount, err := req.Amount.Parse()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	goal, err := s.store.GetSavingsGoal(r.Context(), userID)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no savings goal set")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to load savings goal", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to update savings goal")
		return
	}

	goal.CurrentAmount += amount
	if err := s.store.SaveSavingsGoal(r.Context(), &goal); err != nil {
		slog.ErrorContext(r.Context(), "Failed to update savings goal", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to update savings goal")
		return
	}

	slog.InfoContext(r.Context(), "Savings goal contribution", "user_id", userID, "amount", amount)
	writeJSON(w, http.StatusOK, savingsGoalResponse{SavingsGoal: goal, Percent: goal.Percent()})
}
