package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"finledger/internal/core"
	"finledger/internal/storage"
)

type recurringRequest struct {
	Name        string         `json:"name"`
	Kind        core.Kind      `json:"kind"`
	Amount      amountField    `json:"amount"`
	Currency    string         `json:"currency"`
	Category    string         `json:"category"`
	Description string         `json:"description"`
	Frequency   core.Frequency `json:"frequency"`
	NextRun     core.Date      `json:"next_run"`
}

func (req recurringRequest) toRule(userID int64) (core.RecurringRule, error) {
	amount, err := req.Amount.Parse()
	if err != nil {
		return core.RecurringRule{}, err
	}
	return core.RecurringRule{
		UserID:      userID,
		Name:        sanitizeInput(req.Name),
		Kind:        req.Kind,
		Amount:      amount,
		Currency:    strings.ToUpper(sanitizeInput(req.Currency)),
		Category:    sanitizeInput(req.Category),
		Description: sanitizeInput(req.Description),
		Frequency:   req.Frequency,
		NextRun:     req.NextRun,
	}, nil
}

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request, userID int64) {
	rules, err := s.store.ListRecurringRules(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list recurring rules", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to list recurring rules")
		return
	}
	writeJSON(w, http.StatusOK, rules)
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request, userID int64) {
	var req recurringRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rule, err := req.toRule(userID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := rule.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.CreateRecurringRule(r.Context(), &rule); err != nil {
		slog.ErrorContext(r.Context(), "Failed to create recurring rule", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to create recurring rule")
		return
	}

	s.invalidateReports(userID)
	writeJSON(w, http.StatusCreated, rule)
}

func (s *Server) handleUpdateRecurring(w http.ResponseWriter, r *http.Request, userID int64) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req recurringRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rule, err := req.toRule(userID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rule.ID = id
	if err := rule.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// next_run only moves forward; rewinding it would re-materialize
	// periods that already produced transactions.
	existing, err := s.findRecurringRule(r.Context(), userID, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "recurring rule not found")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to load recurring rule", "error", err, "user_id", userID, "rule_id", id)
		writeError(w, http.StatusInternalServerError, "failed to update recurring rule")
		return
	}
	if rule.NextRun.Before(existing.NextRun.Time) {
		writeError(w, http.StatusBadRequest, "next_run cannot move backwards")
		return
	}

	if err := s.store.UpdateRecurringRule(r.Context(), rule); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "recurring rule not found")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to update recurring rule", "error", err, "user_id", userID, "rule_id", id)
		writeError(w, http.StatusInternalServerError, "failed to update recurring rule")
		return
	}

	s.invalidateReports(userID)
	writeJSON(w, http.StatusOK, rule)
}

func (s *Server) findRecurringRule(ctx context.Context, userID, id int64) (core.RecurringRule, error) {
	rules, err := s.store.ListRecurringRules(ctx, userID)
	if err != nil {
		return core.RecurringRule{}, err
	}
	for _, rule := range rules {
		if rule.ID == id {
			return rule, nil
		}
	}
	return core.RecurringRule{}, storage.ErrNotFound
}

func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request, userID int64) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.DeleteRecurringRule(r.Context(), userID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "recurring rule not found")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to delete recurring rule", "error", err, "user_id", userID, "rule_id", id)
		writeError(w, http.StatusInternalServerError, "failed to delete recurring rule")
		return
	}

	s.invalidateReports(userID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleMaterialize catches up the caller's due recurring rules. An
// optional as_of query parameter replaces today for backfills and tests.
func (s *Server) handleMaterialize(w http.ResponseWriter, r *http.Request, userID int64) {
	asOf := core.DateOf(time.Now())
	if v := strings.TrimSpace(r.URL.Query().Get("as_of")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid as_of date")
			return
		}
		asOf = d
	}

	created, err := s.materializer.MaterializeDue(r.Context(), userID, asOf)
	if err != nil {
		slog.ErrorContext(r.Context(), "Materialization failed", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "materialization failed")
		return
	}

	if created > 0 {
		s.invalidateReports(userID)
	}
	writeJSON(w, http.StatusOK, map[string]any{"created": created, "as_of": asOf.Key()})
}
