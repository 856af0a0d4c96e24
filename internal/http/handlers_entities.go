package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"finledger/internal/core"
	"finledger/internal/storage"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request, userID int64) {
	cats, err := s.store.ListCategories(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list categories", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request, userID int64) {
	var req struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	name := sanitizeInput(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	cat := core.Category{UserID: userID, Name: name, Color: sanitizeInput(req.Color)}
	if err := s.store.CreateCategory(r.Context(), &cat); err != nil {
		slog.ErrorContext(r.Context(), "Failed to create category", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to create category")
		return
	}
	writeJSON(w, http.StatusCreated, cat)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request, userID int64) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.DeleteCategory(r.Context(), userID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "category not found")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to delete category", "error", err, "user_id", userID, "category_id", id)
		writeError(w, http.StatusInternalServerError, "failed to delete category")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleListCategoryRules(w http.ResponseWriter, r *http.Request, userID int64) {
	rules, err := s.store.ListCategoryRules(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list category rules", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to list category rules")
		return
	}
	writeJSON(w, http.StatusOK, rules)
}

func (s *Server) handleCreateCategoryRule(w http.ResponseWriter, r *http.Request, userID int64) {
	var req struct {
		Keyword  string `json:"keyword"`
		Category string `json:"category"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	keyword := sanitizeInput(req.Keyword)
	category := sanitizeInput(req.Category)
	if keyword == "" || category == "" {
		writeError(w, http.StatusBadRequest, "keyword and category are required")
		return
	}

	rule := core.CategoryRule{UserID: userID, Keyword: keyword, Category: category}
	if err := s.store.CreateCategoryRule(r.Context(), &rule); err != nil {
		slog.ErrorContext(r.Context(), "Failed to create category rule", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to create category rule")
		return
	}
	writeJSON(w, http.StatusCreated, rule)
}

func (s *Server) handleDeleteCategoryRule(w http.ResponseWriter, r *http.Request, userID int64) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.DeleteCategoryRule(r.Context(), userID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "category rule not found")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to delete category rule", "error", err, "user_id", userID, "rule_id", id)
		writeError(w, http.StatusInternalServerError, "failed to delete category rule")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleListRates(w http.ResponseWriter, r *http.Request, userID int64) {
	rates, err := s.store.ListRates(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list rates", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to list rates")
		return
	}
	writeJSON(w, http.StatusOK, rates)
}

func (s *Server) handleUpsertRate(w http.ResponseWriter, r *http.Request, userID int64) {
	var req struct {
		Code       string  `json:"code"`
		RateToBase float64 `json:"rate_to_base"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rate := core.CurrencyRate{
		UserID:     userID,
		Code:       strings.ToUpper(sanitizeInput(req.Code)),
		RateToBase: req.RateToBase,
	}
	if err := rate.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.UpsertRate(r.Context(), rate); err != nil {
		slog.ErrorContext(r.Context(), "Failed to upsert rate", "error", err, "user_id", userID, "code", rate.Code)
		writeError(w, http.StatusInternalServerError, "failed to save rate")
		return
	}

	s.invalidateReports(userID)
	writeJSON(w, http.StatusOK, rate)
}

func (s *Server) handleDeleteRate(w http.ResponseWriter, r *http.Request, userID int64) {
	code := strings.ToUpper(sanitizeInput(r.PathValue("code")))
	if code == "" {
		writeError(w, http.StatusBadRequest, "currency code is required")
		return
	}
	if err := s.store.DeleteRate(r.Context(), userID, code); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "rate not found")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to delete rate", "error", err, "user_id", userID, "code", code)
		writeError(w, http.StatusInternalServerError, "failed to delete rate")
		return
	}

	s.invalidateReports(userID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request, userID int64) {
	settings, err := s.store.GetSettings(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to load settings", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request, userID int64) {
	var req struct {
		BaseCurrency       string  `json:"base_currency"`
		SavedFilter        string  `json:"saved_filter"`
		LargeTxThreshold   float64 `json:"large_tx_threshold"`
		BudgetAlertPercent float64 `json:"budget_alert_percent"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	base := strings.ToUpper(sanitizeInput(req.BaseCurrency))
	if base == "" {
		base = "EUR"
	}
	if req.LargeTxThreshold < 0 || req.BudgetAlertPercent < 0 {
		writeError(w, http.StatusBadRequest, "thresholds must not be negative")
		return
	}

	settings := core.UserSettings{
		UserID:             userID,
		BaseCurrency:       base,
		SavedFilter:        sanitizeInput(req.SavedFilter),
		LargeTxThreshold:   req.LargeTxThreshold,
		BudgetAlertPercent: req.BudgetAlertPercent,
	}
	if err := s.store.SaveSettings(r.Context(), settings); err != nil {
		slog.ErrorContext(r.Context(), "Failed to save settings", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}

	s.invalidateReports(userID)
	writeJSON(w, http.StatusOK, settings)
}
