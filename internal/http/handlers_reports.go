package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"finledger/internal/core"
	"finledger/internal/storage"
)

type dashboardResponse struct {
	Income         float64               `json:"income"`
	Expenses       float64               `json:"expenses"`
	Net            float64               `json:"net"`
	CategoryTotals []core.CategoryTotal  `json:"category_totals"`
	Monthly        []core.MonthTotal     `json:"monthly"`
	BalancePoints  []core.BalancePoint   `json:"balance_points"`
	Budgets        []core.BudgetProgress `json:"budgets"`
	Recent         []core.Transaction    `json:"recent"`
	SavingsGoal    *savingsGoalResponse  `json:"savings_goal,omitempty"`
}

// handleDashboard bundles the landing-page numbers into one response.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, userID int64) {
	ctx := r.Context()
	start, end, err := parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	net, err := s.aggregator.NetTotal(ctx, userID, start, end)
	if err != nil {
		slog.ErrorContext(ctx, "Dashboard net total failed", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to build dashboard")
		return
	}

	totals, err := s.aggregator.CategoryTotals(ctx, userID, start, end)
	if err != nil {
		slog.ErrorContext(ctx, "Dashboard category totals failed", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to build dashboard")
		return
	}

	months, err := s.aggregator.MonthlyTotals(ctx, userID, start, end)
	if err != nil {
		slog.ErrorContext(ctx, "Dashboard monthly totals failed", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to build dashboard")
		return
	}

	points, err := s.aggregator.BalanceSeries(ctx, userID)
	if err != nil {
		slog.ErrorContext(ctx, "Dashboard balance series failed", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to build dashboard")
		return
	}

	budgets, err := s.aggregator.BudgetProgress(ctx, userID, core.DateOf(time.Now()))
	if err != nil {
		slog.ErrorContext(ctx, "Dashboard budget progress failed", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to build dashboard")
		return
	}

	recent, err := s.store.ListTransactions(ctx, core.TransactionFilter{UserID: userID, Limit: 5})
	if err != nil {
		slog.ErrorContext(ctx, "Dashboard recent transactions failed", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to build dashboard")
		return
	}

	var income, expenses float64
	for _, m := range months {
		income += m.Income
		expenses += m.Expense
	}

	resp := dashboardResponse{
		Income:         income,
		Expenses:       expenses,
		Net:            net,
		CategoryTotals: totals,
		Monthly:        months,
		BalancePoints:  points,
		Budgets:        budgets,
		Recent:         recent,
	}

	goal, err := s.store.GetSavingsGoal(ctx, userID)
	if err == nil {
		resp.SavingsGoal = &savingsGoalResponse{SavingsGoal: goal, Percent: goal.Percent()}
	} else if !errors.Is(err, storage.ErrNotFound) {
		slog.WarnContext(ctx, "Dashboard savings goal failed", "error", err, "user_id", userID)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCategoryReport(w http.ResponseWriter, r *http.Request, userID int64) {
	start, end, err := parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	totals, err := s.aggregator.CategoryTotals(r.Context(), userID, start, end)
	if err != nil {
		slog.ErrorContext(r.Context(), "Category report failed", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to build category report")
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request, userID int64) {
	start, end, err := parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	months, err := s.aggregator.MonthlyTotals(r.Context(), userID, start, end)
	if err != nil {
		slog.ErrorContext(r.Context(), "Monthly report failed", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to build monthly report")
		return
	}
	writeJSON(w, http.StatusOK, months)
}

func (s *Server) handleBalanceReport(w http.ResponseWriter, r *http.Request, userID int64) {
	points, err := s.aggregator.BalanceSeries(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Balance report failed", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to build balance report")
		return
	}
	writeJSON(w, http.StatusOK, points)
}

func (s *Server) handleBudgetReport(w http.ResponseWriter, r *http.Request, userID int64) {
	asOf := core.DateOf(time.Now())
	if v := strings.TrimSpace(r.URL.Query().Get("as_of")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid as_of date")
			return
		}
		asOf = d
	}

	progress, err := s.aggregator.BudgetProgress(r.Context(), userID, asOf)
	if err != nil {
		slog.ErrorContext(r.Context(), "Budget report failed", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to build budget report")
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (s *Server) handleForecastReport(w http.ResponseWriter, r *http.Request, userID int64) {
	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > 365 {
			writeError(w, http.StatusBadRequest, "days must be between 1 and 365")
			return
		}
		days = parsed
	}

	points, err := s.forecaster.Forecast(r.Context(), userID, core.DateOf(time.Now()), days)
	if err != nil {
		slog.ErrorContext(r.Context(), "Forecast failed", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to build forecast")
		return
	}
	writeJSON(w, http.StatusOK, points)
}

func (s *Server) handleNetReport(w http.ResponseWriter, r *http.Request, userID int64) {
	start, end, err := parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	net, err := s.aggregator.NetTotal(r.Context(), userID, start, end)
	if err != nil {
		slog.ErrorContext(r.Context(), "Net report failed", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to compute net total")
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"net": net})
}

// handleExportReport pushes the monthly report to the configured
// spreadsheet. Returns 501 when no exporter is wired.
func (s *Server) handleExportReport(w http.ResponseWriter, r *http.Request, userID int64) {
	if s.exporter == nil {
		writeError(w, http.StatusNotImplemented, "report export is not configured")
		return
	}

	start, end, err := parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	months, err := s.aggregator.MonthlyTotals(r.Context(), userID, start, end)
	if err != nil {
		slog.ErrorContext(r.Context(), "Export aggregation failed", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to build export")
		return
	}

	user, err := s.store.GetUser(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Export user lookup failed", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to build export")
		return
	}

	if err := s.exporter.ExportMonthlyReport(r.Context(), user.Username, months); err != nil {
		slog.ErrorContext(r.Context(), "Report export failed", "error", err, "user_id", userID)
		writeError(w, http.StatusBadGateway, "report export failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "exported", "months": len(months)})
}
