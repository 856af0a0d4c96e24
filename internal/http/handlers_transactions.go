package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"finledger/internal/core"
	"finledger/internal/storage"
)

// amountField accepts the amount as either a JSON number or a string,
// including the comma decimal separator.
type amountField string

func (a *amountField) UnmarshalJSON(b []byte) error {
	*a = amountField(strings.Trim(string(b), `"`))
	return nil
}

func (a amountField) Parse() (float64, error) {
	return core.ParseAmount(string(a))
}

type transactionRequest struct {
	Date        core.Date   `json:"date"`
	Kind        core.Kind   `json:"kind"`
	Category    string      `json:"category"`
	Amount      amountField `json:"amount"`
	Currency    string      `json:"currency"`
	Description string      `json:"description"`
}

func (req transactionRequest) toTransaction(userID int64) (core.Transaction, error) {
	amount, err := req.Amount.Parse()
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		UserID:      userID,
		Date:        req.Date,
		Kind:        req.Kind,
		Category:    sanitizeInput(req.Category),
		Amount:      amount,
		Currency:    strings.ToUpper(sanitizeInput(req.Currency)),
		Description: sanitizeInput(req.Description),
	}, nil
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request, userID int64) {
	start, end, err := parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sort, err := parseSort(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	filter := core.TransactionFilter{
		UserID:   userID,
		Start:    start,
		End:      end,
		Category: sanitizeInput(r.URL.Query().Get("category")),
		Sort:     sort,
	}
	if kind := r.URL.Query().Get("kind"); kind != "" {
		k := core.Kind(kind)
		if !k.Valid() {
			writeError(w, http.StatusBadRequest, "unknown kind "+strconv.Quote(kind))
			return
		}
		filter.Kind = k
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = limit
	}

	txs, err := s.store.ListTransactions(r.Context(), filter)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list transactions", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request, userID int64) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tx, err := req.toTransaction(userID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.transactions.Create(r.Context(), tx)
	if err != nil {
		status := http.StatusBadRequest
		if !isValidationError(err) {
			slog.ErrorContext(r.Context(), "Failed to create transaction", "error", err, "user_id", userID)
			status = http.StatusInternalServerError
		}
		writeError(w, status, err.Error())
		return
	}

	s.invalidateReports(userID)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request, userID int64) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tx, err := s.transactions.Get(r.Context(), userID, id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "transaction not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to get transaction", "error", err, "user_id", userID, "transaction_id", id)
		writeError(w, http.StatusInternalServerError, "failed to get transaction")
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request, userID int64) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tx, err := req.toTransaction(userID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tx.ID = id

	updated, err := s.transactions.Update(r.Context(), tx)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "transaction not found")
		return
	}
	if err != nil {
		status := http.StatusBadRequest
		if !isValidationError(err) {
			slog.ErrorContext(r.Context(), "Failed to update transaction", "error", err, "user_id", userID, "transaction_id", id)
			status = http.StatusInternalServerError
		}
		writeError(w, status, err.Error())
		return
	}

	s.invalidateReports(userID)
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request, userID int64) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.transactions.Delete(r.Context(), userID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "transaction not found")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to delete transaction", "error", err, "user_id", userID, "transaction_id", id)
		writeError(w, http.StatusInternalServerError, "failed to delete transaction")
		return
	}

	s.invalidateReports(userID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// isValidationError distinguishes caller mistakes from infrastructure
// failures for status-code purposes.
func isValidationError(err error) bool {
	return errors.Is(err, core.ErrInvalidAmount) ||
		errors.Is(err, core.ErrInvalidDate) ||
		errors.Is(err, core.ErrInvalidKind) ||
		errors.Is(err, core.ErrInvalidFrequency) ||
		errors.Is(err, core.ErrInvalidPeriod) ||
		errors.Is(err, core.ErrEmptyName) ||
		errors.Is(err, core.ErrEmptyCategory)
}
