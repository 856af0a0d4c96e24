package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"finledger/internal/core"
)

// maxBodyBytes caps request bodies; the API carries small JSON documents only.
const maxBodyBytes = 1 << 20

// userHandler is a handler that runs after authentication.
type userHandler func(w http.ResponseWriter, r *http.Request, userID int64)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// clientIP prefers the first X-Forwarded-For hop, falling back to the
// connection's remote address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// parseDateRange reads start/end query parameters, or a named range
// shortcut: range=this_week (Monday through today) or range=last_week
// (the previous Monday through Sunday).
func parseDateRange(r *http.Request) (start, end *core.Date, err error) {
	q := r.URL.Query()

	switch q.Get("range") {
	case "":
	case "this_week":
		s, e := weekRange(core.DateOf(time.Now()), 0)
		return &s, &e, nil
	case "last_week":
		s, e := weekRange(core.DateOf(time.Now()), -1)
		return &s, &e, nil
	default:
		return nil, nil, fmt.Errorf("unknown range %q", q.Get("range"))
	}

	if v := strings.TrimSpace(q.Get("start")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid start date: %w", err)
		}
		start = &d
	}
	if v := strings.TrimSpace(q.Get("end")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid end date: %w", err)
		}
		end = &d
	}
	return start, end, nil
}

// weekRange returns the Monday-to-Sunday span of the week offset weeks
// from today's. The current week's end is capped at today.
func weekRange(today core.Date, offset int) (core.Date, core.Date) {
	weekday := int(today.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	monday := today.AddDays(1 - weekday + offset*7)
	sunday := monday.AddDays(6)
	if offset == 0 && sunday.After(today.Time) {
		sunday = today
	}
	return monday, sunday
}

// parseSort validates the sort query parameter.
func parseSort(r *http.Request) (string, error) {
	sort := r.URL.Query().Get("sort")
	switch sort {
	case "", core.SortDateDesc, core.SortDateAsc, core.SortAmountAsc, core.SortAmountDesc:
		return sort, nil
	default:
		return "", fmt.Errorf("unknown sort %q", sort)
	}
}
