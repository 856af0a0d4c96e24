package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"finledger/internal/core"
	"finledger/internal/storage"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string    `json:"token"`
	User  core.User `json:"user"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req.Username = sanitizeInput(req.Username)
	if req.Username == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	if _, err := s.store.GetUserByUsername(r.Context(), req.Username); err == nil {
		writeError(w, http.StatusConflict, "username already taken")
		return
	} else if !errors.Is(err, storage.ErrNotFound) {
		slog.ErrorContext(r.Context(), "Failed to check username", "error", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	user := core.User{
		Username:     req.Username,
		Email:        sanitizeInput(req.Email),
		PasswordHash: string(hash),
	}
	if err := s.store.CreateUser(r.Context(), &user); err != nil {
		slog.ErrorContext(r.Context(), "Failed to create user", "error", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	// Seed the starter category list so resolution and reports have
	// something to work with from the first transaction.
	for _, name := range core.DefaultCategories {
		cat := core.Category{UserID: user.ID, Name: name}
		if err := s.store.CreateCategory(r.Context(), &cat); err != nil {
			slog.WarnContext(r.Context(), "Failed to seed category", "error", err, "category", name)
		}
	}

	token, err := s.issueSession(r, user.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to create session", "error", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	slog.InfoContext(r.Context(), "User registered", "user_id", user.ID, "username", user.Username)
	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := s.store.GetUserByUsername(r.Context(), sanitizeInput(req.Username))
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to load user", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := s.issueSession(r, user.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to create session", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	slog.InfoContext(r.Context(), "User logged in", "user_id", user.ID, "username", user.Username)
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, userID int64) {
	token := bearerToken(r)
	if token != "" {
		if err := s.store.DeleteSession(r.Context(), token); err != nil {
			slog.WarnContext(r.Context(), "Failed to delete session", "error", err, "user_id", userID)
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request, userID int64) {
	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.NewPassword) < 8 {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	user, err := s.store.GetUser(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to load user", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "password change failed")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)) != nil {
		writeError(w, http.StatusUnauthorized, "current password is incorrect")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "password change failed")
		return
	}
	if err := s.store.UpdateUserPassword(r.Context(), userID, string(hash)); err != nil {
		slog.ErrorContext(r.Context(), "Failed to update password", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "password change failed")
		return
	}

	slog.InfoContext(r.Context(), "Password changed", "user_id", userID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "password updated"})
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request, userID int64) {
	if err := s.store.DeleteUser(r.Context(), userID); err != nil {
		slog.ErrorContext(r.Context(), "Failed to delete user", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "account deletion failed")
		return
	}
	s.invalidateReports(userID)
	slog.InfoContext(r.Context(), "Account deleted", "user_id", userID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "account deleted"})
}

func (s *Server) issueSession(r *http.Request, userID int64) (string, error) {
	token := uuid.NewString()
	expiresAt := time.Now().Add(s.sessionTTL)
	if err := s.store.CreateSession(r.Context(), token, userID, expiresAt); err != nil {
		return "", err
	}
	return token, nil
}

// requireUser resolves the bearer token to a user id and rejects the
// request when the session is missing or expired.
func (s *Server) requireUser(next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		userID, err := s.store.GetSessionUser(r.Context(), token, time.Now())
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid or expired session")
			return
		}
		if err != nil {
			slog.ErrorContext(r.Context(), "Failed to resolve session", "error", err)
			writeError(w, http.StatusInternalServerError, "authentication failed")
			return
		}

		next(w, r, userID)
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}
