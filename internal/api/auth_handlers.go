package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"diskgate/internal/auth"
	"diskgate/internal/models"
	"diskgate/internal/storage"
)

const (
	accessTokenCookie  = "access_token"
	refreshTokenCookie = "refresh_token"
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

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type authResponse struct {
	Message      string       `json:"message"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         userResponse `json:"user"`
}

func newAuthResponse(message string, user models.User, pair auth.TokenPair) authResponse {
	return authResponse{
		Message:      message,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         userResponse{ID: user.ID, Username: user.Username, Email: user.Email},
	}
}

// Register creates an account and issues its first token pair.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}

	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, errors.New("All fields are required"))
		return
	}

	user, err := h.Store.CreateUser(storage.CreateUserParams{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrUsernameTaken):
			writeError(w, http.StatusBadRequest, errors.New("Username already exists"))
		case errors.Is(err, storage.ErrEmailTaken):
			writeError(w, http.StatusBadRequest, errors.New("Email already exists"))
		default:
			slog.Error("register create user failed", "username", req.Username, "error", err)
			writeError(w, http.StatusBadRequest, errors.New("unable to create account"))
		}
		return
	}

	pair, err := h.Tokens.Issue(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	h.setTokenCookies(w, r, pair)
	writeJSON(w, http.StatusOK, newAuthResponse("Register successful", user, pair))
}

// Login authenticates credentials and issues a fresh token pair. A failed
// lookup and a wrong password produce the same response so the body never
// reveals which field was wrong.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	user, err := h.Store.AuthenticateUser(req.Username, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, errors.New("Invalid credentials"))
		return
	}

	pair, err := h.Tokens.Issue(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	h.setTokenCookies(w, r, pair)
	writeJSON(w, http.StatusOK, newAuthResponse("Login successful", user, pair))
}

// Logout acknowledges the logout and clears any cookie-carried tokens. There
// is no server-side revocation list; clients are expected to discard both
// tokens.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	if _, ok := h.requireAuthenticatedUser(w, r); !ok {
		return
	}

	h.clearTokenCookies(w, r)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

// Refresh exchanges a valid refresh token for a new token pair.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}

	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	token := req.RefreshToken
	if token == "" {
		if cookie, err := r.Cookie(refreshTokenCookie); err == nil {
			token = cookie.Value
		}
	}
	if token == "" {
		writeError(w, http.StatusBadRequest, errors.New("refresh token is required"))
		return
	}

	userID, err := h.Tokens.VerifyRefresh(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, errors.New("invalid or expired refresh token"))
		return
	}
	user, exists := h.Store.GetUser(userID)
	if !exists {
		writeError(w, http.StatusUnauthorized, errors.New("account not found"))
		return
	}

	pair, err := h.Tokens.Issue(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	h.setTokenCookies(w, r, pair)
	writeJSON(w, http.StatusOK, newAuthResponse("Refresh successful", user, pair))
}

func (h *Handler) setTokenCookies(w http.ResponseWriter, r *http.Request, pair auth.TokenPair) {
	setTokenCookie(w, r, accessTokenCookie, pair.AccessToken, pair.ExpiresAt)
	setTokenCookie(w, r, refreshTokenCookie, pair.RefreshToken, time.Time{})
}

func (h *Handler) clearTokenCookies(w http.ResponseWriter, r *http.Request) {
	clearTokenCookie(w, r, accessTokenCookie)
	clearTokenCookie(w, r, refreshTokenCookie)
}

func setTokenCookie(w http.ResponseWriter, r *http.Request, name, value string, expires time.Time) {
	if value == "" {
		return
	}
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteStrictMode,
	}
	if !expires.IsZero() {
		cookie.Expires = expires.UTC()
		maxAge := int(time.Until(expires).Seconds())
		if maxAge < 0 {
			maxAge = 0
		}
		cookie.MaxAge = maxAge
	}
	http.SetCookie(w, cookie)
}

func clearTokenCookie(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteStrictMode,
	})
}

func isSecureRequest(r *http.Request) bool {
	if r == nil {
		return false
	}
	if r.TLS != nil {
		return true
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		for _, p := range strings.Split(proto, ",") {
			if strings.EqualFold(strings.TrimSpace(p), "https") {
				return true
			}
		}
	}
	return false
}
