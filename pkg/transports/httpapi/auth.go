package httpapi

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/focusflowhq/focusflow/pkg/auth"
	"github.com/focusflowhq/focusflow/pkg/store"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type tokenResponse struct {
	Token     string       `json:"token"`
	ExpiresAt int64        `json:"expires_at"`
	User      userResponse `json:"user"`
}

func (t *Transport) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, "invalid email address")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not hash password")
		return
	}
	user, err := t.store.CreateUser(req.Email, hash, req.Name)
	if errors.Is(err, store.ErrEmailTaken) {
		writeError(w, http.StatusConflict, "email already registered")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not create user")
		return
	}
	t.log.Info("user_registered", "user_id", user.ID)
	t.writeToken(w, http.StatusCreated, user)
}

func (t *Transport) handleSignin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	user, err := t.store.UserByEmail(req.Email)
	if err != nil || !auth.VerifyPassword(req.Password, user.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	t.writeToken(w, http.StatusOK, user)
}

// handleToken is the form-encoded variant of signin, for clients that speak
// the OAuth2 password flow. The email goes in the username field.
func (t *Transport) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}
	email := strings.ToLower(strings.TrimSpace(r.PostFormValue("username")))
	password := r.PostFormValue("password")

	user, err := t.store.UserByEmail(email)
	if err != nil || !auth.VerifyPassword(password, user.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	token, _, err := t.auth.IssueToken(user.ID, user.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
	})
}

func (t *Transport) handleMe(w http.ResponseWriter, r *http.Request, userID string) {
	user, err := t.store.UserByID(userID)
	if err != nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, userResponse{ID: user.ID, Email: user.Email, Name: user.Name})
}

func (t *Transport) writeToken(w http.ResponseWriter, status int, user *store.User) {
	token, expires, err := t.auth.IssueToken(user.ID, user.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	writeJSON(w, status, tokenResponse{
		Token:     token,
		ExpiresAt: expires,
		User:      userResponse{ID: user.ID, Email: user.Email, Name: user.Name},
	})
}
