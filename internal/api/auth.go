package api

import (
	"errors"
	"log/slog"
	"net/http"

	"myapi/internal/auth"
)

// The mobile client shows the login failure body to the user verbatim.
const invalidCredentialsMessage = "Invalid email or password"

type AuthHandler struct {
	accounts       *auth.Service
	maxUploadBytes int64
}

func NewAuthHandler(accounts *auth.Service, maxUploadBytes int64) *AuthHandler {
	return &AuthHandler{
		accounts:       accounts,
		maxUploadBytes: maxUploadBytes,
	}
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=1024"`
}

// POST /api/account/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	token, err := h.accounts.Authenticate(r.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		writePlain(w, http.StatusUnauthorized, invalidCredentialsMessage)
		return
	}
	if err != nil {
		slog.Error("error authenticating user", "component", "api", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{Token: token})
}

// POST /api/account/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	input, cleanup, ok := readRegisterForm(w, r, h.maxUploadBytes)
	if !ok {
		return
	}
	defer cleanup()

	token, err := h.accounts.Register(r.Context(), input)
	var verr *auth.ValidationError
	if errors.As(err, &verr) {
		validationFailed(w, verr)
		return
	}
	if err != nil {
		slog.Error("error registering user", "component", "api", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{Token: token})
}
