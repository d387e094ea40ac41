package api

import (
	"errors"
	"log/slog"
	"net/http"

	"myapi/internal/auth"
)

type UserHandler struct {
	accounts *auth.Service
}

func NewUserHandler(accounts *auth.Service) *UserHandler {
	return &UserHandler{accounts: accounts}
}

// GET /api/account/profile
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r)
	if claims == nil {
		unauthorized(w, "User not found in context")
		return
	}

	user, err := h.accounts.Profile(r.Context(), claims.Email)
	if errors.Is(err, auth.ErrUserNotFound) {
		unauthorized(w, "User no longer exists")
		return
	}
	if err != nil {
		slog.Error("error finding user", "component", "api", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, profileFromUser(user))
}

// GET /api/account/users
func (h *UserHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	users, err := h.accounts.ListUsers(r.Context())
	if err != nil {
		slog.Error("error listing users", "component", "api", "error", err)
		internalError(w)
		return
	}

	items := make([]UserListItem, 0, len(users))
	for _, u := range users {
		items = append(items, listItemFromUser(u))
	}

	writeJSON(w, http.StatusOK, items)
}
