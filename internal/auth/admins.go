package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"myapi/internal/db"
	"myapi/internal/models"
)

type RoleGranter interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	AddRole(ctx context.Context, userID int64, role string) error
}

// GrantAdmins gives the Admin role to every listed account that exists and
// returns how many accounts were promoted. Emails without an account are
// skipped; they take effect on the next startup after registering.
func GrantAdmins(ctx context.Context, users RoleGranter, emails []string) (int, error) {
	granted := 0
	for _, email := range emails {
		email = normalizeEmail(email)
		if email == "" {
			continue
		}

		user, err := users.FindByEmail(ctx, email)
		if errors.Is(err, db.ErrNotFound) {
			slog.Warn("admin email has no account yet", "component", "auth", "email", email)
			continue
		}
		if err != nil {
			return granted, fmt.Errorf("looking up admin %s: %w", email, err)
		}
		if user.HasRole(models.RoleAdmin) {
			continue
		}

		if err := users.AddRole(ctx, user.ID, models.RoleAdmin); err != nil {
			return granted, fmt.Errorf("granting admin to %s: %w", email, err)
		}
		slog.Info("admin role granted", "component", "auth", "user_id", user.ID)
		granted++
	}
	return granted, nil
}
