package db

import (
	"context"
	"fmt"
)

type RoleRepository struct {
	db *DB
}

func NewRoleRepository(db *DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// EnsureRoles creates the named roles that do not exist yet and returns how
// many were created.
func (r *RoleRepository) EnsureRoles(ctx context.Context, names ...string) (int64, error) {
	var created int64
	for _, name := range names {
		result, err := r.db.ExecContext(ctx,
			r.db.rebind(`INSERT INTO roles (name) VALUES (?) ON CONFLICT (name) DO NOTHING`),
			name,
		)
		if err != nil {
			return created, fmt.Errorf("creating role %q: %w", name, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return created, fmt.Errorf("checking rows affected: %w", err)
		}
		created += n
	}
	return created, nil
}
