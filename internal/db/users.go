package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"myapi/internal/models"
)

const userColumns = `id, email, password_hash, first_name, last_name, image, created_at`

type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts the user and assigns the given roles in one transaction.
// A taken email yields ErrDuplicate.
func (r *UserRepository) Create(ctx context.Context, user *models.User, roles ...string) (*models.User, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting user transaction: %w", err)
	}
	defer tx.Rollback()

	createdAt := user.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var id int64
	err = tx.QueryRowContext(ctx,
		r.db.rebind(`INSERT INTO users (email, password_hash, first_name, last_name, image, created_at) VALUES (?, ?, ?, ?, ?, ?) RETURNING id`),
		user.Email, user.PasswordHash, user.FirstName, user.LastName, user.Image, createdAt,
	).Scan(&id)
	if err != nil {
		if IsUniqueConstraintError(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	for _, role := range roles {
		if err := r.assignRole(ctx, tx, id, role); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing user transaction: %w", err)
	}

	created := *user
	created.ID = id
	created.CreatedAt = createdAt
	created.Roles = slices.Clone(roles)
	if created.Roles == nil {
		created.Roles = []string{}
	}
	slices.Sort(created.Roles)

	return &created, nil
}

func (r *UserRepository) AddRole(ctx context.Context, userID int64, role string) error {
	return r.assignRole(ctx, r.db.DB, userID, role)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (r *UserRepository) List(ctx context.Context) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}

	roles, err := r.allRoles(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if assigned, ok := roles[u.ID]; ok {
			u.Roles = assigned
		}
	}

	return users, nil
}

func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, r.db.rebind(`SELECT COUNT(*) FROM users WHERE email = ?`), email).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking email availability: %w", err)
	}
	return count > 0, nil
}

// ImageInUse reports whether any user references the image base filename.
func (r *UserRepository) ImageInUse(ctx context.Context, image string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, r.db.rebind(`SELECT COUNT(*) FROM users WHERE image = ?`), image).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking image references: %w", err)
	}
	return count > 0, nil
}

func (r *UserRepository) findOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, r.db.rebind(query), args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}

	u.Roles, err = r.rolesFor(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	return u, nil
}

func (r *UserRepository) rolesFor(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, r.db.rebind(
		`SELECT r.name FROM roles r JOIN user_roles ur ON ur.role_id = r.id WHERE ur.user_id = ? ORDER BY r.name`,
	), userID)
	if err != nil {
		return nil, fmt.Errorf("querying user roles: %w", err)
	}
	defer rows.Close()

	roles := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning user role: %w", err)
		}
		roles = append(roles, name)
	}

	return roles, rows.Err()
}

func (r *UserRepository) allRoles(ctx context.Context) (map[int64][]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT ur.user_id, r.name FROM user_roles ur JOIN roles r ON r.id = ur.role_id ORDER BY ur.user_id, r.name`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying user roles: %w", err)
	}
	defer rows.Close()

	roles := make(map[int64][]string)
	for rows.Next() {
		var (
			userID int64
			name   string
		)
		if err := rows.Scan(&userID, &name); err != nil {
			return nil, fmt.Errorf("scanning user role: %w", err)
		}
		roles[userID] = append(roles[userID], name)
	}

	return roles, rows.Err()
}

func (r *UserRepository) assignRole(ctx context.Context, q querier, userID int64, role string) error {
	var roleID int64
	err := q.QueryRowContext(ctx, r.db.rebind(`SELECT id FROM roles WHERE name = ?`), role).Scan(&roleID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("assigning role %q: %w", role, ErrRoleNotFound)
	}
	if err != nil {
		return fmt.Errorf("looking up role %q: %w", role, err)
	}

	_, err = q.ExecContext(ctx,
		r.db.rebind(`INSERT INTO user_roles (user_id, role_id) VALUES (?, ?) ON CONFLICT DO NOTHING`),
		userID, roleID,
	)
	if err != nil {
		return fmt.Errorf("assigning role %q: %w", role, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.FirstName,
		&u.LastName,
		&u.Image,
		&u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.Roles = []string{}
	return &u, nil
}
