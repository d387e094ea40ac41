package auth

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"myapi/internal/constants"
	"myapi/internal/db"
	"myapi/internal/images"
	"myapi/internal/models"
)

type memoryUsers struct {
	mu        sync.Mutex
	users     []*models.User
	createErr error
}

func (m *memoryUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, db.ErrNotFound
}

func (m *memoryUsers) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := m.FindByEmail(ctx, email)
	return err == nil, nil
}

func (m *memoryUsers) Create(_ context.Context, user *models.User, roles ...string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	created := *user
	created.ID = int64(len(m.users) + 1)
	created.CreatedAt = time.Now().UTC()
	created.Roles = slices.Clone(roles)
	m.users = append(m.users, &created)
	return &created, nil
}

func (m *memoryUsers) AddRole(_ context.Context, userID int64, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == userID {
			if !slices.Contains(u.Roles, role) {
				u.Roles = append(u.Roles, role)
			}
			return nil
		}
	}
	return db.ErrNotFound
}

func (m *memoryUsers) List(context.Context) ([]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.users), nil
}

type memoryImages struct {
	mu      sync.Mutex
	stored  []string
	deleted []string
	err     error
}

func (m *memoryImages) save(kind string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	base := kind + "-0001.webp"
	m.stored = append(m.stored, base)
	return base, nil
}

func (m *memoryImages) Store(context.Context, []byte) (string, error) { return m.save("file") }

func (m *memoryImages) StoreFromBase64(context.Context, string) (string, error) {
	return m.save("base64")
}

func (m *memoryImages) StoreFromURL(context.Context, string) (string, error) { return m.save("url") }

func (m *memoryImages) Delete(_ context.Context, base string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, base)
	return nil
}

func newTestService(t *testing.T) (*Service, *memoryUsers, *memoryImages) {
	t.Helper()
	users := &memoryUsers{}
	imgs := &memoryImages{}
	return NewService(users, imgs, NewJWTService(testSecret, time.Hour), 6), users, imgs
}

func seedUser(t *testing.T, users *memoryUsers, email, password string, roles ...string) {
	t.Helper()
	hash, err := HashPassword(password)
	require.NoError(t, err)
	_, err = users.Create(context.Background(), &models.User{Email: email, PasswordHash: hash}, roles...)
	require.NoError(t, err)
}

func TestAuthenticateIssuesTokenWithCurrentRoles(t *testing.T) {
	svc, users, _ := newTestService(t)
	seedUser(t, users, "admin@example.com", "secret1", models.RoleUser, models.RoleAdmin)

	token, err := svc.Authenticate(context.Background(), "  Admin@Example.com ", "secret1")
	require.NoError(t, err)

	claims, err := svc.tokens.Validate(token)
	require.NoError(t, err)
	require.Equal(t, "admin@example.com", claims.Email)
	require.Equal(t, []string{models.RoleUser, models.RoleAdmin}, claims.Roles)
}

func TestAuthenticateFailuresAreIndistinguishable(t *testing.T) {
	svc, users, _ := newTestService(t)
	seedUser(t, users, "ada@example.com", "secret1")

	_, unknownErr := svc.Authenticate(context.Background(), "ghost@example.com", "secret1")
	_, wrongErr := svc.Authenticate(context.Background(), "ada@example.com", "wrong-password")

	require.ErrorIs(t, unknownErr, ErrInvalidCredentials)
	require.ErrorIs(t, wrongErr, ErrInvalidCredentials)
	require.Equal(t, unknownErr.Error(), wrongErr.Error())
}

func TestRegisterCreatesUserWithDefaultRole(t *testing.T) {
	svc, users, imgs := newTestService(t)

	token, err := svc.Register(context.Background(), RegisterInput{
		Email:     " New@Example.com",
		Password:  "secret1",
		FirstName: "<b>Ada</b>",
		LastName:  "Love &amp; lace",
		Avatar:    AvatarSource{Base64: "aGVsbG8=", URL: "http://example.com/a.png"},
	})
	require.NoError(t, err)

	claims, err := svc.tokens.Validate(token)
	require.NoError(t, err)
	require.Equal(t, "new@example.com", claims.Email)
	require.Equal(t, []string{models.RoleUser}, claims.Roles)
	require.Equal(t, "base64-0001.webp", claims.Image)
	require.Equal(t, "Love & lace Ada", claims.Name)

	require.Len(t, users.users, 1)
	require.NotEqual(t, "secret1", users.users[0].PasswordHash)
	require.Equal(t, []string{"base64-0001.webp"}, imgs.stored)
}

func TestRegisterAvatarPrecedence(t *testing.T) {
	svc, _, imgs := newTestService(t)

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "a@example.com",
		Password: "secret1",
		Avatar:   AvatarSource{File: []byte{1}, Base64: "aGVsbG8=", URL: "http://example.com/a.png"},
	})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), RegisterInput{
		Email:    "b@example.com",
		Password: "secret1",
		Avatar:   AvatarSource{URL: "http://example.com/a.png"},
	})
	require.NoError(t, err)

	require.Equal(t, []string{"file-0001.webp", "url-0001.webp"}, imgs.stored)
}

func TestRegisterDuplicateEmailStoresNoAvatar(t *testing.T) {
	svc, users, imgs := newTestService(t)
	seedUser(t, users, "dup@example.com", "secret1")

	token, err := svc.Register(context.Background(), RegisterInput{
		Email:    "DUP@example.com",
		Password: "secret1",
		Avatar:   AvatarSource{File: []byte{1, 2, 3}},
	})
	require.Empty(t, token)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.True(t, verr.Has(constants.FieldErrDuplicateEmail))
	require.Empty(t, imgs.stored)
}

func TestRegisterReportsEveryFieldError(t *testing.T) {
	svc, users, imgs := newTestService(t)

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:     "not-an-email",
		Password:  "123",
		FirstName: strings.Repeat("a", 101),
		Avatar:    AvatarSource{File: []byte{1}},
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Errors, 3)
	require.Equal(t, FieldError{Field: "email", Code: constants.FieldErrInvalidEmail, Message: "Invalid email format"}, verr.Errors[0])
	require.Equal(t, "password", verr.Errors[1].Field)
	require.Equal(t, constants.FieldErrPasswordTooShort, verr.Errors[1].Code)
	require.Equal(t, "firstName", verr.Errors[2].Field)
	require.Equal(t, constants.FieldErrTooLong, verr.Errors[2].Code)

	require.Empty(t, users.users)
	require.Empty(t, imgs.stored)
}

func TestRegisterMissingFields(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Register(context.Background(), RegisterInput{})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Errors, 2)
	require.Equal(t, constants.FieldErrRequired, verr.Errors[0].Code)
	require.Equal(t, constants.FieldErrRequired, verr.Errors[1].Code)
}

func TestRegisterMapsImageErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"undecodable", images.ErrDisallowedType, constants.FieldErrInvalidImage},
		{"unreachable", images.ErrSourceUnavailable, constants.FieldErrImageUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, users, imgs := newTestService(t)
			imgs.err = tt.err

			_, err := svc.Register(context.Background(), RegisterInput{
				Email:    "a@example.com",
				Password: "secret1",
				Avatar:   AvatarSource{URL: "http://example.com/a.png"},
			})

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			require.Equal(t, []FieldError{{Field: "image", Code: tt.code, Message: verr.Errors[0].Message}}, verr.Errors)
			require.Empty(t, users.users)
		})
	}
}

func TestRegisterBackendFailureIsNotValidation(t *testing.T) {
	svc, _, imgs := newTestService(t)
	imgs.err = errors.New("bucket offline")

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "a@example.com",
		Password: "secret1",
		Avatar:   AvatarSource{File: []byte{1}},
	})

	var verr *ValidationError
	require.Error(t, err)
	require.False(t, errors.As(err, &verr))
}

func TestRegisterRaceRemovesStoredAvatar(t *testing.T) {
	svc, users, imgs := newTestService(t)
	users.createErr = db.ErrDuplicate

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "race@example.com",
		Password: "secret1",
		Avatar:   AvatarSource{File: []byte{1}},
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.True(t, verr.Has(constants.FieldErrDuplicateEmail))
	require.Equal(t, imgs.stored, imgs.deleted)
}

func TestProfileAndListUsers(t *testing.T) {
	svc, users, _ := newTestService(t)
	seedUser(t, users, "ada@example.com", "secret1", models.RoleUser)

	user, err := svc.Profile(context.Background(), "ada@example.com")
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", user.Email)

	_, err = svc.Profile(context.Background(), "ghost@example.com")
	require.ErrorIs(t, err, ErrUserNotFound)

	list, err := svc.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
}
