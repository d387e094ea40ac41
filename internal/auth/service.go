package auth

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/prometheus/client_golang/prometheus"

	"myapi/internal/constants"
	"myapi/internal/db"
	"myapi/internal/images"
	"myapi/internal/metrics"
	"myapi/internal/models"
)

const (
	DefaultPasswordMinLength = 6
	maxNameLength            = 100
	maxEmailLength           = 254
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
)

type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user *models.User, roles ...string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
}

type ImageStore interface {
	Store(ctx context.Context, data []byte) (string, error)
	StoreFromBase64(ctx context.Context, payload string) (string, error)
	StoreFromURL(ctx context.Context, rawURL string) (string, error)
	Delete(ctx context.Context, base string) error
}

type Service struct {
	users             UserStore
	images            ImageStore
	tokens            *JWTService
	passwordMinLength int
	sanitizer         *bluemonday.Policy
	validate          *validator.Validate
}

func NewService(users UserStore, imageStore ImageStore, tokens *JWTService, passwordMinLength int) *Service {
	if passwordMinLength <= 0 {
		passwordMinLength = DefaultPasswordMinLength
	}
	return &Service{
		users:             users,
		images:            imageStore,
		tokens:            tokens,
		passwordMinLength: passwordMinLength,
		sanitizer:         bluemonday.StrictPolicy(),
		validate:          validator.New(),
	}
}

// Authenticate returns a signed token for valid credentials. Unknown emails
// and wrong passwords both yield ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (string, error) {
	timer := prometheus.NewTimer(metrics.LoginDuration)
	defer timer.ObserveDuration()

	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, db.ErrNotFound) {
		_ = VerifyPassword(password, dummyHash)
		metrics.LoginAttempts.WithLabelValues(metrics.StatusFailure).Inc()
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("looking up user: %w", err)
	}

	if err := VerifyPassword(password, user.PasswordHash); err != nil {
		if !errors.Is(err, errPasswordMismatch) {
			slog.Warn("unreadable password hash", "component", "auth", "user_id", user.ID, "error", err)
		}
		metrics.LoginAttempts.WithLabelValues(metrics.StatusFailure).Inc()
		return "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", err
	}

	metrics.LoginAttempts.WithLabelValues(metrics.StatusSuccess).Inc()
	return token, nil
}

// Register creates a user with the default role and returns a token for it.
// Input problems are reported as *ValidationError.
func (s *Service) Register(ctx context.Context, in RegisterInput) (string, error) {
	token, err := s.register(ctx, in)
	var verr *ValidationError
	switch {
	case err == nil:
		metrics.RegistrationAttempts.WithLabelValues(metrics.StatusSuccess).Inc()
	case errors.As(err, &verr):
		metrics.RegistrationAttempts.WithLabelValues(metrics.StatusInvalid).Inc()
	default:
		metrics.RegistrationAttempts.WithLabelValues(metrics.StatusFailure).Inc()
	}
	return token, err
}

func (s *Service) register(ctx context.Context, in RegisterInput) (string, error) {
	email := normalizeEmail(in.Email)
	firstName := s.cleanName(in.FirstName)
	lastName := s.cleanName(in.LastName)

	if verr := s.validateRegistration(email, in.Password, firstName, lastName); verr.HasErrors() {
		return "", verr
	}

	exists, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return "", fmt.Errorf("checking email: %w", err)
	}
	if exists {
		return "", duplicateEmail()
	}

	passwordHash, err := HashPassword(in.Password)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}

	var image *string
	if !in.Avatar.IsEmpty() {
		base, err := s.storeAvatar(ctx, in.Avatar)
		if err != nil {
			return "", err
		}
		image = &base
	}

	user, err := s.users.Create(ctx, &models.User{
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    optional(firstName),
		LastName:     optional(lastName),
		Image:        image,
	}, models.RoleUser)
	if err != nil {
		s.discardAvatar(ctx, image)
		if errors.Is(err, db.ErrDuplicate) {
			return "", duplicateEmail()
		}
		return "", fmt.Errorf("creating user: %w", err)
	}

	slog.Info("user registered", "component", "auth", "user_id", user.ID, "has_image", image != nil)

	return s.tokens.Issue(user)
}

func (s *Service) Profile(ctx context.Context, email string) (*models.User, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	return user, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]*models.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

func (s *Service) validateRegistration(email, password, firstName, lastName string) *ValidationError {
	verr := &ValidationError{}

	switch {
	case email == "":
		verr.add("email", constants.FieldErrRequired, "Email is required")
	case len(email) > maxEmailLength:
		verr.add("email", constants.FieldErrTooLong, "Email is too long")
	case s.validate.Var(email, "email") != nil:
		verr.add("email", constants.FieldErrInvalidEmail, "Invalid email format")
	}

	switch {
	case password == "":
		verr.add("password", constants.FieldErrRequired, "Password is required")
	case utf8.RuneCountInString(password) < s.passwordMinLength:
		verr.add("password", constants.FieldErrPasswordTooShort,
			fmt.Sprintf("Password must be at least %d characters", s.passwordMinLength))
	}

	if utf8.RuneCountInString(firstName) > maxNameLength {
		verr.add("firstName", constants.FieldErrTooLong, fmt.Sprintf("First name must be at most %d characters", maxNameLength))
	}
	if utf8.RuneCountInString(lastName) > maxNameLength {
		verr.add("lastName", constants.FieldErrTooLong, fmt.Sprintf("Last name must be at most %d characters", maxNameLength))
	}

	return verr
}

func (s *Service) storeAvatar(ctx context.Context, avatar AvatarSource) (string, error) {
	var (
		base string
		err  error
	)
	switch {
	case len(avatar.File) > 0:
		base, err = s.images.Store(ctx, avatar.File)
	case strings.TrimSpace(avatar.Base64) != "":
		base, err = s.images.StoreFromBase64(ctx, avatar.Base64)
	default:
		base, err = s.images.StoreFromURL(ctx, avatar.URL)
	}

	switch {
	case err == nil:
		return base, nil
	case errors.Is(err, images.ErrInvalidImage):
		return "", fieldError("image", constants.FieldErrInvalidImage, "Image could not be processed")
	case errors.Is(err, images.ErrSourceUnavailable):
		return "", fieldError("image", constants.FieldErrImageUnavailable, "Image could not be downloaded")
	default:
		return "", fmt.Errorf("storing avatar: %w", err)
	}
}

func (s *Service) discardAvatar(ctx context.Context, image *string) {
	if image == nil {
		return
	}
	if err := s.images.Delete(context.WithoutCancel(ctx), *image); err != nil {
		slog.Error("error removing avatar of failed registration", "component", "auth", "image", *image, "error", err)
	}
}

// cleanName strips markup; bluemonday escapes entities so they are decoded back.
func (s *Service) cleanName(name string) string {
	return strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(strings.TrimSpace(name))))
}

func duplicateEmail() *ValidationError {
	return fieldError("email", constants.FieldErrDuplicateEmail, "Email is already registered")
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
