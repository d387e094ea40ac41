package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"myapi/internal/models"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func strPtr(s string) *string { return &s }

func TestIssueAndValidate(t *testing.T) {
	svc := NewJWTService(testSecret, 7*24*time.Hour)
	user := &models.User{
		ID:        1,
		Email:     "ada@example.com",
		FirstName: strPtr("Ada"),
		LastName:  strPtr("Lovelace"),
		Image:     strPtr("abc.webp"),
		Roles:     []string{models.RoleAdmin, models.RoleUser},
	}

	token, err := svc.Issue(user)
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", claims.Email)
	require.Equal(t, "Lovelace Ada", claims.Name)
	require.Equal(t, "abc.webp", claims.Image)
	require.Equal(t, []string{models.RoleAdmin, models.RoleUser}, claims.Roles)
	require.True(t, claims.HasRole(models.RoleAdmin))
	require.WithinDuration(t, time.Now().Add(7*24*time.Hour), claims.ExpiresAt.Time, time.Minute)
	require.WithinDuration(t, time.Now(), claims.IssuedAt.Time, time.Minute)
}

func TestIssueWithoutRolesEncodesEmptyArray(t *testing.T) {
	svc := NewJWTService(testSecret, time.Hour)

	token, err := svc.Issue(&models.User{Email: "x@example.com"})
	require.NoError(t, err)

	raw := jwt.MapClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(token, raw)
	require.NoError(t, err)
	require.Equal(t, []any{}, raw["roles"])

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	require.NotNil(t, claims.Roles)
	require.Empty(t, claims.Roles)
	require.False(t, claims.HasRole(models.RoleUser))
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	svc := NewJWTService(testSecret, time.Hour)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := svc.Issue(&models.User{Email: "x@example.com"})
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.Validate(token)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestValidateRejectsOtherAlgorithms(t *testing.T) {
	svc := NewJWTService(testSecret, time.Hour)
	claims := Claims{
		Email: "x@example.com",
		Roles: []string{models.RoleAdmin},
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = svc.Validate(hs512)
	require.Error(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.Validate(none)
	require.Error(t, err)
}

func TestValidateRejectsWrongKeyAndGarbage(t *testing.T) {
	issuer := NewJWTService("ffffffffffffffffffffffffffffffff", time.Hour)
	token, err := issuer.Issue(&models.User{Email: "x@example.com"})
	require.NoError(t, err)

	svc := NewJWTService(testSecret, time.Hour)
	_, err = svc.Validate(token)
	require.Error(t, err)

	_, err = svc.Validate("not.a.token")
	require.Error(t, err)
}

func TestValidateRequiresExpiry(t *testing.T) {
	svc := NewJWTService(testSecret, time.Hour)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Email: "x@example.com"}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = svc.Validate(token)
	require.Error(t, err)
}
