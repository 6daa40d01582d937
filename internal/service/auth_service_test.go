package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutoring-api/internal/models"
	appErrors "github.com/noah-isme/tutoring-api/pkg/errors"
)

func newAuth() *AuthService {
	return NewAuthService(nil, AuthConfig{
		AccessTokenSecret: "secret",
		AccessTokenExpiry: time.Minute,
		Issuer:            "tutoring-identity",
		Audience:          []string{"tutoring-api"},
	})
}

func TestValidateTokenRoundTrip(t *testing.T) {
	auth := newAuth()
	token, expires, err := auth.IssueToken("teacher-1", models.RoleTeacher, "ana@example.com")
	require.NoError(t, err)
	assert.True(t, expires.After(time.Now()))

	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "teacher-1", claims.UserID)
	assert.Equal(t, models.RoleTeacher, claims.Role)
	assert.False(t, claims.IsAdmin())
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	other := NewAuthService(nil, AuthConfig{AccessTokenSecret: "other", Issuer: "tutoring-identity", Audience: []string{"tutoring-api"}})
	token, _, err := other.IssueToken("teacher-1", models.RoleTeacher, "")
	require.NoError(t, err)

	_, err = newAuth().ValidateToken(token)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	claims := &models.JWTClaims{
		UserID: "admin-1",
		Role:   models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "tutoring-identity",
			Audience:  jwt.ClaimStrings{"tutoring-api"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = newAuth().ValidateToken(token)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestValidateTokenRequiresKnownRole(t *testing.T) {
	token, _, err := newAuth().IssueToken("user-1", models.UserRole("GUEST"), "")
	require.NoError(t, err)
	_, err = newAuth().ValidateToken(token)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}
