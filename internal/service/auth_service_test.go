package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/acadgrid/timetable-api/internal/dto"
	"github.com/acadgrid/timetable-api/internal/models"
	"github.com/acadgrid/timetable-api/pkg/config"
	appErrors "github.com/acadgrid/timetable-api/pkg/errors"
)

type stubUserGetter struct {
	user *models.User
	err  error
}

func (s *stubUserGetter) GetByEmail(_ context.Context, _ string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.user, nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret", Expiration: time.Hour, Issuer: "timetable-api"}
}

func activeUser(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{
		ID:           "usr-1",
		Email:        "scheduler@college.edu",
		PasswordHash: string(hash),
		FullName:     "Asha Menon",
		Role:         models.RoleScheduler,
		Active:       true,
	}
}

func TestLoginSuccess(t *testing.T) {
	svc := NewAuthService(&stubUserGetter{user: activeUser(t, "correct-horse")}, nil, nil, testJWTConfig())

	resp, err := svc.Login(context.Background(), dto.LoginRequest{
		Email:    "scheduler@college.edu",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, models.RoleScheduler, resp.User.Role)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "usr-1", claims.UserID)
	assert.Equal(t, models.RoleScheduler, claims.Role)
	assert.Equal(t, "timetable-api", claims.Issuer)
}

func TestLoginWrongPassword(t *testing.T) {
	svc := NewAuthService(&stubUserGetter{user: activeUser(t, "correct-horse")}, nil, nil, testJWTConfig())

	_, err := svc.Login(context.Background(), dto.LoginRequest{
		Email:    "scheduler@college.edu",
		Password: "battery-staple",
	})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestLoginUnknownUser(t *testing.T) {
	svc := NewAuthService(&stubUserGetter{err: appErrors.ErrNotFound}, nil, nil, testJWTConfig())

	_, err := svc.Login(context.Background(), dto.LoginRequest{
		Email:    "ghost@college.edu",
		Password: "whatever-12",
	})
	// Unknown accounts and bad passwords are indistinguishable.
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestLoginInactiveAccount(t *testing.T) {
	user := activeUser(t, "correct-horse")
	user.Active = false
	svc := NewAuthService(&stubUserGetter{user: user}, nil, nil, testJWTConfig())

	_, err := svc.Login(context.Background(), dto.LoginRequest{
		Email:    "scheduler@college.edu",
		Password: "correct-horse",
	})
	assert.ErrorIs(t, err, appErrors.ErrInactiveAccount)
}

func TestLoginValidation(t *testing.T) {
	svc := NewAuthService(&stubUserGetter{}, nil, nil, testJWTConfig())

	_, err := svc.Login(context.Background(), dto.LoginRequest{Email: "not-an-email", Password: "short"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenRejectsTampered(t *testing.T) {
	svc := NewAuthService(&stubUserGetter{user: activeUser(t, "correct-horse")}, nil, nil, testJWTConfig())

	resp, err := svc.Login(context.Background(), dto.LoginRequest{
		Email:    "scheduler@college.edu",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	other := NewAuthService(nil, nil, nil, config.JWTConfig{Secret: "different", Expiration: time.Hour})
	_, err = other.ValidateToken(resp.AccessToken)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
