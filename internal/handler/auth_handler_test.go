package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acadgrid/timetable-api/internal/dto"
	"github.com/acadgrid/timetable-api/internal/models"
	appErrors "github.com/acadgrid/timetable-api/pkg/errors"
)

type stubAuthenticator struct {
	resp *dto.LoginResponse
	err  error
}

func (s *stubAuthenticator) Login(_ context.Context, _ dto.LoginRequest) (*dto.LoginResponse, error) {
	return s.resp, s.err
}

func TestLoginHandlerSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewAuthHandler(&stubAuthenticator{resp: &dto.LoginResponse{
		AccessToken: "token-abc",
		TokenType:   "Bearer",
		User:        dto.UserProfileData{ID: "usr-1", Role: models.RoleScheduler},
	}}, nil)

	r := gin.New()
	r.POST("/auth/login", h.Login)

	payload, _ := json.Marshal(dto.LoginRequest{Email: "scheduler@college.edu", Password: "correct-horse"})
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(payload))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Data dto.LoginResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "token-abc", envelope.Data.AccessToken)
	assert.Equal(t, models.RoleScheduler, envelope.Data.User.Role)
}

func TestLoginHandlerInvalidCredentials(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewAuthHandler(&stubAuthenticator{err: appErrors.ErrInvalidCredentials}, nil)

	r := gin.New()
	r.POST("/auth/login", h.Login)

	payload, _ := json.Marshal(dto.LoginRequest{Email: "scheduler@college.edu", Password: "wrong-pass-1"})
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(payload))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
