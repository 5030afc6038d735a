package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/acadgrid/timetable-api/internal/dto"
	appErrors "github.com/acadgrid/timetable-api/pkg/errors"
	"github.com/acadgrid/timetable-api/pkg/response"
)

// Authenticator is the auth service surface the handler depends on.
type Authenticator interface {
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
}

// AuthHandler exposes the authentication endpoints.
type AuthHandler struct {
	service Authenticator
	logger  *zap.Logger
}

func NewAuthHandler(service Authenticator, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{service: service, logger: logger}
}

// Login godoc
// @Summary      Authenticate
// @Description  Exchanges credentials for a bearer token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body dto.LoginRequest true "Credentials"
// @Success      200 {object} response.Envelope{data=dto.LoginResponse}
// @Failure      400 {object} response.Envelope
// @Failure      401 {object} response.Envelope
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	resp, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp)
}
