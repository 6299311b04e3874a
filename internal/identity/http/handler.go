package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/restgate/internal/httputil"
	"github.com/allisson/restgate/internal/identity/http/dto"
	identityUseCase "github.com/allisson/restgate/internal/identity/usecase"
)

// IdentityHandler handles registration and login.
type IdentityHandler struct {
	userUseCase identityUseCase.UserUseCase
	logger      *slog.Logger
}

// NewIdentityHandler creates a new identity handler with required dependencies.
func NewIdentityHandler(userUseCase identityUseCase.UserUseCase, logger *slog.Logger) *IdentityHandler {
	return &IdentityHandler{
		userUseCase: userUseCase,
		logger:      logger,
	}
}

// RegisterHandler creates a user and returns an access token.
// POST /register and POST /signup. Returns 201 Created.
func (h *IdentityHandler) RegisterHandler(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	result, err := h.userUseCase.Register(c.Request.Context(), req.ToInput())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.logger.Info("user registered", slog.String("user_id", result.User.ID))
	c.JSON(http.StatusCreated, dto.MapAuthResultToResponse(result))
}

// LoginHandler verifies credentials and returns an access token.
// POST /login and POST /signin. Returns 200 OK.
func (h *IdentityHandler) LoginHandler(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	result, err := h.userUseCase.Login(c.Request.Context(), req.ToInput())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapAuthResultToResponse(result))
}
