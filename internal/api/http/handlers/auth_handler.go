package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/cobranza-service/internal/api/dto"
	"github.com/spec-kit/cobranza-service/internal/auth"
	"github.com/spec-kit/cobranza-service/internal/config"
	apperrors "github.com/spec-kit/cobranza-service/pkg/util/errorutil"
)

// AuthHandler issues admin access tokens.
type AuthHandler struct {
	tokens *auth.TokenManager
	cfg    config.AuthConfig
}

// NewAuthHandler constructs handler.
func NewAuthHandler(tokens *auth.TokenManager, cfg config.AuthConfig) *AuthHandler {
	return &AuthHandler{tokens: tokens, cfg: cfg}
}

// Login POST /auth/admin/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.AdminLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Usuario == "" || req.Password == "" {
		return apperrors.NewValidationError("usuario and password required", nil)
	}
	if req.Usuario != h.cfg.AdminUser {
		return apperrors.NewUnauthorized("invalid credentials")
	}
	if err := auth.ComparePassword(h.cfg.AdminPasswordHash, req.Password); err != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := h.tokens.GenerateToken(req.Usuario)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.JSON(fiber.Map{"data": dto.TokenResponse{
		AccessToken: token,
		ExpiresAt:   expiresAt,
	}})
}
