package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// TokenRequest exchanges credentials for a token pair.
type TokenRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest exchanges a refresh token for a new access token.
type RefreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

// ObtainToken issues an access and refresh token.
// POST /api/auth/token
func (h *Handler) ObtainToken(c echo.Context) error {
	var req TokenRequest
	if err := bind(c, &req); err != nil {
		return WriteError(c, err)
	}
	tokens, err := h.service.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, tokens)
}

// RefreshToken issues a new access token.
// POST /api/auth/token/refresh
func (h *Handler) RefreshToken(c echo.Context) error {
	var req RefreshRequest
	if err := bind(c, &req); err != nil {
		return WriteError(c, err)
	}
	tokens, err := h.service.RefreshToken(c.Request().Context(), req.Refresh)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, tokens)
}
