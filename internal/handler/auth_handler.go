package handler

import (
	"fmt"
	"net/http"

	"storefront-service/internal/apperr"
	"storefront-service/internal/service"
	"storefront-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RegistrationRequest defines the structure for account registration
type RegistrationRequest struct {
	Username string `json:"username" validate:"required,max=20"`
	Email    string `json:"email" validate:"required,email,max=200"`
	Password string `json:"password" validate:"required,max=72"`
}

// IssueToken exchanges form credentials for a bearer token
func (h *Handler) IssueToken(c echo.Context) error {
	username := c.FormValue("username")
	password := c.FormValue("password")
	if username == "" || password == "" {
		return respondError(c, apperr.Unauthorized("Invalid username or password"))
	}

	token, err := h.auth.IssueToken(c.Request().Context(), username, password)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"access_token": token,
		"token_type":   "bearer",
	})
}

// Register creates an account and its business and sends the verification email
func (h *Handler) Register(c echo.Context) error {
	log := logger.FromEcho(c)

	var req RegistrationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}

	log.Info("Registration request", zap.String("username", req.Username))

	user, err := h.accounts.Register(c.Request().Context(), service.Registration{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status": "ok",
		"data": fmt.Sprintf("hello %s, thanks for choosing our services. "+
			"Please check your email inbox and click on the link to confirm your registration.", user.Username),
	})
}

// Verify consumes a verification token and renders the confirmation page
func (h *Handler) Verify(c echo.Context) error {
	user, err := h.accounts.VerifyUser(c.Request().Context(), c.QueryParam("token"))
	if err != nil {
		return respondError(c, err)
	}

	return c.Render(http.StatusOK, "verification.html", map[string]string{
		"Username": user.Username,
	})
}
