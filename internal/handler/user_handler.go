package handler

import (
	"net/http"

	"storefront-service/internal/apperr"
	"storefront-service/internal/middleware"
	"storefront-service/internal/service"

	"github.com/labstack/echo/v4"
)

type profileResponse struct {
	Status string `json:"status"`
	*service.Profile
}

// Me returns the caller's profile and business logo URL
func (h *Handler) Me(c echo.Context) error {
	user, found := middleware.CurrentUser(c)
	if !found {
		return respondError(c, apperr.Unauthorized("Not authenticated"))
	}

	profile, err := h.accounts.Profile(c.Request().Context(), user)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, profileResponse{Status: "Ok", Profile: profile})
}
