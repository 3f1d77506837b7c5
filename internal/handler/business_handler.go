package handler

import (
	"storefront-service/internal/apperr"
	"storefront-service/internal/middleware"
	"storefront-service/internal/service"

	"github.com/labstack/echo/v4"
)

// BusinessRequest defines the structure for business updates; omitted fields are kept
type BusinessRequest struct {
	BusinessName        *string `json:"business_name" validate:"omitempty,min=1,max=20"`
	City                *string `json:"city" validate:"omitempty,max=100"`
	Region              *string `json:"region" validate:"omitempty,max=100"`
	BusinessDescription *string `json:"business_description"`
}

// UpdateBusiness changes the caller's business
func (h *Handler) UpdateBusiness(c echo.Context) error {
	user, found := middleware.CurrentUser(c)
	if !found {
		return respondError(c, apperr.Unauthorized("Not authenticated"))
	}

	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req BusinessRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}

	business, err := h.catalog.UpdateBusiness(c.Request().Context(), id, user, service.BusinessUpdate{
		BusinessName:        req.BusinessName,
		City:                req.City,
		Region:              req.Region,
		BusinessDescription: req.BusinessDescription,
	})
	if err != nil {
		return respondError(c, err)
	}

	return ok(c, business)
}
