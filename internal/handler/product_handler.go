package handler

import (
	"time"

	"storefront-service/internal/apperr"
	"storefront-service/internal/middleware"
	"storefront-service/internal/service"
	"storefront-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ProductRequest defines the structure for product creation requests.
// original_price is checked by the catalog so that it answers with its own message.
type ProductRequest struct {
	Name                string  `json:"name" validate:"required,max=100"`
	Category            string  `json:"category" validate:"max=30"`
	OriginalPrice       float64 `json:"original_price"`
	NewPrice            float64 `json:"new_price" validate:"gte=0"`
	OfferExpirationDate *string `json:"offer_expiration_date"`
}

// ProductUpdateRequest defines the structure for product updates; omitted fields are kept
type ProductUpdateRequest struct {
	Name                *string  `json:"name" validate:"omitempty,min=1,max=100"`
	Category            *string  `json:"category" validate:"omitempty,max=30"`
	OriginalPrice       *float64 `json:"original_price"`
	NewPrice            *float64 `json:"new_price" validate:"omitempty,gte=0"`
	OfferExpirationDate *string  `json:"offer_expiration_date"`
}

// CreateProduct adds a product to the caller's business
func (h *Handler) CreateProduct(c echo.Context) error {
	user, found := middleware.CurrentUser(c)
	if !found {
		return respondError(c, apperr.Unauthorized("Not authenticated"))
	}

	var req ProductRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}

	offer, err := parseDate(req.OfferExpirationDate)
	if err != nil {
		return respondError(c, err)
	}

	product, err := h.catalog.CreateProduct(c.Request().Context(), user, service.ProductInput{
		Name:                req.Name,
		Category:            req.Category,
		OriginalPrice:       req.OriginalPrice,
		NewPrice:            req.NewPrice,
		OfferExpirationDate: offer,
	})
	if err != nil {
		return respondError(c, err)
	}

	return ok(c, product)
}

// ListProducts returns all products
func (h *Handler) ListProducts(c echo.Context) error {
	products, err := h.catalog.ListProducts(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}

	logger.FromEcho(c).Debug("Products retrieved", zap.Int("count", len(products)))
	return ok(c, products)
}

// GetProduct returns a product with its business and owner details
func (h *Handler) GetProduct(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	detail, err := h.catalog.GetProduct(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}

	return ok(c, detail)
}

// UpdateProduct changes a product owned by the caller
func (h *Handler) UpdateProduct(c echo.Context) error {
	user, found := middleware.CurrentUser(c)
	if !found {
		return respondError(c, apperr.Unauthorized("Not authenticated"))
	}

	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req ProductUpdateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}

	offer, err := parseDate(req.OfferExpirationDate)
	if err != nil {
		return respondError(c, err)
	}

	product, err := h.catalog.UpdateProduct(c.Request().Context(), id, user, service.ProductUpdate{
		Name:                req.Name,
		Category:            req.Category,
		OriginalPrice:       req.OriginalPrice,
		NewPrice:            req.NewPrice,
		OfferExpirationDate: offer,
	})
	if err != nil {
		return respondError(c, err)
	}

	return ok(c, product)
}

// DeleteProduct removes a product owned by the caller
func (h *Handler) DeleteProduct(c echo.Context) error {
	user, found := middleware.CurrentUser(c)
	if !found {
		return respondError(c, apperr.Unauthorized("Not authenticated"))
	}

	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	if err := h.catalog.DeleteProduct(c.Request().Context(), id, user); err != nil {
		return respondError(c, err)
	}

	return ok(c, "Product deleted")
}

// parseDate parses an optional YYYY-MM-DD date
func parseDate(value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	date, err := time.Parse(time.DateOnly, *value)
	if err != nil {
		return nil, apperr.Validation("offer_expiration_date must be formatted as YYYY-MM-DD").Wrap(err)
	}
	return &date, nil
}
