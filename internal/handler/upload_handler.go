package handler

import (
	"fmt"
	"io"
	"net/http"

	"storefront-service/internal/apperr"
	"storefront-service/internal/middleware"
	"storefront-service/prometheus"

	"github.com/labstack/echo/v4"
)

// UploadLogo stores the uploaded image as the caller's business logo
func (h *Handler) UploadLogo(c echo.Context) error {
	user, found := middleware.CurrentUser(c)
	if !found {
		return respondError(c, apperr.Unauthorized("Not authenticated"))
	}

	filename, data, err := h.readUpload(c)
	if err != nil {
		prometheus.RecordUpload("logo", "rejected")
		return respondError(c, err)
	}

	stored, err := h.catalog.UploadLogo(c.Request().Context(), user, filename, data)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":   "ok",
		"filename": h.links.Image(stored),
	})
}

// UploadProductImage stores the uploaded image for a product owned by the caller
func (h *Handler) UploadProductImage(c echo.Context) error {
	user, found := middleware.CurrentUser(c)
	if !found {
		return respondError(c, apperr.Unauthorized("Not authenticated"))
	}

	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	filename, data, err := h.readUpload(c)
	if err != nil {
		prometheus.RecordUpload("product", "rejected")
		return respondError(c, err)
	}

	stored, err := h.catalog.UploadProductImage(c.Request().Context(), user, id, filename, data)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":   "ok",
		"filename": h.links.Image(stored),
	})
}

// readUpload returns the client file name and content of the multipart "file" field
func (h *Handler) readUpload(c echo.Context) (string, []byte, error) {
	header, err := c.FormFile("file")
	if err != nil {
		return "", nil, apperr.Validation("file is required").Wrap(err)
	}
	if h.maxUploadBytes > 0 && header.Size > h.maxUploadBytes {
		return "", nil, apperr.Validation(fmt.Sprintf("file exceeds %d bytes", h.maxUploadBytes))
	}

	src, err := header.Open()
	if err != nil {
		return "", nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read upload: %w", err)
	}

	return header.Filename, data, nil
}
