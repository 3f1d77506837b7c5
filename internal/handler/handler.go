// Package handler exposes the storefront over HTTP.
package handler

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"strings"

	"storefront-service/internal/apperr"
	"storefront-service/internal/middleware"
	"storefront-service/internal/service"
	"storefront-service/pkg/logger"
	"storefront-service/prometheus"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

// Dependencies are the services the handlers are built on
type Dependencies struct {
	Auth           *service.Authenticator
	Accounts       *service.Accounts
	Catalog        *service.Catalog
	Links          service.Links
	PingDB         func() error
	StaticDir      string
	MaxUploadBytes int64
}

// Handler serves the storefront API
type Handler struct {
	auth           *service.Authenticator
	accounts       *service.Accounts
	catalog        *service.Catalog
	links          service.Links
	pingDB         func() error
	staticDir      string
	maxUploadBytes int64
}

// New creates the handler set
func New(deps Dependencies) *Handler {
	return &Handler{
		auth:           deps.Auth,
		accounts:       deps.Accounts,
		catalog:        deps.Catalog,
		links:          deps.Links,
		pingDB:         deps.PingDB,
		staticDir:      deps.StaticDir,
		maxUploadBytes: deps.MaxUploadBytes,
	}
}

// RegisterRoutes installs the validator, the template renderer and all routes on e
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.Validator = NewValidator()
	e.Renderer = NewRenderer()

	// Public routes
	e.GET("/", h.Hello)
	e.GET("/health", h.HealthCheck)
	e.GET("/metrics", echo.WrapHandler(prometheus.GetPrometheusHandler()))
	e.Static("/static", h.staticDir)

	e.POST("/token", h.IssueToken)
	e.POST("/registration", h.Register)
	e.GET("/verification", h.Verify)
	e.GET("/products", h.ListProducts)
	e.GET("/products/:id", h.GetProduct)

	// Routes that require a bearer token
	auth := middleware.BearerAuth(h.auth)
	e.POST("/user/me", h.Me, auth)
	e.POST("/uploadfile/profile", h.UploadLogo, auth)
	e.POST("/uploadfile/product/:id", h.UploadProductImage, auth)
	e.POST("/products", h.CreateProduct, auth)
	e.PUT("/products/:id", h.UpdateProduct, auth)
	e.DELETE("/products/:id", h.DeleteProduct, auth)
	e.PUT("/business/:id", h.UpdateBusiness, auth)
}

// RequestValidator validates bound request bodies using their validate tags
type RequestValidator struct {
	validate *validator.Validate
}

// NewValidator creates the echo validator
func NewValidator() *RequestValidator {
	return &RequestValidator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate implements echo.Validator
func (v *RequestValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// TemplateRenderer renders the embedded HTML pages
type TemplateRenderer struct {
	templates *template.Template
}

// NewRenderer parses the embedded templates
func NewRenderer() *TemplateRenderer {
	return &TemplateRenderer{
		templates: template.Must(template.ParseFS(templateFS, "templates/*.html")),
	}
}

// Render implements echo.Renderer
func (r *TemplateRenderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

// bindAndValidate binds the request body into req and runs its validate tags
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return apperr.Validation("Invalid request data").Wrap(err)
	}
	if err := c.Validate(req); err != nil {
		return apperr.Validation(validationDetail(err)).Wrap(err)
	}
	return nil
}

func validationDetail(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "Invalid request data"
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return "Invalid request data: " + strings.Join(msgs, ", ")
}

// pathID parses the :id path parameter
func pathID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation("Invalid id")
	}
	return uint(id), nil
}

// ok writes the {"status": "Ok", "data": ...} envelope
func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, echo.Map{
		"status": "Ok",
		"data":   data,
	})
}

// respondError maps err to its status code and writes {"status": "error", "detail": ...}
func respondError(c echo.Context, err error) error {
	log := logger.FromEcho(c)

	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		log.Error("Request failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"status": "error",
			"detail": "Internal server error",
		})
	}

	log.Warn("Request rejected",
		zap.Int("status", appErr.Status()),
		zap.String("detail", appErr.Detail),
		zap.Error(appErr.Err))

	if appErr.Kind == apperr.KindUnauthorized {
		c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	}
	return c.JSON(appErr.Status(), echo.Map{
		"status": "error",
		"detail": appErr.Detail,
	})
}
