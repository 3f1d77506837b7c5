package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"storefront-service/internal/apperr"
	"storefront-service/internal/model"
	"storefront-service/pkg/logger"
	"storefront-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const userKey = "user"

// TokenResolver resolves a bearer token to the user it was issued to
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (*model.User, error)
}

// BearerAuth rejects requests without a valid bearer token and stores the
// resolved user in the context for CurrentUser
func BearerAuth(resolver TokenResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromEcho(c)

			token, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				log.Warn("Missing bearer token")
				prometheus.RecordAuthError("missing_token")
				return unauthorized(c, "Not authenticated")
			}

			user, err := resolver.ResolveToken(c.Request().Context(), token)
			if err != nil {
				var appErr *apperr.Error
				if errors.As(err, &appErr) && appErr.Kind == apperr.KindUnauthorized {
					return unauthorized(c, appErr.Detail)
				}
				log.Error("Failed to resolve bearer token", zap.Error(err))
				return c.JSON(http.StatusInternalServerError, echo.Map{
					"status": "error",
					"detail": "Internal server error",
				})
			}

			c.Set(userKey, user)
			logger.Attach(c, log.With(zap.Uint("user_id", user.ID)))

			return next(c)
		}
	}
}

// CurrentUser returns the user resolved by BearerAuth
func CurrentUser(c echo.Context) (*model.User, bool) {
	user, ok := c.Get(userKey).(*model.User)
	return user, ok && user != nil
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(c echo.Context, detail string) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	return c.JSON(http.StatusUnauthorized, echo.Map{
		"status": "error",
		"detail": detail,
	})
}
