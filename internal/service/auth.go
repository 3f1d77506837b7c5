// Package service holds the account, credential and catalog operations behind the HTTP handlers.
package service

import (
	"context"
	"errors"
	"time"

	"storefront-service/internal/apperr"
	"storefront-service/internal/model"
	"storefront-service/internal/repository"
	"storefront-service/pkg/config"
	"storefront-service/pkg/jwtutil"
	"storefront-service/pkg/logger"
	"storefront-service/prometheus"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	detailInvalidCredentials  = "Invalid username or password"
	detailInvalidVerification = "Invalid token or expired token"
)

// Authenticator issues and resolves bearer and verification tokens
type Authenticator struct {
	store           repository.Store
	tokens          *jwtutil.JWTUtil
	accessTTL       time.Duration
	verificationTTL time.Duration
}

// NewAuthenticator creates an authenticator signing tokens with the configured key
func NewAuthenticator(store repository.Store, cfg config.JWTConfig) *Authenticator {
	return &Authenticator{
		store:           store,
		tokens:          jwtutil.NewJWTUtil(&jwtutil.JWTConfig{SigningKey: cfg.SigningKey}),
		accessTTL:       cfg.AccessTokenExpiration,
		verificationTTL: cfg.VerificationTokenExpiration,
	}
}

// IssueToken checks the credentials and returns a bearer token for the user
func (a *Authenticator) IssueToken(ctx context.Context, username, password string) (string, error) {
	log := logger.FromContext(ctx)

	user, err := a.store.FindUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Warn("Token requested for unknown user", zap.String("username", username))
			prometheus.RecordLogin("failed")
			return "", apperr.Unauthorized(detailInvalidCredentials)
		}
		return "", err
	}

	if !VerifyPassword(user.Password, password) {
		log.Warn("Token requested with wrong password", zap.String("username", username))
		prometheus.RecordLogin("failed")
		return "", apperr.Unauthorized(detailInvalidCredentials)
	}

	token, err := a.tokens.GenerateToken(user.ID, user.Username, jwtutil.PurposeAccess, a.accessTTL)
	if err != nil {
		return "", err
	}

	prometheus.RecordLogin("success")
	return token, nil
}

// ResolveToken returns the user a bearer token was issued to
func (a *Authenticator) ResolveToken(ctx context.Context, token string) (*model.User, error) {
	return a.resolve(ctx, token, jwtutil.PurposeAccess, detailInvalidCredentials)
}

// IssueVerificationToken returns a token that can only be used to verify the user's email
func (a *Authenticator) IssueVerificationToken(user *model.User) (string, error) {
	return a.tokens.GenerateToken(user.ID, user.Username, jwtutil.PurposeVerification, a.verificationTTL)
}

// ResolveVerificationToken returns the user a verification token was issued to
func (a *Authenticator) ResolveVerificationToken(ctx context.Context, token string) (*model.User, error) {
	return a.resolve(ctx, token, jwtutil.PurposeVerification, detailInvalidVerification)
}

func (a *Authenticator) resolve(ctx context.Context, token, purpose, detail string) (*model.User, error) {
	log := logger.FromContext(ctx)

	claims, err := a.tokens.ValidateToken(token, purpose)
	if err != nil {
		reason := tokenErrorType(err)
		log.Warn("Token rejected", zap.String("purpose", purpose), zap.String("reason", reason))
		prometheus.RecordAuthError(reason)
		return nil, apperr.Unauthorized(detail).Wrap(err)
	}

	user, err := a.store.FindUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Warn("Token references missing user", zap.Uint("user_id", claims.UserID))
			prometheus.RecordAuthError("unknown_user")
			return nil, apperr.Unauthorized(detail).Wrap(err)
		}
		return nil, err
	}

	return user, nil
}

func tokenErrorType(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired_token"
	case errors.Is(err, jwtutil.ErrWrongPurpose):
		return "wrong_purpose"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed_token"
	default:
		return "invalid_token"
	}
}
