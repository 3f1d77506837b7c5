package service

import (
	"context"
	"errors"
	"fmt"

	"storefront-service/internal/apperr"
	"storefront-service/internal/mail"
	"storefront-service/internal/model"
	"storefront-service/internal/repository"
	"storefront-service/pkg/logger"
	"storefront-service/prometheus"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// JoinDateLayout is how join dates are rendered to clients, e.g. "Mar 04 2024"
const JoinDateLayout = "Jan 02 2006"

const detailPasswordTooLong = "Password must not exceed 72 bytes"

// Notifier hands a verification message off for delivery
type Notifier interface {
	Dispatch(ctx context.Context, recipient string, msg mail.VerificationMessage)
}

// Registration holds the fields submitted to create an account
type Registration struct {
	Username string
	Email    string
	Password string
}

// Profile is the current user's account summary
type Profile struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Verified bool   `json:"verified"`
	JoinDate string `json:"join_date"`
	LogoPath string `json:"logo_path"`
}

// Accounts implements registration, verification and profile lookup
type Accounts struct {
	store    repository.Store
	auth     *Authenticator
	notifier Notifier
	links    Links
}

// NewAccounts creates the account service
func NewAccounts(store repository.Store, auth *Authenticator, notifier Notifier, links Links) *Accounts {
	return &Accounts{
		store:    store,
		auth:     auth,
		notifier: notifier,
		links:    links,
	}
}

// Register creates the user and its business in one transaction, then dispatches
// the verification email. Email delivery never fails the registration.
func (a *Accounts) Register(ctx context.Context, reg Registration) (*model.User, error) {
	log := logger.FromContext(ctx).With(zap.String("username", reg.Username))

	exists, err := a.store.UserExists(ctx, reg.Username, reg.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		log.Warn("Registration rejected, username or email taken")
		return nil, apperr.Conflict("Username or email already registered")
	}

	hash, err := HashPassword(reg.Password)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		log.Warn("Registration rejected, password too long", zap.Int("password_bytes", len(reg.Password)))
		return nil, apperr.Validation(detailPasswordTooLong).Wrap(err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username: reg.Username,
		Email:    reg.Email,
		Password: hash,
	}

	err = a.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.CreateUser(ctx, user); err != nil {
			return err
		}
		return tx.CreateBusiness(ctx, &model.Business{
			BusinessName: user.Username,
			OwnerID:      user.ID,
		})
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			log.Warn("Registration lost a race on a unique column")
			return nil, apperr.Conflict("Username or email already registered").Wrap(err)
		}
		log.Error("Failed to create user", zap.Error(err))
		return nil, err
	}

	prometheus.RegisterCounter.Inc()
	log.Info("User registered", zap.Uint("user_id", user.ID))

	token, err := a.auth.IssueVerificationToken(user)
	if err != nil {
		log.Error("Failed to issue verification token", zap.Error(err))
		prometheus.RecordEmail("failed")
		return user, nil
	}

	a.notifier.Dispatch(ctx, user.Email, mail.VerificationMessage{
		Username: user.Username,
		Link:     a.links.Verification(token),
	})

	return user, nil
}

// VerifyUser marks the token's user as verified. A token can only be used once.
func (a *Accounts) VerifyUser(ctx context.Context, token string) (*model.User, error) {
	log := logger.FromContext(ctx)

	user, err := a.auth.ResolveVerificationToken(ctx, token)
	if err != nil {
		prometheus.RecordVerification("invalid")
		return nil, err
	}

	if user.IsVerified {
		log.Warn("Verification token replayed", zap.Uint("user_id", user.ID))
		prometheus.RecordVerification("replayed")
		return nil, apperr.Unauthorized(detailInvalidVerification)
	}

	flipped, err := a.store.MarkUserVerified(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if !flipped {
		log.Warn("Verification raced with another request", zap.Uint("user_id", user.ID))
		prometheus.RecordVerification("replayed")
		return nil, apperr.Unauthorized(detailInvalidVerification)
	}

	user.IsVerified = true
	prometheus.RecordVerification("verified")
	log.Info("User verified", zap.Uint("user_id", user.ID))
	return user, nil
}

// Profile returns the user's account summary including the business logo URL
func (a *Accounts) Profile(ctx context.Context, user *model.User) (*Profile, error) {
	business, err := a.store.FindBusinessByOwner(ctx, user.ID)
	if err != nil {
		return nil, notFoundAs(err, "Business not found")
	}

	return &Profile{
		Username: user.Username,
		Email:    user.Email,
		Verified: user.IsVerified,
		JoinDate: user.JoinDate.Format(JoinDateLayout),
		LogoPath: a.links.Image(business.Logo),
	}, nil
}

// notFoundAs turns repository.ErrNotFound into a NotFound error with the given detail
func notFoundAs(err error, detail string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(detail).Wrap(err)
	}
	return err
}
