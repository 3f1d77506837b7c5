package repository

import (
	"context"
	"errors"

	"storefront-service/internal/model"
)

var (
	// ErrNotFound is returned when a looked-up record does not exist
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint would be violated
	ErrDuplicate = errors.New("duplicate record")
)

// ProductOwnership is a product together with the business and user that own it
type ProductOwnership struct {
	Product  model.Product
	Business model.Business
	Owner    model.User
}

// Store is the persistence boundary for users, businesses and products
type Store interface {
	// Transaction runs fn against a store bound to a single database transaction.
	// The transaction is rolled back when fn returns an error.
	Transaction(ctx context.Context, fn func(tx Store) error) error

	CreateUser(ctx context.Context, user *model.User) error
	UserExists(ctx context.Context, username, email string) (bool, error)
	FindUserByID(ctx context.Context, id uint) (*model.User, error)
	FindUserByUsername(ctx context.Context, username string) (*model.User, error)
	MarkUserVerified(ctx context.Context, id uint) (bool, error)

	CreateBusiness(ctx context.Context, business *model.Business) error
	FindBusinessByID(ctx context.Context, id uint) (*model.Business, error)
	FindBusinessByOwner(ctx context.Context, ownerID uint) (*model.Business, error)
	SaveBusiness(ctx context.Context, business *model.Business) error

	CreateProduct(ctx context.Context, product *model.Product) error
	ListProducts(ctx context.Context) ([]model.Product, error)
	FindProductByID(ctx context.Context, id uint) (*model.Product, error)
	FindProductOwnership(ctx context.Context, id uint) (*ProductOwnership, error)
	SaveProduct(ctx context.Context, product *model.Product) error
	DeleteProduct(ctx context.Context, id uint) error
}
