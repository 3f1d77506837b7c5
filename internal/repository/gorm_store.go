package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront-service/internal/model"
	"storefront-service/prometheus"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implements Store on top of gorm
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a store backed by the given database handle
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Transaction runs fn inside a database transaction
func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) CreateUser(ctx context.Context, user *model.User) error {
	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return translate(err, "create user")
	}
	return nil
}

func (s *GormStore) UserExists(ctx context.Context, username, email string) (bool, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var count int64
	err := s.db.WithContext(ctx).Model(&model.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return count > 0, nil
}

func (s *GormStore) FindUserByID(ctx context.Context, id uint) (*model.User, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err, "find user")
	}
	return &user, nil
}

func (s *GormStore) FindUserByUsername(ctx context.Context, username string) (*model.User, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var user model.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, translate(err, "find user")
	}
	return &user, nil
}

// MarkUserVerified flips is_verified for an unverified user and reports whether it did.
// The flip is a single conditional update so concurrent replays cannot both succeed.
func (s *GormStore) MarkUserVerified(ctx context.Context, id uint) (bool, error) {
	defer prometheus.TrackDBOperation("update")(time.Now())
	result := s.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND is_verified = ?", id, false).
		Update("is_verified", true)
	if result.Error != nil {
		return false, fmt.Errorf("verify user: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (s *GormStore) CreateBusiness(ctx context.Context, business *model.Business) error {
	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(business).Error; err != nil {
		return translate(err, "create business")
	}
	return nil
}

func (s *GormStore) FindBusinessByID(ctx context.Context, id uint) (*model.Business, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var business model.Business
	if err := s.db.WithContext(ctx).First(&business, id).Error; err != nil {
		return nil, translate(err, "find business")
	}
	return &business, nil
}

func (s *GormStore) FindBusinessByOwner(ctx context.Context, ownerID uint) (*model.Business, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var business model.Business
	if err := s.db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&business).Error; err != nil {
		return nil, translate(err, "find business by owner")
	}
	return &business, nil
}

func (s *GormStore) SaveBusiness(ctx context.Context, business *model.Business) error {
	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Save(business).Error; err != nil {
		return translate(err, "save business")
	}
	return nil
}

func (s *GormStore) CreateProduct(ctx context.Context, product *model.Product) error {
	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(product).Error; err != nil {
		return translate(err, "create product")
	}
	return nil
}

func (s *GormStore) ListProducts(ctx context.Context) ([]model.Product, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	products := []model.Product{}
	if err := s.db.WithContext(ctx).Order("id").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (s *GormStore) FindProductByID(ctx context.Context, id uint) (*model.Product, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var product model.Product
	if err := s.db.WithContext(ctx).First(&product, id).Error; err != nil {
		return nil, translate(err, "find product")
	}
	return &product, nil
}

// FindProductOwnership loads the product, then its business joined with the owning user
func (s *GormStore) FindProductOwnership(ctx context.Context, id uint) (*ProductOwnership, error) {
	product, err := s.FindProductByID(ctx, id)
	if err != nil {
		return nil, err
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var business model.Business
	if err := s.db.WithContext(ctx).Joins("Owner").First(&business, product.BusinessID).Error; err != nil {
		return nil, translate(err, "find product business")
	}
	if business.Owner == nil {
		return nil, fmt.Errorf("find product owner: %w", ErrNotFound)
	}

	owner := *business.Owner
	business.Owner = nil
	return &ProductOwnership{Product: *product, Business: business, Owner: owner}, nil
}

func (s *GormStore) SaveProduct(ctx context.Context, product *model.Product) error {
	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Save(product).Error; err != nil {
		return translate(err, "save product")
	}
	return nil
}

func (s *GormStore) DeleteProduct(ctx context.Context, id uint) error {
	defer prometheus.TrackDBOperation("delete")(time.Now())
	result := s.db.WithContext(ctx).Delete(&model.Product{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete product: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("delete product: %w", ErrNotFound)
	}
	return nil
}

func translate(err error, op string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
