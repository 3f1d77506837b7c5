package service

import (
	"context"
	"errors"
	"time"

	"storefront-service/internal/apperr"
	"storefront-service/internal/model"
	"storefront-service/internal/repository"
	"storefront-service/internal/upload"
	"storefront-service/pkg/logger"
	"storefront-service/prometheus"

	"go.uber.org/zap"
)

const (
	detailNotOwner           = "Not authenticated to perform this action"
	detailNotOwnerOrBadInput = "Not authenticated to perform this action or invalid user input"
	detailBadProduct         = "Error occurred while processing your request"
	detailProductNotFound    = "Product not found"
	detailBusinessNotFound   = "Business not found"
)

// ImageStore persists uploaded images and returns the stored file name
type ImageStore interface {
	Ingest(data []byte, ext string) (string, error)
}

// ProductInput holds the fields of a new product
type ProductInput struct {
	Name                string
	Category            string
	OriginalPrice       float64
	NewPrice            float64
	OfferExpirationDate *time.Time
}

// ProductUpdate holds the fields of a product update. Nil fields keep their stored value.
type ProductUpdate struct {
	Name                *string
	Category            *string
	OriginalPrice       *float64
	NewPrice            *float64
	OfferExpirationDate *time.Time
}

// BusinessUpdate holds the fields of a business update. Nil fields keep their stored value.
type BusinessUpdate struct {
	BusinessName        *string
	City                *string
	Region              *string
	BusinessDescription *string
}

// BusinessDetail is the business and owner information shown with a product
type BusinessDetail struct {
	Name        string  `json:"name"`
	City        string  `json:"city"`
	Region      string  `json:"region"`
	Description *string `json:"description"`
	Logo        string  `json:"logo"`
	OwnerID     uint    `json:"owner_id"`
	Email       string  `json:"email"`
	JoinDate    string  `json:"join_date"`
}

// ProductDetail is a product together with its business details
type ProductDetail struct {
	Product  model.Product  `json:"product_details"`
	Business BusinessDetail `json:"business_details"`
}

// Catalog implements product and business operations with ownership checks
type Catalog struct {
	store  repository.Store
	images ImageStore
	now    func() time.Time
}

// NewCatalog creates the catalog service
func NewCatalog(store repository.Store, images ImageStore) *Catalog {
	return &Catalog{
		store:  store,
		images: images,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateProduct adds a product to the user's business
func (c *Catalog) CreateProduct(ctx context.Context, user *model.User, in ProductInput) (*model.Product, error) {
	log := logger.FromContext(ctx)

	if in.OriginalPrice <= 0 {
		log.Warn("Product rejected, original price must be positive", zap.Float64("original_price", in.OriginalPrice))
		return nil, apperr.Validation(detailBadProduct)
	}

	business, err := c.store.FindBusinessByOwner(ctx, user.ID)
	if err != nil {
		return nil, notFoundAs(err, detailBusinessNotFound)
	}

	product := &model.Product{
		Name:       in.Name,
		Category:   in.Category,
		BusinessID: business.ID,
	}
	product.ApplyPricing(in.OriginalPrice, in.NewPrice)
	if in.OfferExpirationDate != nil {
		product.OfferExpirationDate = *in.OfferExpirationDate
	}

	if err := c.store.CreateProduct(ctx, product); err != nil {
		log.Error("Failed to create product", zap.Error(err))
		return nil, err
	}

	prometheus.RecordProductOperation("create")
	log.Info("Product created", zap.Uint("product_id", product.ID), zap.Uint("business_id", business.ID))
	return product, nil
}

// ListProducts returns every product. The result is never nil.
func (c *Catalog) ListProducts(ctx context.Context) ([]model.Product, error) {
	products, err := c.store.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []model.Product{}
	}

	prometheus.RecordProductOperation("list")
	return products, nil
}

// GetProduct returns the product with its business and owner details
func (c *Catalog) GetProduct(ctx context.Context, id uint) (*ProductDetail, error) {
	ownership, err := c.store.FindProductOwnership(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, detailProductNotFound)
	}

	prometheus.RecordProductOperation("get")
	return &ProductDetail{
		Product: ownership.Product,
		Business: BusinessDetail{
			Name:        ownership.Business.BusinessName,
			City:        ownership.Business.City,
			Region:      ownership.Business.Region,
			Description: ownership.Business.BusinessDescription,
			Logo:        ownership.Business.Logo,
			OwnerID:     ownership.Owner.ID,
			Email:       ownership.Owner.Email,
			JoinDate:    ownership.Owner.JoinDate.Format(JoinDateLayout),
		},
	}, nil
}

// UpdateProduct changes a product owned by the user, recomputes the discount and
// stamps the publish time
func (c *Catalog) UpdateProduct(ctx context.Context, id uint, user *model.User, upd ProductUpdate) (*model.Product, error) {
	log := logger.FromContext(ctx).With(zap.Uint("product_id", id))

	ownership, err := c.store.FindProductOwnership(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, detailProductNotFound)
	}

	product := ownership.Product
	originalPrice := product.OriginalPrice
	if upd.OriginalPrice != nil {
		originalPrice = *upd.OriginalPrice
	}
	newPrice := product.NewPrice
	if upd.NewPrice != nil {
		newPrice = *upd.NewPrice
	}

	if !ownership.Business.OwnedBy(user) || originalPrice == 0 {
		log.Warn("Product update rejected", zap.Uint("user_id", user.ID), zap.Float64("original_price", originalPrice))
		prometheus.RecordAuthError("not_owner")
		return nil, apperr.Unauthorized(detailNotOwnerOrBadInput)
	}

	if upd.Name != nil {
		product.Name = *upd.Name
	}
	if upd.Category != nil {
		product.Category = *upd.Category
	}
	if upd.OfferExpirationDate != nil {
		product.OfferExpirationDate = *upd.OfferExpirationDate
	}
	product.ApplyPricing(originalPrice, newPrice)
	product.DatePublished = c.now()

	if err := c.store.SaveProduct(ctx, &product); err != nil {
		log.Error("Failed to update product", zap.Error(err))
		return nil, err
	}

	prometheus.RecordProductOperation("update")
	log.Info("Product updated")
	return &product, nil
}

// DeleteProduct removes a product owned by the user
func (c *Catalog) DeleteProduct(ctx context.Context, id uint, user *model.User) error {
	log := logger.FromContext(ctx).With(zap.Uint("product_id", id))

	ownership, err := c.store.FindProductOwnership(ctx, id)
	if err != nil {
		return notFoundAs(err, detailProductNotFound)
	}

	if !ownership.Business.OwnedBy(user) {
		log.Warn("Product delete rejected", zap.Uint("user_id", user.ID))
		prometheus.RecordAuthError("not_owner")
		return apperr.Unauthorized(detailNotOwner)
	}

	if err := c.store.DeleteProduct(ctx, id); err != nil {
		return notFoundAs(err, detailProductNotFound)
	}

	prometheus.RecordProductOperation("delete")
	log.Info("Product deleted")
	return nil
}

// UpdateBusiness changes a business owned by the user
func (c *Catalog) UpdateBusiness(ctx context.Context, id uint, user *model.User, upd BusinessUpdate) (*model.Business, error) {
	log := logger.FromContext(ctx).With(zap.Uint("business_id", id))

	business, err := c.store.FindBusinessByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, detailBusinessNotFound)
	}

	if !business.OwnedBy(user) {
		log.Warn("Business update rejected", zap.Uint("user_id", user.ID))
		prometheus.RecordAuthError("not_owner")
		return nil, apperr.Unauthorized(detailNotOwner)
	}

	if upd.BusinessName != nil {
		business.BusinessName = *upd.BusinessName
	}
	if upd.City != nil {
		business.City = *upd.City
	}
	if upd.Region != nil {
		business.Region = *upd.Region
	}
	if upd.BusinessDescription != nil {
		business.BusinessDescription = upd.BusinessDescription
	}

	if err := c.store.SaveBusiness(ctx, business); err != nil {
		log.Error("Failed to update business", zap.Error(err))
		return nil, err
	}

	prometheus.RecordBusinessOperation("update")
	log.Info("Business updated")
	return business, nil
}

// AttachLogo sets the business logo to an already stored image
func (c *Catalog) AttachLogo(ctx context.Context, business *model.Business, user *model.User, filename string) error {
	if !business.OwnedBy(user) {
		prometheus.RecordAuthError("not_owner")
		return apperr.Unauthorized(detailNotOwner)
	}

	business.Logo = filename
	if err := c.store.SaveBusiness(ctx, business); err != nil {
		return err
	}

	prometheus.RecordBusinessOperation("logo")
	return nil
}

// AttachProductImage sets the product image to an already stored image
func (c *Catalog) AttachProductImage(ctx context.Context, ownership *repository.ProductOwnership, user *model.User, filename string) error {
	if !ownership.Business.OwnedBy(user) {
		prometheus.RecordAuthError("not_owner")
		return apperr.Unauthorized(detailNotOwner)
	}

	ownership.Product.ProductImage = filename
	if err := c.store.SaveProduct(ctx, &ownership.Product); err != nil {
		return err
	}

	prometheus.RecordProductOperation("image")
	return nil
}

// UploadLogo stores the uploaded image as the logo of the user's business
func (c *Catalog) UploadLogo(ctx context.Context, user *model.User, filename string, data []byte) (string, error) {
	log := logger.FromContext(ctx)

	ext := upload.ExtensionOf(filename)
	if !upload.Allowed(ext) {
		log.Warn("Logo upload rejected", zap.String("extension", ext))
		prometheus.RecordUpload("logo", "rejected")
		return "", apperr.Validation(upload.ErrExtensionNotAllowed.Error())
	}

	business, err := c.store.FindBusinessByOwner(ctx, user.ID)
	if err != nil {
		return "", notFoundAs(err, detailBusinessNotFound)
	}
	if !business.OwnedBy(user) {
		prometheus.RecordAuthError("not_owner")
		return "", apperr.Unauthorized(detailNotOwner)
	}

	stored, err := c.ingest(ctx, "logo", data, ext)
	if err != nil {
		return "", err
	}

	if err := c.AttachLogo(ctx, business, user, stored); err != nil {
		return "", err
	}

	prometheus.RecordUpload("logo", "stored")
	log.Info("Logo uploaded", zap.Uint("business_id", business.ID), zap.String("filename", stored))
	return stored, nil
}

// UploadProductImage stores the uploaded image as the image of a product owned by the user
func (c *Catalog) UploadProductImage(ctx context.Context, user *model.User, productID uint, filename string, data []byte) (string, error) {
	log := logger.FromContext(ctx).With(zap.Uint("product_id", productID))

	ext := upload.ExtensionOf(filename)
	if !upload.Allowed(ext) {
		log.Warn("Product image upload rejected", zap.String("extension", ext))
		prometheus.RecordUpload("product", "rejected")
		return "", apperr.Validation(upload.ErrExtensionNotAllowed.Error())
	}

	ownership, err := c.store.FindProductOwnership(ctx, productID)
	if err != nil {
		return "", notFoundAs(err, detailProductNotFound)
	}
	if !ownership.Business.OwnedBy(user) {
		log.Warn("Product image upload by non-owner", zap.Uint("user_id", user.ID))
		prometheus.RecordAuthError("not_owner")
		return "", apperr.Unauthorized(detailNotOwner)
	}

	stored, err := c.ingest(ctx, "product", data, ext)
	if err != nil {
		return "", err
	}

	if err := c.AttachProductImage(ctx, ownership, user, stored); err != nil {
		return "", err
	}

	prometheus.RecordUpload("product", "stored")
	log.Info("Product image uploaded", zap.String("filename", stored))
	return stored, nil
}

func (c *Catalog) ingest(ctx context.Context, target string, data []byte, ext string) (string, error) {
	stored, err := c.images.Ingest(data, ext)
	if err == nil {
		return stored, nil
	}

	prometheus.RecordUpload(target, "rejected")
	switch {
	case errors.Is(err, upload.ErrExtensionNotAllowed):
		return "", apperr.Validation(upload.ErrExtensionNotAllowed.Error())
	case errors.Is(err, upload.ErrInvalidImage):
		logger.FromContext(ctx).Warn("Uploaded file is not a valid image", zap.Error(err))
		return "", apperr.Validation("file is not a valid image").Wrap(err)
	default:
		logger.FromContext(ctx).Error("Failed to store image", zap.Error(err))
		return "", err
	}
}
