package model

import (
	"time"

	"gorm.io/gorm"
)

// DefaultProductImage is served until an image is uploaded for the product
const DefaultProductImage = "productDefault.jpg"

// Product is an item listed under a business
type Product struct {
	ID                  uint      `json:"id" gorm:"primaryKey"`
	Name                string    `json:"name" gorm:"type:varchar(100);not null;index"`
	Category            string    `json:"category" gorm:"type:varchar(30);index"`
	OriginalPrice       float64   `json:"original_price" gorm:"type:decimal(12,2);not null"`
	NewPrice            float64   `json:"new_price" gorm:"type:decimal(12,2);not null"`
	PercentageDiscount  float64   `json:"percentage_discount" gorm:"not null"`
	OfferExpirationDate time.Time `json:"offer_expiration_date" gorm:"type:date"`
	ProductImage        string    `json:"product_image" gorm:"type:varchar(200);not null"`
	DatePublished       time.Time `json:"date_published"`
	BusinessID          uint      `json:"business_id" gorm:"index;not null"`
	Business            *Business `json:"-" gorm:"foreignKey:BusinessID;constraint:OnDelete:CASCADE"`
}

// BeforeCreate hook will be called before creating a new Product record
func (p *Product) BeforeCreate(tx *gorm.DB) (err error) {
	now := time.Now().UTC()
	if p.ProductImage == "" {
		p.ProductImage = DefaultProductImage
	}
	if p.DatePublished.IsZero() {
		p.DatePublished = now
	}
	if p.OfferExpirationDate.IsZero() {
		p.OfferExpirationDate = now.Truncate(24 * time.Hour)
	}
	return nil
}

// PercentageDiscount returns how much cheaper newPrice is than originalPrice, in percent.
// originalPrice must be non-zero.
func PercentageDiscount(originalPrice, newPrice float64) float64 {
	return (originalPrice - newPrice) / originalPrice * 100
}

// ApplyPricing sets both prices and recomputes the discount
func (p *Product) ApplyPricing(originalPrice, newPrice float64) {
	p.OriginalPrice = originalPrice
	p.NewPrice = newPrice
	p.PercentageDiscount = PercentageDiscount(originalPrice, newPrice)
}
