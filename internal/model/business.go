package model

import (
	"time"

	"gorm.io/gorm"
)

// Defaults applied when a business is provisioned for a new user
const (
	DefaultLocation = "Unspecified"
	DefaultLogo     = "default.jpg"
)

// Business is the storefront owned by exactly one user
type Business struct {
	ID                  uint      `json:"id" gorm:"primaryKey"`
	BusinessName        string    `json:"business_name" gorm:"type:varchar(20);not null"`
	City                string    `json:"city" gorm:"type:varchar(100);not null"`
	Region              string    `json:"region" gorm:"type:varchar(100);not null"`
	BusinessDescription *string   `json:"business_description" gorm:"type:text"`
	Logo                string    `json:"logo" gorm:"type:varchar(200);not null"`
	OwnerID             uint      `json:"owner_id" gorm:"uniqueIndex;not null"`
	Owner               *User     `json:"-" gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`
	CreatedAt           time.Time `json:"-"`
	UpdatedAt           time.Time `json:"-"`
}

// BeforeCreate hook will be called before creating a new Business record
func (b *Business) BeforeCreate(tx *gorm.DB) (err error) {
	if b.City == "" {
		b.City = DefaultLocation
	}
	if b.Region == "" {
		b.Region = DefaultLocation
	}
	if b.Logo == "" {
		b.Logo = DefaultLogo
	}
	return nil
}

// OwnedBy reports whether the user owns this business
func (b *Business) OwnedBy(user *User) bool {
	return user != nil && b.OwnerID != 0 && b.OwnerID == user.ID
}
