package model

import (
	"time"

	"gorm.io/gorm"
)

// User represents a registered account. Users are never deleted.
type User struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	Username   string    `json:"username" gorm:"type:varchar(20);uniqueIndex;not null"`
	Email      string    `json:"email" gorm:"type:varchar(200);uniqueIndex;not null"`
	Password   string    `json:"-" gorm:"type:varchar(100);not null"`
	IsVerified bool      `json:"is_verified" gorm:"default:false"`
	JoinDate   time.Time `json:"join_date"`
	CreatedAt  time.Time `json:"-"`
	UpdatedAt  time.Time `json:"-"`
}

// BeforeCreate hook will be called before creating a new User record
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.JoinDate.IsZero() {
		u.JoinDate = time.Now().UTC()
	}
	return nil
}
