package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultLanguageCode is the language imported product text is stored under.
const DefaultLanguageCode = "en"

// Language is a storefront language.
type Language struct {
	Code       string    `gorm:"type:varchar(8);primaryKey" json:"code"`
	Name       string    `gorm:"type:varchar(64);not null" json:"name"`
	NativeName string    `gorm:"type:varchar(64)" json:"native_name"`
	IsActive   bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ProductTranslation holds localized product text, one row per (product, language).
type ProductTranslation struct {
	ProductID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"product_id"`
	LanguageCode     string    `gorm:"type:varchar(8);primaryKey" json:"language_code"`
	Name             string    `gorm:"type:varchar(255);not null" json:"name"`
	Description      string    `gorm:"type:text" json:"description"`
	ShortDescription string    `gorm:"type:text" json:"short_description"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
