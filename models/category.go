package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ExternalSourceShopify marks rows created or updated by the Shopify import.
const ExternalSourceShopify = "shopify"

// Category is a catalog category. Shopify collections land here flat (level 0, no parent).
type Category struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	StoreID         uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_categories_store_slug" json:"store_id"`
	Name            string         `gorm:"type:varchar(255);not null" json:"name"`
	Slug            string         `gorm:"type:varchar(255);not null;uniqueIndex:idx_categories_store_slug" json:"slug"`
	Description     string         `gorm:"type:text" json:"description"`
	MetaTitle       string         `gorm:"type:varchar(255)" json:"meta_title"`
	MetaDescription string         `gorm:"type:varchar(320)" json:"meta_description"`
	Level           int            `gorm:"not null;default:0" json:"level"`
	ParentID        *uuid.UUID     `gorm:"type:uuid" json:"parent_id"`
	IsActive        bool           `gorm:"not null;default:true" json:"is_active"`
	SortOrder       int            `gorm:"not null;default:0" json:"sort_order"`
	ExternalID      *string        `gorm:"type:varchar(64);index" json:"external_id"`
	ExternalSource  *string        `gorm:"type:varchar(32)" json:"external_source"`
	SeoData         datatypes.JSON `gorm:"type:jsonb" json:"seo_data"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}
