package models

import (
	"time"

	"github.com/google/uuid"
)

// ShopifyConnection is the OAuth grant a store completed for its Shopify shop.
type ShopifyConnection struct {
	StoreID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"store_id"`
	ShopDomain  string    `gorm:"type:varchar(255);not null" json:"shop_domain"`
	AccessToken string    `gorm:"type:text;not null" json:"-"`
	Scope       string    `gorm:"type:text" json:"scope"`
	InstalledAt time.Time `json:"installed_at"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ShopifyConnection) TableName() string {
	return "shopify_oauth_tokens"
}
