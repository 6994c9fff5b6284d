package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Product statuses.
const (
	ProductStatusActive   = "active"
	ProductStatusDraft    = "draft"
	ProductStatusArchived = "archived"
)

// ProductImage is one entry of Product.Images, kept in source order.
type ProductImage struct {
	Src       string `json:"src"`
	Alt       string `json:"alt"`
	Position  int    `json:"position"`
	ShopifyID int64  `json:"shopify_id"`
}

// Product is a single-price catalog product.
type Product struct {
	ID               uuid.UUID                          `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	StoreID          uuid.UUID                          `gorm:"type:uuid;not null;uniqueIndex:idx_products_store_sku" json:"store_id"`
	Name             string                             `gorm:"type:varchar(255);not null" json:"name"`
	Slug             string                             `gorm:"type:varchar(255);not null;index" json:"slug"`
	SKU              string                             `gorm:"type:varchar(255);not null;uniqueIndex:idx_products_store_sku" json:"sku"`
	Type             string                             `gorm:"type:varchar(32);not null;default:'simple'" json:"type"`
	Status           string                             `gorm:"type:varchar(32);not null;default:'draft'" json:"status"`
	Description      string                             `gorm:"type:text" json:"description"`
	ShortDescription string                             `gorm:"type:text" json:"short_description"`
	Price            decimal.Decimal                    `gorm:"type:numeric(12,2);not null;default:0" json:"price"`
	ComparePrice     decimal.NullDecimal                `gorm:"type:numeric(12,2)" json:"compare_price"`
	StockQuantity    int                                `gorm:"not null;default:0" json:"stock_quantity"`
	ManageStock      bool                               `gorm:"not null;default:true" json:"manage_stock"`
	AllowBackorders  bool                               `gorm:"not null;default:false" json:"allow_backorders"`
	InventoryPolicy  string                             `gorm:"type:varchar(16)" json:"inventory_policy"`
	Weight           decimal.NullDecimal                `gorm:"type:numeric(10,3)" json:"weight"`
	WeightUnit       string                             `gorm:"type:varchar(8)" json:"weight_unit"`
	Images           datatypes.JSONType[[]ProductImage] `gorm:"type:jsonb" json:"images"`
	CategoryIDs      pq.StringArray                     `gorm:"type:text[]" json:"category_ids"`
	Attributes       datatypes.JSONMap                  `gorm:"type:jsonb" json:"attributes"`
	ExternalID       *string                            `gorm:"type:varchar(64);index" json:"external_id"`
	ExternalSource   *string                            `gorm:"type:varchar(32)" json:"external_source"`
	CreatedAt        time.Time                          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time                          `gorm:"autoUpdateTime" json:"updated_at"`
}
