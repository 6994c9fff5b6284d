package models

import (
	"time"

	"github.com/google/uuid"
)

// Attribute types.
const (
	AttributeTypeText        = "text"
	AttributeTypeSelect      = "select"
	AttributeTypeMultiselect = "multiselect"
)

// Attribute is a per-store product attribute definition.
type Attribute struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	StoreID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_attributes_store_code" json:"store_id"`
	Code           string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_attributes_store_code" json:"code"`
	Name           string    `gorm:"type:varchar(255);not null" json:"name"`
	Type           string    `gorm:"type:varchar(32);not null;default:'text'" json:"type"`
	IsFilterable   bool      `gorm:"not null;default:false" json:"is_filterable"`
	IsSearchable   bool      `gorm:"not null;default:false" json:"is_searchable"`
	ExternalSource *string   `gorm:"type:varchar(32)" json:"external_source"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
