package models

import (
	"time"

	"github.com/google/uuid"
)

// Import types tracked in the statistics table.
const (
	ImportTypeCategories = "categories"
	ImportTypeAttributes = "attributes"
	ImportTypeFamilies   = "families"
	ImportTypeProducts   = "products"
)

// ImportTypes lists every type GetLatestStats reports on, in display order.
var ImportTypes = []string{ImportTypeCategories, ImportTypeAttributes, ImportTypeFamilies, ImportTypeProducts}

// ImportStatistic is one row per import run. The table name predates the
// Shopify importer and is shared by every import source.
type ImportStatistic struct {
	ID                    uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	StoreID               uuid.UUID `gorm:"type:uuid;not null;index:idx_import_stats_store_type_date,priority:1" json:"store_id"`
	ImportType            string    `gorm:"type:varchar(32);not null;index:idx_import_stats_store_type_date,priority:2" json:"import_type"`
	TotalProcessed        int       `gorm:"not null;default:0" json:"total_processed"`
	SuccessfulImports     int       `gorm:"not null;default:0" json:"successful_imports"`
	FailedImports         int       `gorm:"not null;default:0" json:"failed_imports"`
	SkippedImports        int       `gorm:"not null;default:0" json:"skipped_imports"`
	ImportMethod          string    `gorm:"type:varchar(32);not null;default:'manual'" json:"import_method"`
	ErrorDetails          *string   `gorm:"type:text" json:"error_details"`
	ProcessingTimeSeconds int       `gorm:"not null;default:0" json:"processing_time_seconds"`
	ImportDate            time.Time `gorm:"not null;index:idx_import_stats_store_type_date,priority:3,sort:desc" json:"import_date"`
	CreatedAt             time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ImportStatistic) TableName() string {
	return "akeneo_import_statistics"
}
