package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/yashrajoria/catalog-import/models"
)

// Find* methods return (nil, nil) when no row matches.

// CategoryRepository is the category access the importer needs.
type CategoryRepository interface {
	FindByExternalID(ctx context.Context, storeID uuid.UUID, externalID string) (*models.Category, error)
	FindBySlug(ctx context.Context, storeID uuid.UUID, slug string) (*models.Category, error)
	Create(ctx context.Context, category *models.Category) error
	Update(ctx context.Context, category *models.Category) error
	// IDsByExternalIDs maps Shopify ids to local category ids for rows this
	// importer created.
	IDsByExternalIDs(ctx context.Context, storeID uuid.UUID, externalIDs []string) (map[string]uuid.UUID, error)
}

// ProductRepository is the product access the importer needs.
type ProductRepository interface {
	FindByExternalID(ctx context.Context, storeID uuid.UUID, externalID string) (*models.Product, error)
	FindBySKU(ctx context.Context, storeID uuid.UUID, sku string) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
}

// TranslationRepository writes localized product text.
type TranslationRepository interface {
	// SaveProductTranslation ensures lang exists and upserts tr, both inside a
	// savepoint when called within a transaction.
	SaveProductTranslation(ctx context.Context, lang models.Language, tr *models.ProductTranslation) error
}

// AttributeRepository manages per-store attribute definitions.
type AttributeRepository interface {
	// EnsureAttributes creates the missing definitions and returns how many were created.
	EnsureAttributes(ctx context.Context, storeID uuid.UUID, attrs []models.Attribute) (int, error)
}

// ImportStatisticRepository records import runs.
type ImportStatisticRepository interface {
	SaveImportResults(ctx context.Context, storeID uuid.UUID, importType string, results ImportResults) (*models.ImportStatistic, error)
	GetLatestStats(ctx context.Context, storeID uuid.UUID) ([]models.ImportStatistic, error)
	ListHistory(ctx context.Context, storeID uuid.UUID, limit int) ([]models.ImportStatistic, error)
}

// TokenStore holds the Shopify grant for each store.
type TokenStore interface {
	GetConnection(ctx context.Context, storeID uuid.UUID) (*models.ShopifyConnection, error)
	SaveConnection(ctx context.Context, conn *models.ShopifyConnection) error
}
