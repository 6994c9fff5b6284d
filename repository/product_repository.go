package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/yashrajoria/catalog-import/models"
	"gorm.io/gorm"
)

// GormProductRepository implements ProductRepository using GORM.
type GormProductRepository struct {
	db *gorm.DB
}

func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) FindByExternalID(ctx context.Context, storeID uuid.UUID, externalID string) (*models.Product, error) {
	return firstProduct(r.db.WithContext(ctx).
		Where("store_id = ? AND external_id = ?", storeID, externalID))
}

// FindBySKU looks up the natural key; imported products use the Shopify handle as SKU.
func (r *GormProductRepository) FindBySKU(ctx context.Context, storeID uuid.UUID, sku string) (*models.Product, error) {
	return firstProduct(r.db.WithContext(ctx).
		Where("store_id = ? AND sku = ?", storeID, sku))
}

func firstProduct(q *gorm.DB) (*models.Product, error) {
	var rows []models.Product
	if err := q.Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *GormProductRepository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *GormProductRepository) Update(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}
