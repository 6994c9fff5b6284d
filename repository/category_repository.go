package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/yashrajoria/catalog-import/models"
	"gorm.io/gorm"
)

// GormCategoryRepository implements CategoryRepository using GORM.
type GormCategoryRepository struct {
	db *gorm.DB
}

func NewGormCategoryRepository(db *gorm.DB) *GormCategoryRepository {
	return &GormCategoryRepository{db: db}
}

func (r *GormCategoryRepository) FindByExternalID(ctx context.Context, storeID uuid.UUID, externalID string) (*models.Category, error) {
	return firstCategory(r.db.WithContext(ctx).
		Where("store_id = ? AND external_id = ?", storeID, externalID))
}

func (r *GormCategoryRepository) FindBySlug(ctx context.Context, storeID uuid.UUID, slug string) (*models.Category, error) {
	return firstCategory(r.db.WithContext(ctx).
		Where("store_id = ? AND slug = ?", storeID, slug))
}

func firstCategory(q *gorm.DB) (*models.Category, error) {
	var rows []models.Category
	if err := q.Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *GormCategoryRepository) Create(ctx context.Context, category *models.Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}

// Update writes every column of category, zero values included.
func (r *GormCategoryRepository) Update(ctx context.Context, category *models.Category) error {
	return r.db.WithContext(ctx).Save(category).Error
}

func (r *GormCategoryRepository) IDsByExternalIDs(ctx context.Context, storeID uuid.UUID, externalIDs []string) (map[string]uuid.UUID, error) {
	out := make(map[string]uuid.UUID, len(externalIDs))
	if len(externalIDs) == 0 {
		return out, nil
	}

	var rows []struct {
		ID         uuid.UUID
		ExternalID string
	}
	err := r.db.WithContext(ctx).
		Model(&models.Category{}).
		Select("id, external_id").
		Where("store_id = ? AND external_source = ? AND external_id IN ?", storeID, models.ExternalSourceShopify, externalIDs).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ExternalID] = row.ID
	}
	return out, nil
}
