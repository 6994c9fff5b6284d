package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/yashrajoria/catalog-import/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormAttributeRepository implements AttributeRepository using GORM.
type GormAttributeRepository struct {
	db *gorm.DB
}

func NewGormAttributeRepository(db *gorm.DB) *GormAttributeRepository {
	return &GormAttributeRepository{db: db}
}

// EnsureAttributes inserts attrs for storeID, skipping codes the store already has.
func (r *GormAttributeRepository) EnsureAttributes(ctx context.Context, storeID uuid.UUID, attrs []models.Attribute) (int, error) {
	if len(attrs) == 0 {
		return 0, nil
	}
	rows := make([]models.Attribute, len(attrs))
	for i, a := range attrs {
		a.StoreID = storeID
		rows[i] = a
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "store_id"}, {Name: "code"}},
			DoNothing: true,
		}).
		Create(&rows)
	if result.Error != nil {
		return 0, result.Error
	}
	return int(result.RowsAffected), nil
}
