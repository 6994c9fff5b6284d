package repository

import (
	"context"

	"github.com/yashrajoria/catalog-import/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTranslationRepository implements TranslationRepository using GORM.
type GormTranslationRepository struct {
	db *gorm.DB
}

func NewGormTranslationRepository(db *gorm.DB) *GormTranslationRepository {
	return &GormTranslationRepository{db: db}
}

// SaveProductTranslation runs in a nested transaction, which gorm turns into a
// SAVEPOINT when db is already inside one. A failure rolls back to the
// savepoint and leaves the enclosing transaction usable.
func (r *GormTranslationRepository) SaveProductTranslation(ctx context.Context, lang models.Language, tr *models.ProductTranslation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoNothing: true,
		}).Create(&lang).Error
		if err != nil {
			return err
		}

		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}, {Name: "language_code"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "description", "short_description", "updated_at"}),
		}).Create(tr).Error
	})
}
