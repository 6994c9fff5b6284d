package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/yashrajoria/catalog-import/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTokenStore keeps Shopify grants in shopify_oauth_tokens.
type GormTokenStore struct {
	db *gorm.DB
}

func NewGormTokenStore(db *gorm.DB) *GormTokenStore {
	return &GormTokenStore{db: db}
}

func (s *GormTokenStore) GetConnection(ctx context.Context, storeID uuid.UUID) (*models.ShopifyConnection, error) {
	var rows []models.ShopifyConnection
	if err := s.db.WithContext(ctx).Where("store_id = ?", storeID).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (s *GormTokenStore) SaveConnection(ctx context.Context, conn *models.ShopifyConnection) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "store_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"shop_domain", "access_token", "scope", "installed_at", "updated_at"}),
		}).
		Create(conn).Error
}
