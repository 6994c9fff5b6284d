package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repositories groups the catalog repositories bound to one connection or transaction.
type Repositories struct {
	Categories   CategoryRepository
	Products     ProductRepository
	Translations TranslationRepository
	Attributes   AttributeRepository
}

// UnitOfWork runs fn with repositories bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
	Repositories() Repositories
}

// GormUnitOfWork implements UnitOfWork on a gorm connection.
type GormUnitOfWork struct {
	db *gorm.DB
}

func NewGormUnitOfWork(db *gorm.DB) *GormUnitOfWork {
	return &GormUnitOfWork{db: db}
}

func (u *GormUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, newRepositories(tx))
	})
}

// Repositories returns repositories outside any transaction.
func (u *GormUnitOfWork) Repositories() Repositories {
	return newRepositories(u.db)
}

func newRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Categories:   NewGormCategoryRepository(db),
		Products:     NewGormProductRepository(db),
		Translations: NewGormTranslationRepository(db),
		Attributes:   NewGormAttributeRepository(db),
	}
}
