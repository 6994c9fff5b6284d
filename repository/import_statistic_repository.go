package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yashrajoria/catalog-import/models"
	"gorm.io/gorm"
)

// ImportResults are the counts of one finished run.
type ImportResults struct {
	TotalProcessed        int
	SuccessfulImports     int
	FailedImports         int
	SkippedImports        int
	ImportMethod          string
	ErrorDetails          string
	ProcessingTimeSeconds int
	ImportDate            time.Time
}

const latestStatsQuery = `SELECT DISTINCT ON (import_type) *
FROM akeneo_import_statistics
WHERE store_id = ?
ORDER BY import_type, import_date DESC`

// GormImportStatisticRepository implements ImportStatisticRepository using GORM.
type GormImportStatisticRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormImportStatisticRepository(db *gorm.DB) *GormImportStatisticRepository {
	return &GormImportStatisticRepository{db: db, now: time.Now}
}

// SaveImportResults inserts one row; an empty ErrorDetails is stored as NULL
// and an unset ImportDate as now.
func (r *GormImportStatisticRepository) SaveImportResults(ctx context.Context, storeID uuid.UUID, importType string, results ImportResults) (*models.ImportStatistic, error) {
	stat := &models.ImportStatistic{
		ID:                    uuid.New(),
		StoreID:               storeID,
		ImportType:            importType,
		TotalProcessed:        results.TotalProcessed,
		SuccessfulImports:     results.SuccessfulImports,
		FailedImports:         results.FailedImports,
		SkippedImports:        results.SkippedImports,
		ImportMethod:          results.ImportMethod,
		ProcessingTimeSeconds: results.ProcessingTimeSeconds,
		ImportDate:            results.ImportDate,
	}
	if stat.ImportMethod == "" {
		stat.ImportMethod = "manual"
	}
	if results.ErrorDetails != "" {
		details := results.ErrorDetails
		stat.ErrorDetails = &details
	}
	if stat.ImportDate.IsZero() {
		stat.ImportDate = r.now().UTC()
	}

	if err := r.db.WithContext(ctx).Create(stat).Error; err != nil {
		return nil, err
	}
	return stat, nil
}

// GetLatestStats returns the newest row of every known import type, in
// models.ImportTypes order. Types never run get a zeroed placeholder.
func (r *GormImportStatisticRepository) GetLatestStats(ctx context.Context, storeID uuid.UUID) ([]models.ImportStatistic, error) {
	var rows []models.ImportStatistic
	if err := r.db.WithContext(ctx).Raw(latestStatsQuery, storeID).Scan(&rows).Error; err != nil {
		return nil, err
	}

	byType := make(map[string]models.ImportStatistic, len(rows))
	for _, row := range rows {
		byType[row.ImportType] = row
	}

	out := make([]models.ImportStatistic, 0, len(models.ImportTypes))
	for _, t := range models.ImportTypes {
		if row, ok := byType[t]; ok {
			out = append(out, row)
			delete(byType, t)
			continue
		}
		out = append(out, models.ImportStatistic{StoreID: storeID, ImportType: t})
	}
	// Types written by other importers that this service does not know about.
	for _, row := range rows {
		if _, ok := byType[row.ImportType]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

// ListHistory returns up to limit rows, newest first.
func (r *GormImportStatisticRepository) ListHistory(ctx context.Context, storeID uuid.UUID, limit int) ([]models.ImportStatistic, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.ImportStatistic
	err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("import_date DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
