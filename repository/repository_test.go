package repository_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/catalog-import/models"
	"github.com/yashrajoria/catalog-import/repository"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

var statColumns = []string{
	"id", "store_id", "import_type", "total_processed", "successful_imports", "failed_imports",
	"skipped_imports", "import_method", "error_details", "processing_time_seconds", "import_date",
	"created_at", "updated_at",
}

func TestGetLatestStats_EmptyTableReturnsPlaceholders(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormImportStatisticRepository(gormDB)
	storeID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT DISTINCT ON (import_type) *`)).
		WithArgs(storeID).
		WillReturnRows(sqlmock.NewRows(statColumns))

	stats, err := repo.GetLatestStats(context.Background(), storeID)
	require.NoError(t, err)
	require.Len(t, stats, len(models.ImportTypes))
	for i, s := range stats {
		assert.Equal(t, models.ImportTypes[i], s.ImportType)
		assert.Equal(t, storeID, s.StoreID)
		assert.Zero(t, s.TotalProcessed)
		assert.Zero(t, s.SuccessfulImports)
		assert.Nil(t, s.ErrorDetails)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLatestStats_KeepsLatestPerTypeAndFillsGaps(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormImportStatisticRepository(gormDB)
	storeID := uuid.New()
	now := time.Now().UTC()

	rows := sqlmock.NewRows(statColumns).
		AddRow(uuid.New().String(), storeID.String(), models.ImportTypeCategories, 3, 3, 0, 0, "shopify", nil, 1, now, now, now).
		AddRow(uuid.New().String(), storeID.String(), models.ImportTypeProducts, 10, 8, 1, 1, "shopify", `[{"type":"product"}]`, 7, now, now, now)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT DISTINCT ON (import_type) *`)).
		WithArgs(storeID).
		WillReturnRows(rows)

	stats, err := repo.GetLatestStats(context.Background(), storeID)
	require.NoError(t, err)
	require.Len(t, stats, 4)

	assert.Equal(t, models.ImportTypeCategories, stats[0].ImportType)
	assert.Equal(t, 3, stats[0].SuccessfulImports)
	assert.Equal(t, models.ImportTypeAttributes, stats[1].ImportType)
	assert.Zero(t, stats[1].TotalProcessed)
	assert.Equal(t, models.ImportTypeFamilies, stats[2].ImportType)
	assert.Zero(t, stats[2].TotalProcessed)
	assert.Equal(t, models.ImportTypeProducts, stats[3].ImportType)
	assert.Equal(t, 8, stats[3].SuccessfulImports)
	require.NotNil(t, stats[3].ErrorDetails)
	assert.JSONEq(t, `[{"type":"product"}]`, *stats[3].ErrorDetails)
}

func TestGetLatestStats_QueryError(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormImportStatisticRepository(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT DISTINCT ON (import_type) *`)).
		WillReturnError(errors.New("connection reset"))

	_, err := repo.GetLatestStats(context.Background(), uuid.New())
	assert.Error(t, err)
}

func TestSaveImportResults_Defaults(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormImportStatisticRepository(gormDB)
	storeID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "akeneo_import_statistics"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))
	mock.ExpectCommit()

	stat, err := repo.SaveImportResults(context.Background(), storeID, models.ImportTypeProducts, repository.ImportResults{
		TotalProcessed:    2,
		SuccessfulImports: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, storeID, stat.StoreID)
	assert.Equal(t, models.ImportTypeProducts, stat.ImportType)
	assert.Equal(t, "manual", stat.ImportMethod)
	assert.Zero(t, stat.FailedImports)
	assert.Zero(t, stat.SkippedImports)
	assert.Nil(t, stat.ErrorDetails)
	assert.False(t, stat.ImportDate.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveImportResults_StoresErrorDetails(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormImportStatisticRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "akeneo_import_statistics"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))
	mock.ExpectCommit()

	stat, err := repo.SaveImportResults(context.Background(), uuid.New(), models.ImportTypeCategories, repository.ImportResults{
		FailedImports: 1,
		ImportMethod:  "shopify",
		ErrorDetails:  `[{"type":"collection","error":"boom"}]`,
	})
	require.NoError(t, err)
	assert.Equal(t, "shopify", stat.ImportMethod)
	require.NotNil(t, stat.ErrorDetails)
	assert.Contains(t, *stat.ErrorDetails, "boom")
}

func TestListHistory(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormImportStatisticRepository(gormDB)
	storeID := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "akeneo_import_statistics" WHERE store_id = $1 ORDER BY import_date DESC`)).
		WillReturnRows(sqlmock.NewRows(statColumns).
			AddRow(uuid.New().String(), storeID.String(), models.ImportTypeProducts, 1, 1, 0, 0, "shopify", nil, 0, now, now, now))

	rows, err := repo.ListHistory(context.Background(), storeID, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestCategoryFindByExternalID_NotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormCategoryRepository(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "categories" WHERE store_id = $1 AND external_id = $2`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	c, err := repo.FindByExternalID(context.Background(), uuid.New(), "123")
	assert.NoError(t, err)
	assert.Nil(t, c)
}

func TestCategoryFindBySlug_Found(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormCategoryRepository(gormDB)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "categories" WHERE store_id = $1 AND slug = $2`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug", "external_source"}).
			AddRow(id.String(), "Summer", "summer", "akeneo"))

	c, err := repo.FindBySlug(context.Background(), uuid.New(), "summer")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, id, c.ID)
	require.NotNil(t, c.ExternalSource)
	assert.Equal(t, "akeneo", *c.ExternalSource)
}

func TestCategoryIDsByExternalIDs(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormCategoryRepository(gormDB)
	a, b := uuid.New(), uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, external_id FROM "categories"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "external_id"}).
			AddRow(a.String(), "10").
			AddRow(b.String(), "20"))

	ids, err := repo.IDsByExternalIDs(context.Background(), uuid.New(), []string{"10", "20", "30"})
	require.NoError(t, err)
	assert.Equal(t, map[string]uuid.UUID{"10": a, "20": b}, ids)
}

func TestCategoryIDsByExternalIDs_EmptyInputSkipsQuery(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormCategoryRepository(gormDB)

	ids, err := repo.IDsByExternalIDs(context.Background(), uuid.New(), nil)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductFindBySKU_Found(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormProductRepository(gormDB)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "products" WHERE store_id = $1 AND sku = $2`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "sku", "price"}).AddRow(id.String(), "blue-shirt", "19.99"))

	p, err := repo.FindBySKU(context.Background(), uuid.New(), "blue-shirt")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "19.99", p.Price.StringFixed(2))
}

func TestEnsureAttributes_CountsCreated(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormAttributeRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "attributes"`) + ".*" + regexp.QuoteMeta(`ON CONFLICT ("store_id","code") DO NOTHING`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))
	mock.ExpectCommit()

	n, err := repo.EnsureAttributes(context.Background(), uuid.New(), []models.Attribute{
		{Code: "vendor", Name: "Vendor"},
		{Code: "tags", Name: "Tags"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnitOfWork_TranslationFailureRollsBackToSavepointOnly(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	uow := repository.NewGormUnitOfWork(gormDB)
	storeID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "products"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))
	mock.ExpectExec("SAVEPOINT sp").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "languages"`)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "product_translations"`)).WillReturnError(errors.New("value too long"))
	mock.ExpectExec("ROLLBACK TO SAVEPOINT sp").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	var translationErr error
	err := uow.Do(context.Background(), func(ctx context.Context, repos repository.Repositories) error {
		p := &models.Product{ID: uuid.New(), StoreID: storeID, Name: "Shirt", Slug: "shirt", SKU: "shirt"}
		if err := repos.Products.Create(ctx, p); err != nil {
			return err
		}
		translationErr = repos.Translations.SaveProductTranslation(ctx,
			models.Language{Code: models.DefaultLanguageCode, Name: "English", NativeName: "English", IsActive: true},
			&models.ProductTranslation{ProductID: p.ID, LanguageCode: models.DefaultLanguageCode, Name: p.Name},
		)
		return nil
	})
	require.NoError(t, err)
	assert.Error(t, translationErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnitOfWork_RollsBackOnError(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	uow := repository.NewGormUnitOfWork(gormDB)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "categories"`)).
		WillReturnError(errors.New("duplicate key"))
	mock.ExpectRollback()

	err := uow.Do(context.Background(), func(ctx context.Context, repos repository.Repositories) error {
		return repos.Categories.Create(ctx, &models.Category{StoreID: uuid.New(), Name: "A", Slug: "a"})
	})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormTokenStore_GetConnection(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormTokenStore(gormDB)
	storeID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "shopify_oauth_tokens" WHERE store_id = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"store_id", "shop_domain", "access_token"}).
			AddRow(storeID.String(), "acme.myshopify.com", "shpat_1"))

	conn, err := store.GetConnection(context.Background(), storeID)
	require.NoError(t, err)
	require.NotNil(t, conn)
	assert.Equal(t, "acme.myshopify.com", conn.ShopDomain)
	assert.Equal(t, "shpat_1", conn.AccessToken)
}

func TestGormTokenStore_Missing(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormTokenStore(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "shopify_oauth_tokens"`)).
		WillReturnRows(sqlmock.NewRows([]string{"store_id"}))

	conn, err := store.GetConnection(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, conn)
}
