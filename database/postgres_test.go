package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yashrajoria/catalog-import/models"
)

func TestPostgresConfig_DSN(t *testing.T) {
	cfg := PostgresConfig{
		Host: "db", Port: "5432", User: "catalog", Password: "s3cret",
		DBName: "catalog", SSLMode: "disable", TimeZone: "UTC",
	}
	assert.Equal(t, "host=db user=catalog password=s3cret dbname=catalog port=5432 sslmode=disable TimeZone=UTC", cfg.DSN())
}

func TestImportModels(t *testing.T) {
	ms := ImportModels()
	assert.Len(t, ms, 7)
	assert.Contains(t, ms, &models.ImportStatistic{})
	assert.Contains(t, ms, &models.ShopifyConnection{})
}

func TestClose_NilDB(t *testing.T) {
	assert.NoError(t, Close(nil))
}
