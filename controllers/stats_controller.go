package controllers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yashrajoria/catalog-import/models"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// StatsReader is the part of the statistics repository the dashboard reads.
type StatsReader interface {
	GetLatestStats(ctx context.Context, storeID uuid.UUID) ([]models.ImportStatistic, error)
}

// HistoryExporter renders the import history workbook; *services.ReportService implements it.
type HistoryExporter interface {
	HistoryWorkbook(ctx context.Context, storeID uuid.UUID) ([]byte, error)
}

type StatsController struct {
	stats     StatsReader
	reports   HistoryExporter
	validator *RequestValidator
	timeout   time.Duration
}

func NewStatsController(stats StatsReader, reports HistoryExporter, validator *RequestValidator) *StatsController {
	return &StatsController{stats: stats, reports: reports, validator: validator, timeout: 10 * time.Second}
}

// GetStats returns the latest run of every import type.
func (ctrl *StatsController) GetStats(c *gin.Context) {
	storeID, err := ctrl.validator.StoreID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ctrl.timeout)
	defer cancel()

	stats, err := ctrl.stats.GetLatestStats(ctx, storeID)
	if err != nil {
		zap.L().Error("Failed to load import statistics", zap.String("store_id", storeID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load import statistics"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

// ExportHistory downloads the import history as XLSX.
func (ctrl *StatsController) ExportHistory(c *gin.Context) {
	storeID, err := ctrl.validator.StoreID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ctrl.timeout)
	defer cancel()

	b, err := ctrl.reports.HistoryWorkbook(ctx, storeID)
	if err != nil {
		zap.L().Error("Failed to export import history", zap.String("store_id", storeID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export import history"})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="shopify-import-history-%s.xlsx"`, storeID))
	c.Data(http.StatusOK, xlsxContentType, b)
}
