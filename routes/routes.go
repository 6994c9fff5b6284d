package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/catalog-import/common/auth"
	"github.com/yashrajoria/catalog-import/common/middleware"
	"github.com/yashrajoria/catalog-import/controllers"
)

// Controllers groups the handlers mounted by RegisterRoutes.
type Controllers struct {
	Import *controllers.ImportController
	Jobs   *controllers.JobController
	Stats  *controllers.StatsController
}

// RegisterRoutes mounts the Shopify import API under /api/v1/stores/:storeId/shopify.
// Import endpoints share the rate limiter; reads only need a valid token.
func RegisterRoutes(r *gin.Engine, ctrl Controllers, validator *auth.TokenValidator, limiter *middleware.RateLimiter) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	shopify := r.Group("/api/v1/stores/:storeId/shopify")
	shopify.Use(middleware.AuthMiddleware(validator))
	{
		shopify.GET("/connection/test", ctrl.Import.TestConnection)
		shopify.GET("/import/stats", ctrl.Stats.GetStats)
		shopify.GET("/import/stats/export", ctrl.Stats.ExportHistory)
		shopify.GET("/import/jobs/:jobId", ctrl.Jobs.GetJob)
	}

	imports := shopify.Group("/import")
	if limiter != nil {
		imports.Use(middleware.RateLimit(limiter))
	}
	{
		imports.POST("/collections", ctrl.Import.ImportCollections)
		imports.POST("/products", ctrl.Import.ImportProducts)
		imports.POST("/full", ctrl.Import.FullImport)
		imports.POST("/jobs", ctrl.Jobs.EnqueueJob)
	}
}
