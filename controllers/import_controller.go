package controllers

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	apperrors "github.com/yashrajoria/catalog-import/common/errors"
	"github.com/yashrajoria/catalog-import/common/logger"
	"github.com/yashrajoria/catalog-import/providers"
	"github.com/yashrajoria/catalog-import/services"
	"go.uber.org/zap"
)

// ImportController serves the synchronous and streaming import endpoints.
type ImportController struct {
	factory   services.ImporterFactory
	validator *RequestValidator
}

func NewImportController(factory services.ImporterFactory, validator *RequestValidator) *ImportController {
	return &ImportController{factory: factory, validator: validator}
}

// TestConnection checks the stored Shopify credentials.
func (ctrl *ImportController) TestConnection(c *gin.Context) {
	storeID, err := ctrl.validator.StoreID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := ctrl.factory.ForStore(storeID).TestConnection(c.Request.Context())
	if err != nil {
		c.JSON(importErrorStatus(err).Code, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (ctrl *ImportController) ImportCollections(c *gin.Context) {
	ctrl.run(c, services.OperationCollections)
}

func (ctrl *ImportController) ImportProducts(c *gin.Context) {
	ctrl.run(c, services.OperationProducts)
}

func (ctrl *ImportController) FullImport(c *gin.Context) {
	ctrl.run(c, services.OperationFull)
}

func (ctrl *ImportController) run(c *gin.Context, op string) {
	storeID, err := ctrl.validator.StoreID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req, err := ctrl.validator.BindImport(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "details": err.Error()})
		return
	}

	importer := ctrl.factory.ForStore(storeID)
	if wantsEventStream(c) {
		ctrl.stream(c, importer, op, req.options())
		return
	}

	res, err := services.RunOperation(c.Request.Context(), importer, op, req.options())
	if err != nil {
		appErr := importErrorStatus(err)
		logger.FromContext(c.Request.Context()).Warn("shopify import failed",
			zap.String("store_id", storeID.String()),
			zap.String("operation", op),
			zap.Int("status", appErr.Code),
			zap.Error(err),
		)
		c.JSON(appErr.Code, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

type runOutcome struct {
	res *services.ImportResult
	err error
}

// stream runs the import while relaying progress as server-sent events. The
// last event is "complete" with the result or "error" with the failure.
func (ctrl *ImportController) stream(c *gin.Context, importer services.Importer, op string, opts services.ImportOptions) {
	ctx := c.Request.Context()
	progress := make(chan services.ProgressEvent, 16)
	done := make(chan runOutcome, 1)
	opts.Events = progress

	go func() {
		res, err := services.RunOperation(ctx, importer, op, opts)
		close(progress)
		done <- runOutcome{res: res, err: err}
	}()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.Stream(func(w io.Writer) bool {
		ev, ok := <-progress
		if ok {
			c.SSEvent("progress", ev)
			return true
		}
		out := <-done
		if out.err != nil {
			c.SSEvent("error", out.res)
			return false
		}
		c.SSEvent("complete", out.res)
		return false
	})
}

func wantsEventStream(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "text/event-stream")
}

// importErrorStatus maps a fatal import error to its HTTP error.
func importErrorStatus(err error) *apperrors.Error {
	var apiErr *providers.ShopifyAPIError
	var netErr net.Error
	switch {
	case errors.Is(err, services.ErrNoShopifyConnection):
		return apperrors.ErrShopifyNotConnected.Wrap(err)
	case errors.As(err, &apiErr), errors.As(err, &netErr):
		return apperrors.ErrShopifyUnavailable.Wrap(err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.ErrShopifyUnavailable.Wrap(err)
	default:
		return apperrors.ErrInternalServer.Wrap(err)
	}
}
