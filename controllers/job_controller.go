package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	apperrors "github.com/yashrajoria/catalog-import/common/errors"
	"github.com/yashrajoria/catalog-import/services"
	"go.uber.org/zap"
)

// JobController queues imports for the background worker and reports their status.
type JobController struct {
	queue     services.JobQueue
	validator *RequestValidator
	timeout   time.Duration
	now       func() time.Time
}

func NewJobController(queue services.JobQueue, validator *RequestValidator) *JobController {
	return &JobController{queue: queue, validator: validator, timeout: 5 * time.Second, now: time.Now}
}

func (ctrl *JobController) EnqueueJob(c *gin.Context) {
	storeID, err := ctrl.validator.StoreID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req, err := ctrl.validator.BindJob(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "details": err.Error()})
		return
	}
	if ctrl.queue == nil {
		_ = c.Error(apperrors.ErrQueueUnavailable)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ctrl.timeout)
	defer cancel()

	job := services.NewImportJob(storeID, req.Operation, services.JobOptions{
		DryRun:       req.DryRun,
		Limit:        req.Limit,
		SkipExisting: req.SkipExisting,
	}, ctrl.now())
	if err := ctrl.queue.Enqueue(ctx, job); err != nil {
		zap.L().Error("Failed to enqueue import job", zap.String("store_id", storeID.String()), zap.Error(err))
		_ = c.Error(apperrors.ErrQueueUnavailable.Wrap(err))
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"job_id":  job.ID,
		"status":  job.Status,
		"message": "Import queued for processing",
	})
}

// GetJob returns a job of the path's store; jobs of other stores are not found.
func (ctrl *JobController) GetJob(c *gin.Context) {
	storeID, err := ctrl.validator.StoreID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id := strings.TrimSpace(c.Param("jobId"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Job ID required"})
		return
	}
	if ctrl.queue == nil {
		_ = c.Error(apperrors.ErrQueueUnavailable)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ctrl.timeout)
	defer cancel()

	job, err := ctrl.queue.Get(ctx, id)
	if errors.Is(err, services.ErrJobNotFound) || (err == nil && job.StoreID != storeID) {
		_ = c.Error(apperrors.ErrJobNotFound)
		return
	}
	if err != nil {
		zap.L().Error("Failed to get job status", zap.String("job_id", id), zap.Error(err))
		_ = c.Error(apperrors.ErrQueueUnavailable.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, job)
}
