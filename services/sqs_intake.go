package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ImportRequest is the message other services send to request an import.
type ImportRequest struct {
	StoreID      string `json:"store_id"`
	Operation    string `json:"operation"`
	DryRun       bool   `json:"dry_run"`
	Limit        int    `json:"limit"`
	SkipExisting bool   `json:"skip_existing"`
}

// snsEnvelope is the wrapper SNS adds when a topic fans out to the queue.
type snsEnvelope struct {
	Type    string `json:"Type"`
	Message string `json:"Message"`
}

// ImportRequestHandler turns queue messages into import jobs. With a job queue
// the import is enqueued; without one it runs inline.
type ImportRequestHandler struct {
	queue   JobQueue
	factory ImporterFactory
	logger  *zap.Logger
	now     func() time.Time
}

func NewImportRequestHandler(queue JobQueue, factory ImporterFactory, logger *zap.Logger) *ImportRequestHandler {
	if logger == nil {
		logger = zap.L()
	}
	return &ImportRequestHandler{queue: queue, factory: factory, logger: logger, now: time.Now}
}

// Handle matches pkg/aws.MessageHandler. Malformed messages are logged and
// acknowledged; only transient failures are returned for redelivery.
func (h *ImportRequestHandler) Handle(ctx context.Context, body string) error {
	req, err := parseImportRequest(body)
	if err != nil {
		h.logger.Error("dropping malformed import request", zap.Error(err))
		return nil
	}
	storeID, _ := uuid.Parse(req.StoreID)
	opts := JobOptions{DryRun: req.DryRun, Limit: req.Limit, SkipExisting: req.SkipExisting}
	log := h.logger.With(zap.String("store_id", req.StoreID), zap.String("operation", req.Operation))

	if h.queue != nil {
		job := NewImportJob(storeID, req.Operation, opts, h.now())
		if err := h.queue.Enqueue(ctx, job); err != nil {
			return fmt.Errorf("enqueue import request: %w", err)
		}
		log.Info("import request queued", zap.String("job_id", job.ID))
		return nil
	}

	res, err := RunOperation(ctx, h.factory.ForStore(storeID), req.Operation, opts.importOptions())
	if err != nil {
		// Fatal import errors are not retried; the stats and completion event carry them.
		log.Error("import request failed", zap.Error(err))
		return nil
	}
	log.Info("import request finished", zap.String("message", res.Message))
	return nil
}

func parseImportRequest(body string) (ImportRequest, error) {
	var req ImportRequest
	payload := []byte(body)

	var env snsEnvelope
	if err := json.Unmarshal(payload, &env); err == nil && env.Type == "Notification" && env.Message != "" {
		payload = []byte(env.Message)
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return req, fmt.Errorf("decode import request: %w", err)
	}

	if _, err := uuid.Parse(req.StoreID); err != nil {
		return req, fmt.Errorf("invalid store_id %q", req.StoreID)
	}
	req.Operation = strings.ToLower(strings.TrimSpace(req.Operation))
	if req.Operation == "" {
		req.Operation = OperationFull
	}
	if !ValidOperation(req.Operation) {
		return req, fmt.Errorf("unknown import operation %q", req.Operation)
	}
	if req.Limit < 0 {
		return req, fmt.Errorf("limit must not be negative")
	}
	return req, nil
}
