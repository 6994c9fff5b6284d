package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	awspkg "github.com/yashrajoria/catalog-import/pkg/aws"
	"go.uber.org/zap"
)

// Job statuses.
const (
	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusDone       = "done"
	JobStatusFailed     = "failed"
)

const (
	jobQueueKey = "shopify_import:queue"
	jobKeyFmt   = "shopify_import:job:%s"
	// JobTTL is how long job metadata stays readable after its last update.
	JobTTL = 24 * time.Hour
)

// ErrJobNotFound is returned for unknown or expired job ids.
var ErrJobNotFound = errors.New("import job not found")

// JobOptions are the serializable part of ImportOptions.
type JobOptions struct {
	DryRun       bool `json:"dry_run"`
	Limit        int  `json:"limit"`
	SkipExisting bool `json:"skip_existing"`
}

func (o JobOptions) importOptions() ImportOptions {
	return ImportOptions{DryRun: o.DryRun, Limit: o.Limit, SkipExisting: o.SkipExisting}
}

// ImportJob is the job metadata kept in Redis.
type ImportJob struct {
	ID        string         `json:"id"`
	StoreID   uuid.UUID      `json:"store_id"`
	Operation string         `json:"operation"`
	Options   JobOptions     `json:"options"`
	Status    string         `json:"status"`
	Progress  *ProgressEvent `json:"progress,omitempty"`
	Result    *ImportResult  `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// JobQueue stores import jobs and hands their ids to workers.
type JobQueue interface {
	Enqueue(ctx context.Context, job *ImportJob) error
	// Dequeue blocks until a job id is available or ctx is done.
	Dequeue(ctx context.Context) (string, error)
	Get(ctx context.Context, id string) (*ImportJob, error)
	Save(ctx context.Context, job *ImportJob) error
}

// RedisJobQueue keeps job metadata as JSON strings with a TTL and job ids in a list.
type RedisJobQueue struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisJobQueue(rdb *redis.Client) *RedisJobQueue {
	return &RedisJobQueue{rdb: rdb, ttl: JobTTL}
}

func (q *RedisJobQueue) Enqueue(ctx context.Context, job *ImportJob) error {
	if err := q.Save(ctx, job); err != nil {
		return err
	}
	if err := q.rdb.RPush(ctx, jobQueueKey, job.ID).Err(); err != nil {
		return fmt.Errorf("push job %s: %w", job.ID, err)
	}
	return nil
}

func (q *RedisJobQueue) Dequeue(ctx context.Context) (string, error) {
	res, err := q.rdb.BLPop(ctx, 0, jobQueueKey).Result()
	if err != nil {
		return "", err
	}
	if len(res) < 2 {
		return "", fmt.Errorf("unexpected BLPOP reply %v", res)
	}
	return res[1], nil
}

func (q *RedisJobQueue) Get(ctx context.Context, id string) (*ImportJob, error) {
	val, err := q.rdb.Get(ctx, fmt.Sprintf(jobKeyFmt, id)).Result()
	if err == redis.Nil {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read job %s: %w", id, err)
	}
	var job ImportJob
	if err := json.Unmarshal([]byte(val), &job); err != nil {
		return nil, fmt.Errorf("parse job %s: %w", id, err)
	}
	return &job, nil
}

func (q *RedisJobQueue) Save(ctx context.Context, job *ImportJob) error {
	b, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", job.ID, err)
	}
	if err := q.rdb.Set(ctx, fmt.Sprintf(jobKeyFmt, job.ID), b, q.ttl).Err(); err != nil {
		return fmt.Errorf("store job %s: %w", job.ID, err)
	}
	return nil
}

// NewImportJob builds a queued job.
func NewImportJob(storeID uuid.UUID, operation string, opts JobOptions, now time.Time) *ImportJob {
	return &ImportJob{
		ID:        uuid.NewString(),
		StoreID:   storeID,
		Operation: operation,
		Options:   opts,
		Status:    JobStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ImportWorker runs queued import jobs one at a time.
type ImportWorker struct {
	queue   JobQueue
	factory ImporterFactory
	metrics MetricsRecorder
	logger  *zap.Logger
	now     func() time.Time
	backoff time.Duration
}

func NewImportWorker(queue JobQueue, factory ImporterFactory, metrics MetricsRecorder, logger *zap.Logger) *ImportWorker {
	if logger == nil {
		logger = zap.L()
	}
	return &ImportWorker{
		queue:   queue,
		factory: factory,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
		backoff: 500 * time.Millisecond,
	}
}

// Run consumes jobs until ctx is cancelled.
func (w *ImportWorker) Run(ctx context.Context) {
	w.logger.Info("import worker started", zap.String("queue", jobQueueKey))
	for {
		if ctx.Err() != nil {
			w.logger.Info("import worker stopping")
			return
		}

		id, err := w.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				w.logger.Info("import worker stopping")
				return
			}
			w.logger.Error("dequeue failed", zap.Error(err))
			select {
			case <-time.After(w.backoff):
			case <-ctx.Done():
				return
			}
			continue
		}
		w.Process(ctx, id)
	}
}

// Process runs one job and records its outcome on the job.
func (w *ImportWorker) Process(ctx context.Context, id string) {
	log := w.logger.With(zap.String("job_id", id))

	job, err := w.queue.Get(ctx, id)
	if err != nil {
		log.Error("failed to load job", zap.Error(err))
		return
	}

	job.Status = JobStatusProcessing
	job.UpdatedAt = w.now()
	if err := w.queue.Save(ctx, job); err != nil {
		log.Error("failed to mark job processing", zap.Error(err))
	}

	progress := make(chan ProgressEvent, 16)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		last := -1
		for ev := range progress {
			if ev.Percent == last {
				continue
			}
			last = ev.Percent
			job.Progress = &ev
			job.UpdatedAt = w.now()
			if err := w.queue.Save(ctx, job); err != nil {
				log.Warn("failed to store job progress", zap.Error(err))
			}
		}
	}()

	opts := job.Options.importOptions()
	opts.Events = progress
	result, runErr := RunOperation(ctx, w.factory.ForStore(job.StoreID), job.Operation, opts)
	close(progress)
	<-drained

	status := JobStatusDone
	job.Result = result
	if runErr != nil {
		status = JobStatusFailed
		job.Error = runErr.Error()
		log.Error("import job failed", zap.String("operation", job.Operation), zap.Error(runErr))
	} else {
		log.Info("import job finished", zap.String("operation", job.Operation))
	}
	job.Status = status
	job.UpdatedAt = w.now()

	saveCtx := context.WithoutCancel(ctx)
	if err := w.queue.Save(saveCtx, job); err != nil {
		log.Error("failed to store job result", zap.Error(err))
	}
	if w.metrics != nil {
		_ = w.metrics.RecordCount(saveCtx, awspkg.MetricJobsProcessed, 1, map[string]string{"Status": status})
	}
}
