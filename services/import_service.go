package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yashrajoria/catalog-import/events"
	"github.com/yashrajoria/catalog-import/models"
	awspkg "github.com/yashrajoria/catalog-import/pkg/aws"
	"github.com/yashrajoria/catalog-import/providers"
	"github.com/yashrajoria/catalog-import/repository"
	"go.uber.org/zap"
)

// Resource names used in results, progress events and metrics.
const (
	ResourceCollections = "collections"
	ResourceProducts    = "products"
)

// ShopifyAPI is the part of *providers.ShopifyClient the importer calls.
type ShopifyAPI interface {
	GetShop(ctx context.Context) (*providers.ShopifyShop, error)
	GetAllProducts(ctx context.Context, onPage providers.PageFunc) ([]providers.ShopifyProduct, error)
	GetAllCustomCollections(ctx context.Context, onPage providers.PageFunc) ([]providers.ShopifyCollection, error)
	GetAllSmartCollections(ctx context.Context, onPage providers.PageFunc) ([]providers.ShopifyCollection, error)
	GetAllCollects(ctx context.Context, onPage providers.PageFunc) ([]providers.ShopifyCollect, error)
}

// ClientFactory builds a Shopify client for one shop.
type ClientFactory func(shopDomain, accessToken string) ShopifyAPI

// ImageHost rehosts a product image and reports whether it succeeded.
type ImageHost interface {
	Rehost(ctx context.Context, storeID uuid.UUID, src, handle string, index int) (string, bool)
}

// MetricsRecorder is implemented by *pkg/aws.MetricsClient.
type MetricsRecorder interface {
	RecordCount(ctx context.Context, metricName string, count int, dimensions map[string]string) error
	RecordLatency(ctx context.Context, metricName string, duration time.Duration, dimensions map[string]string) error
}

// Importer is the per-store import API used by controllers and workers.
type Importer interface {
	TestConnection(ctx context.Context) (*ConnectionResult, error)
	ImportCollections(ctx context.Context, opts ImportOptions) (*ImportResult, error)
	ImportProducts(ctx context.Context, opts ImportOptions) (*ImportResult, error)
	FullImport(ctx context.Context, opts ImportOptions) (*ImportResult, error)
}

// Dependencies are shared by every store's import service.
type Dependencies struct {
	Tokens        repository.TokenStore
	UnitOfWork    repository.UnitOfWork
	Stats         repository.ImportStatisticRepository
	Images        ImageHost
	VariantMapper VariantMapper
	NewClient     ClientFactory
	Publisher     events.Publisher
	EventTopic    string
	Metrics       MetricsRecorder
	Logger        *zap.Logger
	Now           func() time.Time
}

// ServiceFactory builds per-store import services from shared dependencies.
type ServiceFactory struct {
	deps Dependencies
}

func NewServiceFactory(deps Dependencies) *ServiceFactory {
	if deps.VariantMapper == nil {
		deps.VariantMapper = FirstVariantMapper{}
	}
	if deps.NewClient == nil {
		deps.NewClient = func(shopDomain, accessToken string) ShopifyAPI {
			return providers.NewShopifyClient(shopDomain, accessToken)
		}
	}
	if deps.Logger == nil {
		deps.Logger = zap.L()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &ServiceFactory{deps: deps}
}

func (f *ServiceFactory) ForStore(storeID uuid.UUID) Importer {
	return NewShopifyImportService(storeID, f.deps)
}

// ShopifyImportService imports one store's Shopify catalog. A service runs
// one operation at a time.
type ShopifyImportService struct {
	storeID uuid.UUID
	deps    Dependencies
	client  ShopifyAPI
	logger  *zap.Logger
}

func NewShopifyImportService(storeID uuid.UUID, deps Dependencies) *ShopifyImportService {
	if deps.VariantMapper == nil {
		deps.VariantMapper = FirstVariantMapper{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.L()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &ShopifyImportService{
		storeID: storeID,
		deps:    deps,
		logger:  deps.Logger.With(zap.String("store_id", storeID.String())),
	}
}

// Initialize loads the store's Shopify grant and builds the API client.
func (s *ShopifyImportService) Initialize(ctx context.Context) error {
	if s.client != nil {
		return nil
	}
	conn, err := s.deps.Tokens.GetConnection(ctx, s.storeID)
	if err != nil {
		return fmt.Errorf("load shopify connection: %w", err)
	}
	if conn == nil || conn.AccessToken == "" || conn.ShopDomain == "" {
		return ErrNoShopifyConnection
	}
	s.client = s.deps.NewClient(conn.ShopDomain, conn.AccessToken)
	return nil
}

// TestConnection fetches the shop record with the stored credentials.
func (s *ShopifyImportService) TestConnection(ctx context.Context) (*ConnectionResult, error) {
	if err := s.Initialize(ctx); err != nil {
		return &ConnectionResult{Success: false, Message: err.Error()}, err
	}
	shop, err := s.client.GetShop(ctx)
	if err != nil {
		s.logger.Warn("shopify connection test failed", zap.Error(err))
		return &ConnectionResult{Success: false, Message: fmt.Sprintf("Connection failed: %v", err)}, err
	}
	return &ConnectionResult{
		Success: true,
		Message: "Connection successful",
		Shop: &ShopDetail{
			Name:     shop.Name,
			Domain:   shop.Domain,
			Email:    shop.Email,
			Currency: shop.Currency,
			Plan:     shop.PlanName,
		},
	}, nil
}

// ImportCollections imports custom and smart collections as flat categories.
func (s *ShopifyImportService) ImportCollections(ctx context.Context, opts ImportOptions) (*ImportResult, error) {
	start := s.deps.Now()
	em := newEmitter(opts.Events, fullScale)
	if err := s.Initialize(ctx); err != nil {
		return s.abort(ctx, em, ResourceCollections, err)
	}

	run, err := s.collectionsTrack(ctx, opts, em)
	if err != nil {
		return s.abort(ctx, em, ResourceCollections, err)
	}
	res := combine(run)
	s.complete(ctx, em, "import_collections", opts, start, res)
	return res, nil
}

// ImportProducts imports every product, resolving categories from collections
// imported earlier.
func (s *ShopifyImportService) ImportProducts(ctx context.Context, opts ImportOptions) (*ImportResult, error) {
	start := s.deps.Now()
	em := newEmitter(opts.Events, fullScale)
	if err := s.Initialize(ctx); err != nil {
		return s.abort(ctx, em, ResourceProducts, err)
	}

	run, err := s.productsTrack(ctx, opts, em)
	if err != nil {
		return s.abort(ctx, em, ResourceProducts, err)
	}
	res := combine(run)
	s.complete(ctx, em, "import_products", opts, start, res)
	return res, nil
}

// FullImport runs collections then products. A fatal collections failure
// stops before products are fetched.
func (s *ShopifyImportService) FullImport(ctx context.Context, opts ImportOptions) (*ImportResult, error) {
	start := s.deps.Now()
	if err := s.Initialize(ctx); err != nil {
		return s.abort(ctx, newEmitter(opts.Events, fullScale), ResourceCollections, err)
	}

	colEm := newEmitter(opts.Events, progressScale{offset: 0, span: 50})
	colRun, err := s.collectionsTrack(ctx, opts, colEm)
	if err != nil {
		return s.abort(ctx, colEm, ResourceCollections, err)
	}

	prodEm := newEmitter(opts.Events, progressScale{offset: 50, span: 50})
	prodRun, err := s.productsTrack(ctx, opts, prodEm)
	if err != nil {
		res, _ := s.abort(ctx, prodEm, ResourceProducts, err)
		res.Stats = map[string]ImportStats{ResourceCollections: colRun.stats}
		res.Errors = colRun.errors
		return res, err
	}

	res := combine(colRun, prodRun)
	s.complete(ctx, newEmitter(opts.Events, fullScale), "full_import", opts, start, res)
	return res, nil
}

// trackRun accumulates the outcome of one track.
type trackRun struct {
	resource string
	total    int
	dryRun   bool
	preview  []PreviewItem
	stats    ImportStats
	errors   []ImportError
}

func (r *trackRun) fail(errType string, id int64, title string, err error) {
	r.stats.Failed++
	r.errors = append(r.errors, ImportError{Type: errType, ID: id, Title: title, Error: err.Error()})
}

type recordOutcome int

const (
	outcomeImported recordOutcome = iota
	outcomeSkipped
)

func (r *trackRun) count(o recordOutcome) {
	if o == outcomeSkipped {
		r.stats.Skipped++
		return
	}
	r.stats.Imported++
}

func combine(runs ...*trackRun) *ImportResult {
	res := &ImportResult{Success: true}
	for _, r := range runs {
		res.Total += r.total
		if r.dryRun {
			res.DryRun = true
			res.Preview = append(res.Preview, r.preview...)
			continue
		}
		if res.Stats == nil {
			res.Stats = make(map[string]ImportStats, len(runs))
		}
		res.Stats[r.resource] = r.stats
		res.Errors = append(res.Errors, r.errors...)
	}

	if res.DryRun {
		res.Message = fmt.Sprintf("Dry run: %d records would be imported", res.Total)
		return res
	}
	var imported, skipped, failed int
	for _, st := range res.Stats {
		imported += st.Imported
		skipped += st.Skipped
		failed += st.Failed
	}
	res.Message = fmt.Sprintf("Import completed: %d imported, %d skipped, %d failed", imported, skipped, failed)
	return res
}

func (s *ShopifyImportService) abort(ctx context.Context, em progressEmitter, resource string, err error) (*ImportResult, error) {
	s.logger.Error("shopify import aborted", zap.String("resource", resource), zap.Error(err))
	em.emit(ctx, ProgressEvent{Resource: resource, Stage: StageFailed, Message: err.Error()})
	if s.deps.Metrics != nil {
		_ = s.deps.Metrics.RecordCount(context.WithoutCancel(ctx), awspkg.MetricImportAborted, 1, map[string]string{"Resource": resource})
	}
	return failedResult(err), err
}

func (s *ShopifyImportService) complete(ctx context.Context, em progressEmitter, operation string, opts ImportOptions, start time.Time, res *ImportResult) {
	elapsed := s.deps.Now().Sub(start)
	em.emit(ctx, ProgressEvent{Resource: operation, Stage: StageCompleted, Message: res.Message})
	s.logger.Info("shopify import finished",
		zap.String("operation", operation),
		zap.Bool("dry_run", res.DryRun),
		zap.Int("total", res.Total),
		zap.Int("errors", len(res.Errors)),
		zap.Duration("elapsed", elapsed),
	)
	if opts.DryRun {
		return
	}

	// The run is over; report it even if the caller has gone away.
	ctx = context.WithoutCancel(ctx)
	s.recordMetrics(ctx, operation, elapsed, res)
	s.publishCompleted(ctx, operation, elapsed, res)
}

func (s *ShopifyImportService) recordMetrics(ctx context.Context, operation string, elapsed time.Duration, res *ImportResult) {
	if s.deps.Metrics == nil {
		return
	}
	for resource, st := range res.Stats {
		dims := map[string]string{"Resource": resource}
		_ = s.deps.Metrics.RecordCount(ctx, awspkg.MetricRecordsImported, st.Imported, dims)
		_ = s.deps.Metrics.RecordCount(ctx, awspkg.MetricRecordsSkipped, st.Skipped, dims)
		_ = s.deps.Metrics.RecordCount(ctx, awspkg.MetricRecordsFailed, st.Failed, dims)
	}
	_ = s.deps.Metrics.RecordLatency(ctx, awspkg.MetricImportDuration, elapsed, map[string]string{"Operation": operation})
}

// publishCompleted is best effort; a failed publish is only logged.
func (s *ShopifyImportService) publishCompleted(ctx context.Context, operation string, elapsed time.Duration, res *ImportResult) {
	if s.deps.Publisher == nil || s.deps.EventTopic == "" {
		s.logger.Debug("event publisher not configured, skipping completion event")
		return
	}
	evt := events.ImportCompleted{
		EventType:   events.ImportCompletedType,
		StoreID:     s.storeID.String(),
		Operation:   operation,
		Success:     res.Success,
		Message:     res.Message,
		Imported:    map[string]int{},
		Skipped:     map[string]int{},
		Failed:      map[string]int{},
		DurationSec: elapsed.Seconds(),
		Timestamp:   s.deps.Now().UTC(),
	}
	for resource, st := range res.Stats {
		evt.Imported[resource] = st.Imported
		evt.Skipped[resource] = st.Skipped
		evt.Failed[resource] = st.Failed
	}
	b, err := json.Marshal(evt)
	if err != nil {
		s.logger.Error("failed to marshal import event", zap.Error(err))
		return
	}
	if err := s.deps.Publisher.Publish(ctx, s.deps.EventTopic, b); err != nil {
		s.logger.Error("failed to publish import event", zap.Error(err))
		return
	}
	s.logger.Info("published import event", zap.String("topic", s.deps.EventTopic))
}

// saveStats writes the run's statistics row. It runs even when ctx was
// cancelled mid-run so partial runs are still recorded.
func (s *ShopifyImportService) saveStats(ctx context.Context, importType string, run *trackRun, elapsed time.Duration) {
	if s.deps.Stats == nil {
		return
	}
	results := repository.ImportResults{
		TotalProcessed:        run.stats.Total(),
		SuccessfulImports:     run.stats.Imported,
		FailedImports:         run.stats.Failed,
		SkippedImports:        run.stats.Skipped,
		ImportMethod:          ImportMethodShopify,
		ProcessingTimeSeconds: int(elapsed.Seconds()),
		ImportDate:            s.deps.Now().UTC(),
	}
	if len(run.errors) > 0 {
		if b, err := json.Marshal(run.errors); err == nil {
			results.ErrorDetails = string(b)
		}
	}
	if _, err := s.deps.Stats.SaveImportResults(context.WithoutCancel(ctx), s.storeID, importType, results); err != nil {
		s.logger.Error("failed to save import statistics", zap.String("import_type", importType), zap.Error(err))
	}
}

// resolveIdentity finds the local row for a Shopify record. The external id
// wins; the natural key is only trusted when that row has no other source.
// linked reports whether the row was found by external id.
func resolveIdentity[T any](byExternalID, byNaturalKey func() (*T, error), sourceOf func(*T) *string, naturalKey string) (row *T, linked bool, err error) {
	row, err = byExternalID()
	if err != nil {
		return nil, false, err
	}
	if row != nil {
		return row, true, nil
	}
	if naturalKey == "" {
		return nil, false, nil
	}
	row, err = byNaturalKey()
	if err != nil || row == nil {
		return nil, false, err
	}
	if src := sourceOf(row); src != nil && *src != "" && *src != models.ExternalSourceShopify {
		return nil, false, &identityConflictError{key: naturalKey, source: *src}
	}
	return row, false, nil
}

func isIdentityConflict(err error) bool {
	var conflict *identityConflictError
	return errors.As(err, &conflict)
}

func applyLimit[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

func strPtr(s string) *string { return &s }
