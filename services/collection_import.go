package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/yashrajoria/catalog-import/models"
	"github.com/yashrajoria/catalog-import/providers"
	"github.com/yashrajoria/catalog-import/repository"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

func (s *ShopifyImportService) collectionsTrack(ctx context.Context, opts ImportOptions, em progressEmitter) (*trackRun, error) {
	start := s.deps.Now()
	em.emit(ctx, ProgressEvent{Resource: ResourceCollections, Stage: StageFetching, Message: "Fetching collections"})

	custom, err := s.client.GetAllCustomCollections(ctx, em.pageFunc(ctx, ResourceCollections))
	if err != nil {
		return nil, fmt.Errorf("fetch custom collections: %w", err)
	}
	smart, err := s.client.GetAllSmartCollections(ctx, em.pageFunc(ctx, ResourceCollections))
	if err != nil {
		return nil, fmt.Errorf("fetch smart collections: %w", err)
	}
	collections := applyLimit(append(custom, smart...), opts.Limit)

	run := &trackRun{resource: ResourceCollections, total: len(collections)}
	if opts.DryRun {
		run.dryRun = true
		for _, c := range applyLimit(collections, PreviewSize) {
			run.preview = append(run.preview, PreviewItem{ID: c.ID, Title: c.Title, Handle: c.Handle, Type: c.CollectionType})
		}
		return run, nil
	}

	s.logger.Info("importing shopify collections", zap.Int("count", len(collections)))
	for i, col := range collections {
		if err := ctx.Err(); err != nil {
			s.saveStats(ctx, models.ImportTypeCategories, run, s.deps.Now().Sub(start))
			return nil, fmt.Errorf("collection import interrupted: %w", err)
		}

		outcome, err := s.importCollection(ctx, col, opts)
		if err != nil {
			s.logger.Warn("collection import failed",
				zap.Int64("collection_id", col.ID),
				zap.String("title", col.Title),
				zap.Error(err),
			)
			run.fail(ErrorTypeCollection, col.ID, col.Title, err)
		} else {
			run.count(outcome)
		}

		em.emit(ctx, ProgressEvent{
			Resource: ResourceCollections,
			Stage:    StageProcessing,
			Message:  col.Title,
			Current:  i + 1,
			Total:    len(collections),
		})
	}

	s.saveStats(ctx, models.ImportTypeCategories, run, s.deps.Now().Sub(start))
	return run, nil
}

// importCollection upserts one collection as a root category in its own transaction.
func (s *ShopifyImportService) importCollection(ctx context.Context, col providers.ShopifyCollection, opts ImportOptions) (recordOutcome, error) {
	externalID := strconv.FormatInt(col.ID, 10)
	outcome := outcomeImported

	err := s.deps.UnitOfWork.Do(ctx, func(ctx context.Context, repos repository.Repositories) error {
		existing, linked, err := resolveIdentity(
			func() (*models.Category, error) { return repos.Categories.FindByExternalID(ctx, s.storeID, externalID) },
			func() (*models.Category, error) { return repos.Categories.FindBySlug(ctx, s.storeID, col.Handle) },
			func(c *models.Category) *string { return c.ExternalSource },
			col.Handle,
		)
		if err != nil {
			return err
		}
		if linked && opts.SkipExisting {
			outcome = outcomeSkipped
			return nil
		}

		category := existing
		if category == nil {
			category = &models.Category{ID: uuid.New(), StoreID: s.storeID}
		}
		if err := mapCollection(category, col, externalID); err != nil {
			return err
		}
		if existing == nil {
			return repos.Categories.Create(ctx, category)
		}
		return repos.Categories.Update(ctx, category)
	})
	if isIdentityConflict(err) {
		s.logger.Warn("collection skipped: slug belongs to another source",
			zap.Int64("collection_id", col.ID),
			zap.Error(err),
		)
		return outcomeSkipped, nil
	}
	return outcome, err
}

func mapCollection(c *models.Category, col providers.ShopifyCollection, externalID string) error {
	slug := col.Handle
	if slug == "" {
		slug = "collection-" + externalID
	}
	c.Name = col.Title
	c.Slug = slug
	c.Description = col.BodyHTML
	c.MetaTitle = col.Title
	c.MetaDescription = metaDescription(col.BodyHTML)
	c.Level = 0
	c.ParentID = nil
	c.IsActive = col.PublishedAt != nil
	c.SortOrder = 0
	c.ExternalID = strPtr(externalID)
	c.ExternalSource = strPtr(models.ExternalSourceShopify)

	seo, err := collectionSeoData(col)
	if err != nil {
		return fmt.Errorf("encode seo_data: %w", err)
	}
	c.SeoData = seo
	return nil
}

func collectionSeoData(col providers.ShopifyCollection) (datatypes.JSON, error) {
	data := map[string]any{
		"shopify_id":      col.ID,
		"handle":          col.Handle,
		"collection_type": col.CollectionType,
		"sort_order":      col.SortOrder,
		"published_scope": col.PublishedScope,
		"template_suffix": col.TemplateSuffix,
		"updated_at":      col.UpdatedAt,
	}
	if len(col.Rules) > 0 {
		data["rules"] = col.Rules
	}
	if col.Disjunctive != nil {
		data["disjunctive"] = *col.Disjunctive
	}
	if col.Image != nil {
		img := map[string]any{"src": col.Image.Src}
		if col.Image.Alt != nil {
			img["alt"] = *col.Image.Alt
		}
		data["image"] = img
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}
