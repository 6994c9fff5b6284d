package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/yashrajoria/catalog-import/models"
	awspkg "github.com/yashrajoria/catalog-import/pkg/aws"
	"github.com/yashrajoria/catalog-import/providers"
	"github.com/yashrajoria/catalog-import/repository"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// productAttributes are created once per store before the first product import.
var productAttributes = []models.Attribute{
	{Code: "vendor", Name: "Vendor", Type: models.AttributeTypeText, IsFilterable: true, IsSearchable: true},
	{Code: "product_type", Name: "Product Type", Type: models.AttributeTypeSelect, IsFilterable: true},
	{Code: "tags", Name: "Tags", Type: models.AttributeTypeMultiselect, IsFilterable: true, IsSearchable: true},
	{Code: "barcode", Name: "Barcode", Type: models.AttributeTypeText, IsSearchable: true},
	{Code: "option1", Name: "Option 1", Type: models.AttributeTypeSelect, IsFilterable: true},
	{Code: "option2", Name: "Option 2", Type: models.AttributeTypeSelect, IsFilterable: true},
	{Code: "option3", Name: "Option 3", Type: models.AttributeTypeSelect, IsFilterable: true},
}

var defaultLanguage = models.Language{
	Code:       models.DefaultLanguageCode,
	Name:       "English",
	NativeName: "English",
	IsActive:   true,
}

func (s *ShopifyImportService) productsTrack(ctx context.Context, opts ImportOptions, em progressEmitter) (*trackRun, error) {
	start := s.deps.Now()
	em.emit(ctx, ProgressEvent{Resource: ResourceProducts, Stage: StageFetching, Message: "Fetching products"})

	products, err := s.client.GetAllProducts(ctx, em.pageFunc(ctx, ResourceProducts))
	if err != nil {
		return nil, fmt.Errorf("fetch products: %w", err)
	}
	products = applyLimit(products, opts.Limit)

	run := &trackRun{resource: ResourceProducts, total: len(products)}
	if opts.DryRun {
		run.dryRun = true
		for _, p := range applyLimit(products, PreviewSize) {
			run.preview = append(run.preview, PreviewItem{ID: p.ID, Title: p.Title, Handle: p.Handle, Type: p.ProductType})
		}
		return run, nil
	}

	s.ensureProductAttributes(ctx)
	categories := s.categoryMembership(ctx)

	s.logger.Info("importing shopify products", zap.Int("count", len(products)))
	for i, p := range products {
		if err := ctx.Err(); err != nil {
			s.saveStats(ctx, models.ImportTypeProducts, run, s.deps.Now().Sub(start))
			return nil, fmt.Errorf("product import interrupted: %w", err)
		}

		outcome, err := s.importProduct(ctx, p, opts, categories[p.ID])
		if err != nil {
			s.logger.Warn("product import failed",
				zap.Int64("product_id", p.ID),
				zap.String("title", p.Title),
				zap.Error(err),
			)
			run.fail(ErrorTypeProduct, p.ID, p.Title, err)
		} else {
			run.count(outcome)
		}

		em.emit(ctx, ProgressEvent{
			Resource: ResourceProducts,
			Stage:    StageProcessing,
			Message:  p.Title,
			Current:  i + 1,
			Total:    len(products),
		})
	}

	s.saveStats(ctx, models.ImportTypeProducts, run, s.deps.Now().Sub(start))
	return run, nil
}

func (s *ShopifyImportService) ensureProductAttributes(ctx context.Context) {
	attrs := make([]models.Attribute, len(productAttributes))
	for i, a := range productAttributes {
		a.ExternalSource = strPtr(models.ExternalSourceShopify)
		attrs[i] = a
	}
	created, err := s.deps.UnitOfWork.Repositories().Attributes.EnsureAttributes(ctx, s.storeID, attrs)
	if err != nil {
		s.logger.Warn("failed to ensure product attributes", zap.Error(err))
		return
	}
	if created > 0 {
		s.logger.Info("created product attributes", zap.Int("count", created))
	}
}

// categoryMembership maps Shopify product ids to local category ids using
// collects. Only custom collections have collects; smart collection
// membership is not resolved. Failures leave products without categories.
func (s *ShopifyImportService) categoryMembership(ctx context.Context) map[int64][]string {
	collects, err := s.client.GetAllCollects(ctx, nil)
	if err != nil {
		s.logger.Warn("failed to fetch collects, products will have no categories", zap.Error(err))
		return nil
	}

	byProduct := make(map[int64][]string)
	seen := make(map[string]struct{})
	var collectionIDs []string
	for _, c := range collects {
		id := strconv.FormatInt(c.CollectionID, 10)
		byProduct[c.ProductID] = append(byProduct[c.ProductID], id)
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			collectionIDs = append(collectionIDs, id)
		}
	}

	local, err := s.deps.UnitOfWork.Repositories().Categories.IDsByExternalIDs(ctx, s.storeID, collectionIDs)
	if err != nil {
		s.logger.Warn("failed to resolve collection categories", zap.Error(err))
		return nil
	}

	out := make(map[int64][]string, len(byProduct))
	for productID, ids := range byProduct {
		for _, ext := range ids {
			if catID, ok := local[ext]; ok {
				out[productID] = append(out[productID], catID.String())
			}
		}
	}
	return out
}

// importProduct downloads images first, then writes the product and its
// translation in one transaction. The translation runs in a savepoint and
// its failure never fails the product.
func (s *ShopifyImportService) importProduct(ctx context.Context, p providers.ShopifyProduct, opts ImportOptions, categoryIDs []string) (recordOutcome, error) {
	externalID := strconv.FormatInt(p.ID, 10)
	sku := productSKU(p)

	fields, err := s.deps.VariantMapper.Map(p)
	if err != nil {
		return outcomeImported, err
	}

	// Resolve before downloading so skipped records cost no image traffic.
	repos := s.deps.UnitOfWork.Repositories()
	_, linked, err := s.resolveProduct(ctx, repos, externalID, sku)
	if isIdentityConflict(err) {
		s.logger.Warn("product skipped: sku belongs to another source",
			zap.Int64("product_id", p.ID),
			zap.Error(err),
		)
		return outcomeSkipped, nil
	}
	if err != nil {
		return outcomeImported, err
	}
	if linked && opts.SkipExisting {
		return outcomeSkipped, nil
	}

	images := s.rehostImages(ctx, p)

	err = s.deps.UnitOfWork.Do(ctx, func(ctx context.Context, repos repository.Repositories) error {
		existing, _, err := s.resolveProduct(ctx, repos, externalID, sku)
		if err != nil {
			return err
		}
		product := existing
		if product == nil {
			product = &models.Product{ID: uuid.New(), StoreID: s.storeID}
		}
		mapProduct(product, p, fields, externalID, sku, images, categoryIDs)

		if existing == nil {
			err = repos.Products.Create(ctx, product)
		} else {
			err = repos.Products.Update(ctx, product)
		}
		if err != nil {
			return err
		}

		tr := &models.ProductTranslation{
			ProductID:        product.ID,
			LanguageCode:     models.DefaultLanguageCode,
			Name:             product.Name,
			Description:      product.Description,
			ShortDescription: product.ShortDescription,
		}
		if err := repos.Translations.SaveProductTranslation(ctx, defaultLanguage, tr); err != nil {
			s.logger.Warn("product translation not saved",
				zap.Int64("product_id", p.ID),
				zap.String("local_id", product.ID.String()),
				zap.Error(err),
			)
		}
		return nil
	})
	if isIdentityConflict(err) {
		return outcomeSkipped, nil
	}
	return outcomeImported, err
}

func (s *ShopifyImportService) resolveProduct(ctx context.Context, repos repository.Repositories, externalID, sku string) (*models.Product, bool, error) {
	return resolveIdentity(
		func() (*models.Product, error) { return repos.Products.FindByExternalID(ctx, s.storeID, externalID) },
		func() (*models.Product, error) { return repos.Products.FindBySKU(ctx, s.storeID, sku) },
		func(p *models.Product) *string { return p.ExternalSource },
		sku,
	)
}

// rehostImages copies images one at a time, in source order.
func (s *ShopifyImportService) rehostImages(ctx context.Context, p providers.ShopifyProduct) []models.ProductImage {
	images := make([]models.ProductImage, 0, len(p.Images))
	var rehosted, fallbacks int
	for i, img := range p.Images {
		src := img.Src
		if s.deps.Images != nil {
			var ok bool
			src, ok = s.deps.Images.Rehost(ctx, s.storeID, img.Src, p.Handle, i)
			if ok {
				rehosted++
			} else {
				fallbacks++
			}
		}
		position := img.Position
		if position == 0 {
			position = i + 1
		}
		var alt string
		if img.Alt != nil {
			alt = *img.Alt
		}
		images = append(images, models.ProductImage{Src: src, Alt: alt, Position: position, ShopifyID: img.ID})
	}

	if s.deps.Metrics != nil && (rehosted > 0 || fallbacks > 0) {
		_ = s.deps.Metrics.RecordCount(ctx, awspkg.MetricImagesRehosted, rehosted, nil)
		_ = s.deps.Metrics.RecordCount(ctx, awspkg.MetricImageFallbacks, fallbacks, nil)
	}
	return images
}

// productSKU is the Shopify handle, which is unique per shop.
func productSKU(p providers.ShopifyProduct) string {
	if p.Handle != "" {
		return p.Handle
	}
	return "shopify-" + strconv.FormatInt(p.ID, 10)
}

func productStatus(shopifyStatus string) string {
	switch shopifyStatus {
	case "active":
		return models.ProductStatusActive
	case "archived":
		return models.ProductStatusArchived
	default:
		return models.ProductStatusDraft
	}
}

func mapProduct(dst *models.Product, p providers.ShopifyProduct, f VariantFields, externalID, sku string, images []models.ProductImage, categoryIDs []string) {
	dst.Name = p.Title
	dst.Slug = sku
	dst.SKU = sku
	dst.Type = "simple"
	dst.Status = productStatus(p.Status)
	dst.Description = p.BodyHTML
	dst.ShortDescription = metaDescription(p.BodyHTML)
	dst.Price = f.Price
	dst.ComparePrice = f.ComparePrice
	dst.StockQuantity = f.StockQuantity
	dst.ManageStock = f.ManageStock
	dst.AllowBackorders = f.AllowBackorders
	dst.InventoryPolicy = f.InventoryPolicy
	dst.Weight = f.Weight
	dst.WeightUnit = f.WeightUnit
	dst.Images = datatypes.NewJSONType(images)
	dst.CategoryIDs = pq.StringArray(categoryIDs)
	dst.Attributes = productAttributeValues(p, f)
	dst.ExternalID = strPtr(externalID)
	dst.ExternalSource = strPtr(models.ExternalSourceShopify)
}

func productAttributeValues(p providers.ShopifyProduct, f VariantFields) datatypes.JSONMap {
	attrs := datatypes.JSONMap{}
	if p.Vendor != "" {
		attrs["vendor"] = p.Vendor
	}
	if p.ProductType != "" {
		attrs["product_type"] = p.ProductType
	}
	if tags := splitTags(p.Tags); len(tags) > 0 {
		attrs["tags"] = tags
	}
	if f.Barcode != "" {
		attrs["barcode"] = f.Barcode
	}
	for i, v := range f.Options {
		if v != "" {
			attrs[fmt.Sprintf("option%d", i+1)] = v
		}
	}
	return attrs
}

func splitTags(tags string) []string {
	var out []string
	for _, t := range strings.Split(tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
