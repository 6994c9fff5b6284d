package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yashrajoria/catalog-import/models"
	"github.com/yashrajoria/catalog-import/providers"
	"github.com/yashrajoria/catalog-import/repository"
)

// ---- Shopify ----

type fakeShopify struct {
	shop        *providers.ShopifyShop
	custom      []providers.ShopifyCollection
	smart       []providers.ShopifyCollection
	products    []providers.ShopifyProduct
	collects    []providers.ShopifyCollect
	customErr   error
	productsErr error
	collectsErr error
	productHits int
}

func (f *fakeShopify) GetShop(context.Context) (*providers.ShopifyShop, error) {
	if f.shop == nil {
		return nil, &providers.ShopifyAPIError{Method: "GET", Endpoint: "/shop.json", StatusCode: 401}
	}
	return f.shop, nil
}

func (f *fakeShopify) GetAllProducts(_ context.Context, onPage providers.PageFunc) ([]providers.ShopifyProduct, error) {
	f.productHits++
	if f.productsErr != nil {
		return nil, f.productsErr
	}
	if onPage != nil {
		onPage(providers.PageProgress{Resource: "products", Page: 1, Fetched: len(f.products), LastBatch: len(f.products)})
	}
	return f.products, nil
}

func (f *fakeShopify) GetAllCustomCollections(_ context.Context, _ providers.PageFunc) ([]providers.ShopifyCollection, error) {
	if f.customErr != nil {
		return nil, f.customErr
	}
	return f.custom, nil
}

func (f *fakeShopify) GetAllSmartCollections(_ context.Context, _ providers.PageFunc) ([]providers.ShopifyCollection, error) {
	return f.smart, nil
}

func (f *fakeShopify) GetAllCollects(_ context.Context, _ providers.PageFunc) ([]providers.ShopifyCollect, error) {
	if f.collectsErr != nil {
		return nil, f.collectsErr
	}
	return f.collects, nil
}

// ---- tokens ----

type fakeTokens struct {
	conn *models.ShopifyConnection
	err  error
}

func (f *fakeTokens) GetConnection(context.Context, uuid.UUID) (*models.ShopifyConnection, error) {
	return f.conn, f.err
}

func (f *fakeTokens) SaveConnection(_ context.Context, c *models.ShopifyConnection) error {
	f.conn = c
	return nil
}

// ---- catalog ----

type memCatalog struct {
	mu             sync.Mutex
	categories     map[uuid.UUID]*models.Category
	products       map[uuid.UUID]*models.Product
	translations   map[uuid.UUID]models.ProductTranslation
	languages      map[string]models.Language
	attributes     map[string]models.Attribute
	translationErr error
	productErr     error
}

func newMemCatalog() *memCatalog {
	return &memCatalog{
		categories:   map[uuid.UUID]*models.Category{},
		products:     map[uuid.UUID]*models.Product{},
		translations: map[uuid.UUID]models.ProductTranslation{},
		languages:    map[string]models.Language{},
		attributes:   map[string]models.Attribute{},
	}
}

func (m *memCatalog) Do(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	return fn(ctx, m.Repositories())
}

func (m *memCatalog) Repositories() repository.Repositories {
	return repository.Repositories{
		Categories:   memCategories{m},
		Products:     memProducts{m},
		Translations: memTranslations{m},
		Attributes:   memAttributes{m},
	}
}

func eq(p *string, v string) bool { return p != nil && *p == v }

type memCategories struct{ m *memCatalog }

func (r memCategories) FindByExternalID(_ context.Context, storeID uuid.UUID, externalID string) (*models.Category, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, c := range r.m.categories {
		if c.StoreID == storeID && eq(c.ExternalID, externalID) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r memCategories) FindBySlug(_ context.Context, storeID uuid.UUID, slug string) (*models.Category, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, c := range r.m.categories {
		if c.StoreID == storeID && c.Slug == slug {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r memCategories) Create(_ context.Context, c *models.Category) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, existing := range r.m.categories {
		if existing.StoreID == c.StoreID && existing.Slug == c.Slug {
			return errors.New(`duplicate key value violates unique constraint "idx_categories_store_slug"`)
		}
	}
	cp := *c
	r.m.categories[c.ID] = &cp
	return nil
}

func (r memCategories) Update(_ context.Context, c *models.Category) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	cp := *c
	r.m.categories[c.ID] = &cp
	return nil
}

func (r memCategories) IDsByExternalIDs(_ context.Context, storeID uuid.UUID, externalIDs []string) (map[string]uuid.UUID, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := map[string]uuid.UUID{}
	for _, id := range externalIDs {
		for _, c := range r.m.categories {
			if c.StoreID == storeID && eq(c.ExternalID, id) && eq(c.ExternalSource, models.ExternalSourceShopify) {
				out[id] = c.ID
			}
		}
	}
	return out, nil
}

type memProducts struct{ m *memCatalog }

func (r memProducts) FindByExternalID(_ context.Context, storeID uuid.UUID, externalID string) (*models.Product, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, p := range r.m.products {
		if p.StoreID == storeID && eq(p.ExternalID, externalID) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r memProducts) FindBySKU(_ context.Context, storeID uuid.UUID, sku string) (*models.Product, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, p := range r.m.products {
		if p.StoreID == storeID && p.SKU == sku {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r memProducts) Create(_ context.Context, p *models.Product) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.productErr != nil {
		return r.m.productErr
	}
	cp := *p
	r.m.products[p.ID] = &cp
	return nil
}

func (r memProducts) Update(_ context.Context, p *models.Product) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.productErr != nil {
		return r.m.productErr
	}
	cp := *p
	r.m.products[p.ID] = &cp
	return nil
}

type memTranslations struct{ m *memCatalog }

func (r memTranslations) SaveProductTranslation(_ context.Context, lang models.Language, tr *models.ProductTranslation) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.translationErr != nil {
		return r.m.translationErr
	}
	r.m.languages[lang.Code] = lang
	r.m.translations[tr.ProductID] = *tr
	return nil
}

type memAttributes struct{ m *memCatalog }

func (r memAttributes) EnsureAttributes(_ context.Context, storeID uuid.UUID, attrs []models.Attribute) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	created := 0
	for _, a := range attrs {
		key := storeID.String() + "/" + a.Code
		if _, ok := r.m.attributes[key]; ok {
			continue
		}
		a.StoreID = storeID
		r.m.attributes[key] = a
		created++
	}
	return created, nil
}

// ---- statistics ----

type savedStat struct {
	importType string
	results    repository.ImportResults
}

type fakeStats struct {
	mu    sync.Mutex
	saved []savedStat
}

func (f *fakeStats) SaveImportResults(_ context.Context, storeID uuid.UUID, importType string, results repository.ImportResults) (*models.ImportStatistic, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, savedStat{importType: importType, results: results})
	return &models.ImportStatistic{StoreID: storeID, ImportType: importType}, nil
}

func (f *fakeStats) GetLatestStats(context.Context, uuid.UUID) ([]models.ImportStatistic, error) {
	return nil, nil
}

func (f *fakeStats) ListHistory(context.Context, uuid.UUID, int) ([]models.ImportStatistic, error) {
	return nil, nil
}

// ---- events / metrics ----

type fakePublisher struct {
	topic    string
	messages [][]byte
}

func (f *fakePublisher) Publish(_ context.Context, topic string, message []byte) error {
	f.topic = topic
	f.messages = append(f.messages, message)
	return nil
}

type fakeMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func (f *fakeMetrics) RecordCount(_ context.Context, name string, count int, dims map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts == nil {
		f.counts = map[string]int{}
	}
	key := name
	if r, ok := dims["Resource"]; ok {
		key += "/" + r
	}
	f.counts[key] += count
	return nil
}

func (f *fakeMetrics) RecordLatency(context.Context, string, time.Duration, map[string]string) error {
	return nil
}

// ---- images ----

type passthroughImages struct {
	calls []string
}

func (p *passthroughImages) Rehost(_ context.Context, _ uuid.UUID, src, handle string, index int) (string, bool) {
	p.calls = append(p.calls, src)
	return "https://store.test/" + ImagePath(handle, index, ImageExtension(src)), true
}
