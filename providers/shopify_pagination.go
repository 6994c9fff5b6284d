package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// GetAllProducts fetches every product of the shop.
func (c *ShopifyClient) GetAllProducts(ctx context.Context, onPage PageFunc) ([]ShopifyProduct, error) {
	return fetchAll(ctx, c, "/products.json", "products", nil,
		func(p ShopifyProduct) int64 { return p.ID }, onPage)
}

// GetAllCustomCollections fetches every custom collection.
func (c *ShopifyClient) GetAllCustomCollections(ctx context.Context, onPage PageFunc) ([]ShopifyCollection, error) {
	cols, err := fetchAll(ctx, c, "/custom_collections.json", "custom_collections", nil,
		func(col ShopifyCollection) int64 { return col.ID }, onPage)
	for i := range cols {
		cols[i].CollectionType = "custom"
	}
	return cols, err
}

// GetAllSmartCollections fetches every smart (rule-based) collection.
func (c *ShopifyClient) GetAllSmartCollections(ctx context.Context, onPage PageFunc) ([]ShopifyCollection, error) {
	cols, err := fetchAll(ctx, c, "/smart_collections.json", "smart_collections", nil,
		func(col ShopifyCollection) int64 { return col.ID }, onPage)
	for i := range cols {
		cols[i].CollectionType = "smart"
	}
	return cols, err
}

// GetAllCollects fetches every product/custom-collection membership.
func (c *ShopifyClient) GetAllCollects(ctx context.Context, onPage PageFunc) ([]ShopifyCollect, error) {
	return fetchAll(ctx, c, "/collects.json", "collects", nil,
		func(col ShopifyCollect) int64 { return col.ID }, onPage)
}

// fetchAll walks a listing endpoint with a since_id cursor. It keeps going
// while pages come back full, pausing rateLimitDelay between pages, and
// returns nothing if any page fails.
func fetchAll[T any](ctx context.Context, c *ShopifyClient, endpoint, key string, params url.Values, idOf func(T) int64, onPage PageFunc) ([]T, error) {
	var (
		all     []T
		sinceID int64
	)
	for page := 1; ; page++ {
		q := url.Values{}
		for k, v := range params {
			q[k] = v
		}
		q.Set("limit", strconv.Itoa(c.pageLimit))
		if sinceID > 0 {
			q.Set("since_id", strconv.FormatInt(sinceID, 10))
		}

		var envelope map[string]json.RawMessage
		if err := c.makeRequest(ctx, http.MethodGet, endpoint, nil, q, &envelope); err != nil {
			return nil, err
		}
		var batch []T
		if raw, ok := envelope[key]; ok {
			if err := json.Unmarshal(raw, &batch); err != nil {
				return nil, fmt.Errorf("decode %s page %d: %w", key, page, err)
			}
		}
		all = append(all, batch...)

		if onPage != nil {
			onPage(PageProgress{Resource: key, Page: page, Fetched: len(all), LastBatch: len(batch)})
		}
		if len(batch) < c.pageLimit {
			return all, nil
		}

		sinceID = idOf(batch[len(batch)-1])
		if err := c.sleep(ctx, c.rateLimitDelay); err != nil {
			return nil, err
		}
	}
}
