package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sleepRecorder struct {
	mu    sync.Mutex
	calls []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, d)
	return nil
}

func (s *sleepRecorder) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.calls...)
}

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...ClientOption) (*ShopifyClient, *sleepRecorder) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	rec := &sleepRecorder{}
	base := []ClientOption{
		WithBaseURL(srv.URL + "/admin/api/" + ShopifyAPIVersion),
		WithSleep(rec.sleep),
		WithLogger(zap.NewNop()),
	}
	return NewShopifyClient("test-shop", "shpat_test", append(base, opts...)...), rec
}

func writeShop(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"shop":{"id":1,"name":"Acme","domain":"acme.test","currency":"USD"}}`))
}

func TestThrottleDelay(t *testing.T) {
	base := 500 * time.Millisecond
	cases := map[string]time.Duration{
		"81/100": time.Second,
		"61/100": 500 * time.Millisecond,
		"50/100": 0,
		"80/100": 500 * time.Millisecond,
		"60/100": 0,
		"39/40":  time.Second,
		"":       0,
		"junk":   0,
		"5/0":    0,
	}
	for header, want := range cases {
		assert.Equal(t, want, ThrottleDelay(header, base), "header %q", header)
	}
}

func TestMakeRequest_SleepsOnCallLimitPressure(t *testing.T) {
	cases := []struct {
		header string
		want   []time.Duration
	}{
		{"81/100", []time.Duration{1000 * time.Millisecond}},
		{"61/100", []time.Duration{500 * time.Millisecond}},
		{"50/100", nil},
	}
	for _, tc := range cases {
		t.Run(tc.header, func(t *testing.T) {
			client, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set(CallLimitHeader, tc.header)
				writeShop(w)
			})

			shop, err := client.GetShop(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "Acme", shop.Name)
			assert.Equal(t, tc.want, rec.recorded())
		})
	}
}

func TestMakeRequest_SendsAuthHeaderAndVersionedPath(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "shpat_test", r.Header.Get("X-Shopify-Access-Token"))
		assert.Equal(t, "/admin/api/2023-10/shop.json", r.URL.Path)
		writeShop(w)
	})

	_, err := client.GetShop(context.Background())
	require.NoError(t, err)
}

func TestMakeRequest_RetriesOnceOn429(t *testing.T) {
	var calls int32
	client, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"errors":"Exceeded 2 calls per second"}`))
			return
		}
		writeShop(w)
	})

	shop, err := client.GetShop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Acme", shop.Name)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, []time.Duration{TooManyRequestsDelay}, rec.recorded())
}

func TestMakeRequest_SecondRateLimitIsAnError(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.GetShop(context.Background())
	var apiErr *ShopifyAPIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestMakeRequest_WrapsOtherErrors(t *testing.T) {
	var calls int32
	client, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":"Invalid API key or access token"}`))
	})

	_, err := client.GetProduct(context.Background(), 42)
	var apiErr *ShopifyAPIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "/products/42.json", apiErr.Endpoint)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "Invalid API key")
	assert.Contains(t, err.Error(), "status 401")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Empty(t, rec.recorded())
}

func TestMakeRequest_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewShopifyClient("x", "t", WithBaseURL(url), WithLogger(zap.NewNop()))
	_, err := client.GetShop(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/shop.json")
	var apiErr *ShopifyAPIError
	assert.False(t, errors.As(err, &apiErr))
}

// productPages serves products 1..total in since_id order.
func productPages(total int, seen *[]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		*seen = append(*seen, q.Get("since_id"))
		limit, _ := strconv.Atoi(q.Get("limit"))
		since, _ := strconv.Atoi(q.Get("since_id"))

		products := []map[string]any{}
		for id := since + 1; id <= total && len(products) < limit; id++ {
			products = append(products, map[string]any{"id": id, "title": fmt.Sprintf("P%d", id), "handle": fmt.Sprintf("p-%d", id)})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"products": products})
	}
}

func TestGetAllProducts_PaginatesWithSinceID(t *testing.T) {
	var seen []string
	client, rec := newTestClient(t, productPages(5, &seen), WithPageLimit(2))

	var progress []PageProgress
	products, err := client.GetAllProducts(context.Background(), func(p PageProgress) {
		progress = append(progress, p)
	})
	require.NoError(t, err)

	require.Len(t, products, 5)
	assert.Equal(t, int64(5), products[4].ID)
	assert.Equal(t, []string{"", "2", "4"}, seen)
	assert.Equal(t, []time.Duration{DefaultRateLimitDelay, DefaultRateLimitDelay}, rec.recorded())
	assert.Equal(t, []PageProgress{
		{Resource: "products", Page: 1, Fetched: 2, LastBatch: 2},
		{Resource: "products", Page: 2, Fetched: 4, LastBatch: 2},
		{Resource: "products", Page: 3, Fetched: 5, LastBatch: 1},
	}, progress)
}

func TestGetAllProducts_FullLastPageRequestsOneMore(t *testing.T) {
	var seen []string
	client, _ := newTestClient(t, productPages(4, &seen), WithPageLimit(2))

	products, err := client.GetAllProducts(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, products, 4)
	assert.Equal(t, []string{"", "2", "4"}, seen)
}

func TestGetAllProducts_ErrorDiscardsEarlierPages(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"products":[{"id":1},{"id":2}]}`))
	}, WithPageLimit(2))

	products, err := client.GetAllProducts(context.Background(), nil)
	assert.Error(t, err)
	assert.Nil(t, products)
}

func TestGetAllCollections_TagsCollectionType(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/admin/api/2023-10/custom_collections.json":
			_, _ = w.Write([]byte(`{"custom_collections":[{"id":10,"title":"Summer","handle":"summer"}]}`))
		case "/admin/api/2023-10/smart_collections.json":
			_, _ = w.Write([]byte(`{"smart_collections":[{"id":20,"title":"Sale","handle":"sale","rules":[{"column":"tag","relation":"equals","condition":"sale"}]}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	custom, err := client.GetAllCustomCollections(context.Background(), nil)
	require.NoError(t, err)
	smart, err := client.GetAllSmartCollections(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, custom, 1)
	require.Len(t, smart, 1)
	assert.Equal(t, "custom", custom[0].CollectionType)
	assert.Equal(t, "smart", smart[0].CollectionType)
	assert.JSONEq(t, `[{"column":"tag","relation":"equals","condition":"sale"}]`, string(smart[0].Rules))
}

func TestNormalizeShopDomain(t *testing.T) {
	assert.Equal(t, "acme.myshopify.com", NormalizeShopDomain("acme"))
	assert.Equal(t, "acme.myshopify.com", NormalizeShopDomain("https://Acme.myshopify.com/admin"))
	assert.Equal(t, "shop.example.com", NormalizeShopDomain("shop.example.com"))
}

func TestSingleResourceCalls(t *testing.T) {
	var seen sync.Map
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen.Store(r.URL.Path, r.URL.RawQuery)
		w.Header().Set("Content-Type", "application/json")
		base := "/admin/api/" + ShopifyAPIVersion
		switch r.URL.Path {
		case base + "/products/7/variants.json":
			_, _ = w.Write([]byte(`{"variants":[{"id":70,"product_id":7,"price":"9.50"}]}`))
		case base + "/customers.json":
			_, _ = w.Write([]byte(`{"customers":[{"id":1,"email":"a@b.test"}]}`))
		case base + "/orders.json":
			_, _ = w.Write([]byte(`{"orders":[{"id":2,"name":"#1001"}]}`))
		case base + "/inventory_levels.json":
			_, _ = w.Write([]byte(`{"inventory_levels":[{"inventory_item_id":3,"location_id":4,"available":12}]}`))
		case base + "/metafields.json":
			_, _ = w.Write([]byte(`{"metafields":[{"id":5,"namespace":"custom","key":"care"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	variants, err := client.GetProductVariants(ctx, 7)
	require.NoError(t, err)
	require.Len(t, variants, 1)
	assert.Equal(t, "9.50", variants[0].Price)

	customers, err := client.GetCustomers(ctx, url.Values{"limit": {"5"}})
	require.NoError(t, err)
	require.Len(t, customers, 1)
	assert.Equal(t, "a@b.test", customers[0].Email)

	orders, err := client.GetOrders(ctx, nil)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "#1001", orders[0].Name)

	levels, err := client.GetInventoryLevels(ctx, url.Values{"location_ids": {"4"}})
	require.NoError(t, err)
	require.Len(t, levels, 1)
	require.NotNil(t, levels[0].Available)
	assert.Equal(t, 12, *levels[0].Available)

	fields, err := client.GetMetafields(ctx, nil)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, "care", fields[0].Key)

	q, ok := seen.Load("/admin/api/" + ShopifyAPIVersion + "/customers.json")
	require.True(t, ok)
	assert.Equal(t, "limit=5", q)
}
