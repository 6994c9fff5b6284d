package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// ShopifyAPIVersion is the Admin REST API version every call is pinned to.
	ShopifyAPIVersion = "2023-10"

	// CallLimitHeader reports leaky-bucket usage as "used/limit".
	CallLimitHeader = "X-Shopify-Shop-Api-Call-Limit"
	accessTokenHdr  = "X-Shopify-Access-Token"

	// DefaultRateLimitDelay is the base pause used for throttling and between pages.
	DefaultRateLimitDelay = 500 * time.Millisecond
	// TooManyRequestsDelay is the fixed pause before the single 429 retry.
	TooManyRequestsDelay = 2 * time.Second
	// PageLimit is the page size requested from listing endpoints.
	PageLimit = 250
)

// ShopifyAPIError is returned for any non-2xx response.
type ShopifyAPIError struct {
	Method     string
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *ShopifyAPIError) Error() string {
	return fmt.Sprintf("shopify API error %s %s (status %d): %s", e.Method, e.Endpoint, e.StatusCode, e.Body)
}

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ShopifyClient talks to one shop's Admin REST API.
type ShopifyClient struct {
	baseURL        string
	accessToken    string
	httpClient     *http.Client
	sleep          SleepFunc
	rateLimitDelay time.Duration
	pageLimit      int
	logger         *zap.Logger
}

// ClientOption customises a ShopifyClient.
type ClientOption func(*ShopifyClient)

// WithBaseURL replaces https://{shop}/admin/api/{version}.
func WithBaseURL(u string) ClientOption {
	return func(c *ShopifyClient) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *ShopifyClient) { c.httpClient = hc }
}

func WithSleep(fn SleepFunc) ClientOption {
	return func(c *ShopifyClient) { c.sleep = fn }
}

func WithRateLimitDelay(d time.Duration) ClientOption {
	return func(c *ShopifyClient) { c.rateLimitDelay = d }
}

func WithPageLimit(n int) ClientOption {
	return func(c *ShopifyClient) {
		if n > 0 {
			c.pageLimit = n
		}
	}
}

func WithLogger(l *zap.Logger) ClientOption {
	return func(c *ShopifyClient) { c.logger = l }
}

// NewShopifyClient creates a client for shopDomain ("acme" or "acme.myshopify.com").
func NewShopifyClient(shopDomain, accessToken string, opts ...ClientOption) *ShopifyClient {
	c := &ShopifyClient{
		baseURL:        fmt.Sprintf("https://%s/admin/api/%s", NormalizeShopDomain(shopDomain), ShopifyAPIVersion),
		accessToken:    accessToken,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		sleep:          sleepContext,
		rateLimitDelay: DefaultRateLimitDelay,
		pageLimit:      PageLimit,
		logger:         zap.L(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NormalizeShopDomain strips scheme and path and appends .myshopify.com to bare shop names.
func NormalizeShopDomain(shop string) string {
	shop = strings.TrimSpace(strings.ToLower(shop))
	shop = strings.TrimPrefix(strings.TrimPrefix(shop, "https://"), "http://")
	if i := strings.Index(shop, "/"); i >= 0 {
		shop = shop[:i]
	}
	if shop != "" && !strings.Contains(shop, ".") {
		shop += ".myshopify.com"
	}
	return shop
}

// ThrottleDelay maps a call-limit header to the pause taken after a response:
// above 80% usage twice the base delay, above 60% the base delay, otherwise none.
func ThrottleDelay(header string, base time.Duration) time.Duration {
	used, limit, ok := strings.Cut(strings.TrimSpace(header), "/")
	if !ok {
		return 0
	}
	u, err1 := strconv.ParseFloat(used, 64)
	l, err2 := strconv.ParseFloat(limit, 64)
	if err1 != nil || err2 != nil || l <= 0 {
		return 0
	}
	switch ratio := u / l; {
	case ratio > 0.8:
		return 2 * base
	case ratio > 0.6:
		return base
	default:
		return 0
	}
}

// ---- single-resource endpoints ----

// GetShop returns /shop.json; used as the connection test.
func (c *ShopifyClient) GetShop(ctx context.Context) (*ShopifyShop, error) {
	var resp struct {
		Shop ShopifyShop `json:"shop"`
	}
	if err := c.makeRequest(ctx, http.MethodGet, "/shop.json", nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Shop, nil
}

func (c *ShopifyClient) GetProduct(ctx context.Context, id int64) (*ShopifyProduct, error) {
	var resp struct {
		Product ShopifyProduct `json:"product"`
	}
	if err := c.makeRequest(ctx, http.MethodGet, fmt.Sprintf("/products/%d.json", id), nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Product, nil
}

func (c *ShopifyClient) GetProductVariants(ctx context.Context, productID int64) ([]ShopifyVariant, error) {
	var resp struct {
		Variants []ShopifyVariant `json:"variants"`
	}
	if err := c.makeRequest(ctx, http.MethodGet, fmt.Sprintf("/products/%d/variants.json", productID), nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Variants, nil
}

func (c *ShopifyClient) GetCustomers(ctx context.Context, params url.Values) ([]ShopifyCustomer, error) {
	var resp struct {
		Customers []ShopifyCustomer `json:"customers"`
	}
	if err := c.makeRequest(ctx, http.MethodGet, "/customers.json", nil, params, &resp); err != nil {
		return nil, err
	}
	return resp.Customers, nil
}

func (c *ShopifyClient) GetOrders(ctx context.Context, params url.Values) ([]ShopifyOrder, error) {
	var resp struct {
		Orders []ShopifyOrder `json:"orders"`
	}
	if err := c.makeRequest(ctx, http.MethodGet, "/orders.json", nil, params, &resp); err != nil {
		return nil, err
	}
	return resp.Orders, nil
}

// GetInventoryLevels requires inventory_item_ids or location_ids in params.
func (c *ShopifyClient) GetInventoryLevels(ctx context.Context, params url.Values) ([]ShopifyInventoryLevel, error) {
	var resp struct {
		InventoryLevels []ShopifyInventoryLevel `json:"inventory_levels"`
	}
	if err := c.makeRequest(ctx, http.MethodGet, "/inventory_levels.json", nil, params, &resp); err != nil {
		return nil, err
	}
	return resp.InventoryLevels, nil
}

func (c *ShopifyClient) GetMetafields(ctx context.Context, params url.Values) ([]ShopifyMetafield, error) {
	var resp struct {
		Metafields []ShopifyMetafield `json:"metafields"`
	}
	if err := c.makeRequest(ctx, http.MethodGet, "/metafields.json", nil, params, &resp); err != nil {
		return nil, err
	}
	return resp.Metafields, nil
}

// ---- HTTP helper ----

// makeRequest performs one call, decoding the JSON body into out. A 429 is
// retried exactly once after TooManyRequestsDelay.
func (c *ShopifyClient) makeRequest(ctx context.Context, method, endpoint string, data interface{}, params url.Values, out interface{}) error {
	body, err := c.doRequest(ctx, method, endpoint, data, params)

	var apiErr *ShopifyAPIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
		c.logger.Warn("shopify rate limited, retrying once",
			zap.String("endpoint", endpoint),
			zap.Duration("delay", TooManyRequestsDelay),
		)
		if serr := c.sleep(ctx, TooManyRequestsDelay); serr != nil {
			return serr
		}
		body, err = c.doRequest(ctx, method, endpoint, data, params)
	}
	if err != nil {
		return err
	}

	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode shopify response %s: %w", endpoint, err)
		}
	}
	return nil
}

func (c *ShopifyClient) doRequest(ctx context.Context, method, endpoint string, data interface{}, params url.Values) ([]byte, error) {
	var reqBody io.Reader
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	target := c.baseURL + endpoint
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set(accessTokenHdr, c.accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("shopify %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response %s: %w", endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ShopifyAPIError{
			Method:     method,
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Body:       string(respBytes),
		}
	}

	if d := ThrottleDelay(resp.Header.Get(CallLimitHeader), c.rateLimitDelay); d > 0 {
		c.logger.Debug("shopify call limit pressure",
			zap.String("call_limit", resp.Header.Get(CallLimitHeader)),
			zap.Duration("delay", d),
		)
		if err := c.sleep(ctx, d); err != nil {
			return nil, err
		}
	}
	return respBytes, nil
}
