package providers

import (
	"encoding/json"
	"time"
)

// ---- Shopify Admin REST resources (only the fields the importer reads) ----

type ShopifyShop struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Domain   string `json:"domain"`
	MyDomain string `json:"myshopify_domain"`
	Currency string `json:"currency"`
	PlanName string `json:"plan_name"`
	Timezone string `json:"iana_timezone"`
}

type ShopifyImage struct {
	ID        int64   `json:"id"`
	ProductID int64   `json:"product_id"`
	Position  int     `json:"position"`
	Src       string  `json:"src"`
	Alt       *string `json:"alt"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
}

// ShopifyVariant prices are decimal strings ("19.99"); compare_at_price may be null.
type ShopifyVariant struct {
	ID                  int64   `json:"id"`
	ProductID           int64   `json:"product_id"`
	Title               string  `json:"title"`
	SKU                 string  `json:"sku"`
	Barcode             *string `json:"barcode"`
	Price               string  `json:"price"`
	CompareAtPrice      *string `json:"compare_at_price"`
	Position            int     `json:"position"`
	InventoryPolicy     string  `json:"inventory_policy"`
	InventoryManagement *string `json:"inventory_management"`
	InventoryQuantity   int     `json:"inventory_quantity"`
	InventoryItemID     int64   `json:"inventory_item_id"`
	Weight              float64 `json:"weight"`
	WeightUnit          string  `json:"weight_unit"`
	Option1             *string `json:"option1"`
	Option2             *string `json:"option2"`
	Option3             *string `json:"option3"`
	RequiresShipping    bool    `json:"requires_shipping"`
	Taxable             bool    `json:"taxable"`
}

type ShopifyOption struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Position int      `json:"position"`
	Values   []string `json:"values"`
}

type ShopifyProduct struct {
	ID             int64            `json:"id"`
	Title          string           `json:"title"`
	BodyHTML       string           `json:"body_html"`
	Vendor         string           `json:"vendor"`
	ProductType    string           `json:"product_type"`
	Handle         string           `json:"handle"`
	Status         string           `json:"status"`
	Tags           string           `json:"tags"`
	TemplateSuffix *string          `json:"template_suffix"`
	PublishedAt    *time.Time       `json:"published_at"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	Variants       []ShopifyVariant `json:"variants"`
	Options        []ShopifyOption  `json:"options"`
	Images         []ShopifyImage   `json:"images"`
	Image          *ShopifyImage    `json:"image"`
}

// ShopifyCollection covers both custom and smart collections; CollectionType
// is set by the client since the API does not return it.
type ShopifyCollection struct {
	ID             int64           `json:"id"`
	Title          string          `json:"title"`
	Handle         string          `json:"handle"`
	BodyHTML       string          `json:"body_html"`
	SortOrder      string          `json:"sort_order"`
	PublishedScope string          `json:"published_scope"`
	TemplateSuffix *string         `json:"template_suffix"`
	PublishedAt    *time.Time      `json:"published_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Image          *ShopifyImage   `json:"image"`
	Rules          json.RawMessage `json:"rules,omitempty"`
	Disjunctive    *bool           `json:"disjunctive,omitempty"`
	CollectionType string          `json:"collection_type,omitempty"`
}

// ShopifyCollect links a product to a custom collection.
type ShopifyCollect struct {
	ID           int64 `json:"id"`
	CollectionID int64 `json:"collection_id"`
	ProductID    int64 `json:"product_id"`
	Position     int   `json:"position"`
}

type ShopifyCustomer struct {
	ID          int64     `json:"id"`
	Email       string    `json:"email"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	OrdersCount int       `json:"orders_count"`
	TotalSpent  string    `json:"total_spent"`
	CreatedAt   time.Time `json:"created_at"`
}

type ShopifyOrder struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	FinancialStatus   string    `json:"financial_status"`
	FulfillmentStatus *string   `json:"fulfillment_status"`
	TotalPrice        string    `json:"total_price"`
	Currency          string    `json:"currency"`
	CreatedAt         time.Time `json:"created_at"`
}

type ShopifyInventoryLevel struct {
	InventoryItemID int64     `json:"inventory_item_id"`
	LocationID      int64     `json:"location_id"`
	Available       *int      `json:"available"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type ShopifyMetafield struct {
	ID        int64  `json:"id"`
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Value     any    `json:"value"`
	Type      string `json:"type"`
	OwnerID   int64  `json:"owner_id"`
	OwnerType string `json:"owner_resource"`
}

// PageProgress is reported after each fetched page of a paginated listing.
type PageProgress struct {
	Resource  string `json:"resource"`
	Page      int    `json:"page"`
	Fetched   int    `json:"fetched"`
	LastBatch int    `json:"last_batch"`
}

// PageFunc receives PageProgress after every page.
type PageFunc func(PageProgress)
