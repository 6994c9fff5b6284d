package services

import (
	"errors"
	"fmt"
)

// ErrNoShopifyConnection is returned when the store never completed the Shopify OAuth grant.
var ErrNoShopifyConnection = errors.New("no Shopify connection found")

// ImportMethodShopify is recorded on every statistics row this importer writes.
const ImportMethodShopify = "shopify"

// Error types recorded per failed record.
const (
	ErrorTypeCollection = "collection"
	ErrorTypeProduct    = "product"
)

// PreviewSize caps the number of records returned by a dry run.
const PreviewSize = 5

// ImportOptions tune one import run.
type ImportOptions struct {
	DryRun bool
	// Limit processes at most Limit records per track; zero means all.
	Limit int
	// SkipExisting leaves records already linked by external id untouched.
	SkipExisting bool
	// Events receives progress while the run is going; it is never closed by the service.
	Events chan<- ProgressEvent
}

// ImportStats are the counters of one track.
type ImportStats struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

func (s ImportStats) Total() int { return s.Imported + s.Skipped + s.Failed }

// ImportError describes one record that failed.
type ImportError struct {
	Type  string `json:"type"`
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Error string `json:"error"`
}

// PreviewItem is what a dry run shows for one record.
type PreviewItem struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Handle string `json:"handle"`
	Type   string `json:"type,omitempty"`
}

// ImportResult is returned by every import operation.
type ImportResult struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message,omitempty"`
	DryRun  bool                   `json:"dry_run,omitempty"`
	Total   int                    `json:"total"`
	Preview []PreviewItem          `json:"preview,omitempty"`
	Stats   map[string]ImportStats `json:"stats,omitempty"`
	Errors  []ImportError          `json:"errors,omitempty"`
}

func failedResult(err error) *ImportResult {
	return &ImportResult{Success: false, Message: err.Error()}
}

// ConnectionResult is returned by TestConnection.
type ConnectionResult struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Shop    *ShopDetail `json:"shop,omitempty"`
}

type ShopDetail struct {
	Name     string `json:"name"`
	Domain   string `json:"domain"`
	Email    string `json:"email"`
	Currency string `json:"currency"`
	Plan     string `json:"plan"`
}

// identityConflictError marks a record whose natural key belongs to another source.
type identityConflictError struct {
	key    string
	source string
}

func (e *identityConflictError) Error() string {
	return fmt.Sprintf("%q is already owned by source %q", e.key, e.source)
}
