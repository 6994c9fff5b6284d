package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// File is an in-memory upload.
type File struct {
	Buffer       []byte
	MimeType     string
	Size         int64
	OriginalName string
}

// UploadOptions mirror what every provider understands.
type UploadOptions struct {
	ContentType string
	Folder      string
	Public      bool
	// Upsert overwrites an existing object; when false an existing object is kept.
	Upsert bool
}

// UploadResult is what the caller stores.
type UploadResult struct {
	URL      string `json:"url"`
	Path     string `json:"path"`
	Provider string `json:"provider"`
}

// Provider writes files to one backend.
type Provider interface {
	Name() string
	Upload(ctx context.Context, file File, path string, opts UploadOptions) (*UploadResult, error)
}

// Manager resolves the storage provider configured for a store.
type Manager struct {
	mu          sync.RWMutex
	providers   map[string]Provider
	defaultName string
	perStore    map[uuid.UUID]string
}

// NewManager registers providers; the first one is the default until
// SetDefault says otherwise.
func NewManager(providers ...Provider) *Manager {
	m := &Manager{
		providers: make(map[string]Provider, len(providers)),
		perStore:  make(map[uuid.UUID]string),
	}
	for _, p := range providers {
		if p == nil {
			continue
		}
		if m.defaultName == "" {
			m.defaultName = p.Name()
		}
		m.providers[p.Name()] = p
	}
	return m
}

// SetDefault selects the provider used by stores without an override.
func (m *Manager) SetDefault(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.providers[name]; !ok {
		return fmt.Errorf("storage provider %q is not registered", name)
	}
	m.defaultName = name
	return nil
}

// SetStoreProvider pins storeID to a registered provider.
func (m *Manager) SetStoreProvider(storeID uuid.UUID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.providers[name]; !ok {
		return fmt.Errorf("storage provider %q is not registered", name)
	}
	m.perStore[storeID] = name
	return nil
}

// GetProvider returns the provider for storeID.
func (m *Manager) GetProvider(_ context.Context, storeID uuid.UUID) (Provider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	name, ok := m.perStore[storeID]
	if !ok {
		name = m.defaultName
	}
	p, ok := m.providers[name]
	if !ok {
		return nil, fmt.Errorf("no storage provider configured for store %s", storeID)
	}
	return p, nil
}
