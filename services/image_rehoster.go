package services

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yashrajoria/catalog-import/storage"
	"go.uber.org/zap"
)

// ImageDownloadTimeout bounds each image download.
const ImageDownloadTimeout = 30 * time.Second

const maxImageBytes = 20 << 20

var imageMimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".avif": "image/avif",
}

// ProviderResolver returns the storage provider of a store; *storage.Manager implements it.
type ProviderResolver interface {
	GetProvider(ctx context.Context, storeID uuid.UUID) (storage.Provider, error)
}

// ImageRehoster copies remote product images into the store's own storage.
type ImageRehoster struct {
	httpClient *http.Client
	storage    ProviderResolver
	logger     *zap.Logger
}

func NewImageRehoster(resolver ProviderResolver, httpClient *http.Client, logger *zap.Logger) *ImageRehoster {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: ImageDownloadTimeout}
	}
	if logger == nil {
		logger = zap.L()
	}
	return &ImageRehoster{httpClient: httpClient, storage: resolver, logger: logger}
}

// Rehost downloads src and uploads it for storeID. On any failure it logs and
// returns src unchanged, with ok=false.
func (r *ImageRehoster) Rehost(ctx context.Context, storeID uuid.UUID, src, handle string, index int) (string, bool) {
	u, err := r.rehost(ctx, storeID, src, handle, index)
	if err != nil {
		r.logger.Warn("image rehost failed, keeping source URL",
			zap.String("store_id", storeID.String()),
			zap.String("src", src),
			zap.Error(err),
		)
		return src, false
	}
	return u, true
}

func (r *ImageRehoster) rehost(ctx context.Context, storeID uuid.UUID, src, handle string, index int) (string, error) {
	body, contentType, err := r.download(ctx, src)
	if err != nil {
		return "", err
	}

	ext := ImageExtension(src)
	mimeType := MimeTypeForExtension(ext)
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil && mediaType != "" {
		if !strings.HasPrefix(mediaType, "image/") && mediaType != "application/octet-stream" {
			return "", fmt.Errorf("unexpected content type %q", mediaType)
		}
	}

	provider, err := r.storage.GetProvider(ctx, storeID)
	if err != nil {
		return "", err
	}

	objectPath := ImagePath(handle, index, ext)
	res, err := provider.Upload(ctx, storage.File{
		Buffer:       body,
		MimeType:     mimeType,
		Size:         int64(len(body)),
		OriginalName: path.Base(objectPath),
	}, objectPath, storage.UploadOptions{
		ContentType: mimeType,
		Public:      true,
		Upsert:      true,
	})
	if err != nil {
		return "", err
	}
	if res == nil || res.URL == "" {
		return "", fmt.Errorf("storage provider %s returned no URL", provider.Name())
	}
	return res.URL, nil
}

func (r *ImageRehoster) download(ctx context.Context, src string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, ImageDownloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("download: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}
	if len(body) == 0 {
		return nil, "", fmt.Errorf("download: empty body")
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// ImageExtension resolves the file extension of an image URL, falling back to
// substring matches and finally ".jpg".
func ImageExtension(src string) string {
	p := src
	if u, err := url.Parse(src); err == nil {
		p = u.Path
	}
	if ext := strings.ToLower(path.Ext(p)); ext != "" {
		if _, ok := imageMimeTypes[ext]; ok {
			return ext
		}
	}

	lower := strings.ToLower(src)
	switch {
	case strings.Contains(lower, ".png"):
		return ".png"
	case strings.Contains(lower, ".jpeg"):
		return ".jpeg"
	case strings.Contains(lower, ".jpg"):
		return ".jpg"
	case strings.Contains(lower, ".webp"):
		return ".webp"
	case strings.Contains(lower, ".gif"):
		return ".gif"
	}
	return ".jpg"
}

func MimeTypeForExtension(ext string) string {
	if m, ok := imageMimeTypes[strings.ToLower(ext)]; ok {
		return m
	}
	return "image/jpeg"
}

// ImagePath shards by the first two characters of handle:
// products/{c1}/{c2}/{handle}-{index}{ext}.
func ImagePath(handle string, index int, ext string) string {
	handle = strings.ToLower(strings.TrimSpace(handle))
	c1, c2 := "_", "_"
	if len(handle) > 0 {
		c1 = handle[:1]
	}
	if len(handle) > 1 {
		c2 = handle[1:2]
	}
	name := handle
	if name == "" {
		name = "image"
	}
	return fmt.Sprintf("products/%s/%s/%s-%d%s", c1, c2, name, index, ext)
}
