package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryUploader is satisfied by *uploader.API.
type CloudinaryUploader interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
}

// CloudinaryProvider stores files as Cloudinary assets.
type CloudinaryProvider struct {
	uploader   CloudinaryUploader
	rootFolder string
}

// NewCloudinaryFromURL builds a provider from a cloudinary:// URL.
func NewCloudinaryFromURL(cloudinaryURL, rootFolder string) (*CloudinaryProvider, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("cloudinary init error: %w", err)
	}
	cld.Config.URL.Secure = true
	return NewCloudinaryProvider(&cld.Upload, rootFolder), nil
}

func NewCloudinaryProvider(u CloudinaryUploader, rootFolder string) *CloudinaryProvider {
	return &CloudinaryProvider{uploader: u, rootFolder: rootFolder}
}

func (p *CloudinaryProvider) Name() string { return "cloudinary" }

// Upload maps path to a public ID; Cloudinary drops the extension from it.
func (p *CloudinaryProvider) Upload(ctx context.Context, file File, objectPath string, opts UploadOptions) (*UploadResult, error) {
	publicID := strings.TrimSuffix(objectPath, path.Ext(objectPath))

	params := uploader.UploadParams{
		PublicID:  publicID,
		Folder:    path.Join(p.rootFolder, opts.Folder),
		Overwrite: api.Bool(opts.Upsert),
	}
	resp, err := p.uploader.Upload(ctx, bytes.NewReader(file.Buffer), params)
	if err != nil {
		return nil, fmt.Errorf("cloudinary upload %s: %w", file.OriginalName, err)
	}
	if resp.Error.Message != "" {
		return nil, fmt.Errorf("cloudinary upload %s: %s", file.OriginalName, resp.Error.Message)
	}
	return &UploadResult{URL: resp.SecureURL, Path: resp.PublicID, Provider: p.Name()}, nil
}
