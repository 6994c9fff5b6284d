package storage

import (
	"context"
	"fmt"
	"path"
)

// ObjectStore is the slice of pkg/aws.S3Client the provider uses.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, body []byte, contentType string) error
	ObjectExists(ctx context.Context, key string) (bool, error)
	ObjectURL(ctx context.Context, key string, public bool) (string, error)
}

// S3Provider stores files in an S3 bucket under an optional key prefix.
type S3Provider struct {
	store  ObjectStore
	prefix string
}

func NewS3Provider(store ObjectStore, prefix string) *S3Provider {
	return &S3Provider{store: store, prefix: prefix}
}

func (p *S3Provider) Name() string { return "s3" }

// Upload writes file at prefix/path. With Upsert unset an existing object is
// left untouched and its URL returned.
func (p *S3Provider) Upload(ctx context.Context, file File, objectPath string, opts UploadOptions) (*UploadResult, error) {
	key := path.Join(p.prefix, objectPath)

	if !opts.Upsert {
		exists, err := p.store.ObjectExists(ctx, key)
		if err != nil {
			return nil, err
		}
		if exists {
			return p.result(ctx, key, opts.Public)
		}
	}

	contentType := opts.ContentType
	if contentType == "" {
		contentType = file.MimeType
	}
	if err := p.store.PutObject(ctx, key, file.Buffer, contentType); err != nil {
		return nil, fmt.Errorf("s3 upload %s: %w", file.OriginalName, err)
	}
	return p.result(ctx, key, opts.Public)
}

func (p *S3Provider) result(ctx context.Context, key string, public bool) (*UploadResult, error) {
	u, err := p.store.ObjectURL(ctx, key, public)
	if err != nil {
		return nil, err
	}
	return &UploadResult{URL: u, Path: key, Provider: p.Name()}, nil
}
