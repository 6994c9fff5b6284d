package aws

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Options controls how object URLs are built.
type S3Options struct {
	Bucket string
	// Endpoint is a LocalStack/MinIO base URL; forces path-style addressing.
	Endpoint string
	// CDNDomain, when set, fronts every public URL (e.g. a CloudFront domain).
	CDNDomain string
	// PresignExpiry is used for private objects.
	PresignExpiry time.Duration
}

// S3Client uploads catalog media to a single bucket.
type S3Client struct {
	client    *s3.Client
	uploader  *manager.Uploader
	presigner *s3.PresignClient
	opts      S3Options
}

// NewS3Client creates an S3Client from AWS config.
func NewS3Client(cfg sdkaws.Config, opts S3Options) *S3Client {
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.UsePathStyle = true
			o.BaseEndpoint = sdkaws.String(opts.Endpoint)
		}
	})
	if opts.PresignExpiry <= 0 {
		opts.PresignExpiry = 7 * 24 * time.Hour
	}
	return &S3Client{
		client:    client,
		uploader:  manager.NewUploader(client),
		presigner: s3.NewPresignClient(client),
		opts:      opts,
	}
}

// PutObject uploads body under key.
func (c *S3Client) PutObject(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:       sdkaws.String(c.opts.Bucket),
		Key:          sdkaws.String(key),
		Body:         bytes.NewReader(body),
		ContentType:  sdkaws.String(contentType),
		CacheControl: sdkaws.String("public, max-age=31536000"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to s3 %s: %w", key, err)
	}
	return nil
}

// ObjectExists reports whether key is already present in the bucket.
func (c *S3Client) ObjectExists(ctx context.Context, key string) (bool, error) {
	_, err := c.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: sdkaws.String(c.opts.Bucket),
		Key:    sdkaws.String(key),
	})
	if err == nil {
		return true, nil
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return false, nil
	}
	return false, fmt.Errorf("s3 head object %s: %w", key, err)
}

// ObjectURL returns a public URL, or a presigned GET URL for private objects.
func (c *S3Client) ObjectURL(ctx context.Context, key string, public bool) (string, error) {
	if public {
		return c.PublicURL(key), nil
	}
	presigned, err := c.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: sdkaws.String(c.opts.Bucket),
		Key:    sdkaws.String(key),
	}, func(o *s3.PresignOptions) {
		o.Expires = c.opts.PresignExpiry
	})
	if err != nil {
		return "", fmt.Errorf("failed to presign get object: %w", err)
	}
	return presigned.URL, nil
}

// PublicURL builds the externally reachable URL for key.
func (c *S3Client) PublicURL(key string) string {
	switch {
	case c.opts.CDNDomain != "":
		domain := strings.TrimPrefix(strings.TrimPrefix(c.opts.CDNDomain, "https://"), "http://")
		return fmt.Sprintf("https://%s/%s", strings.TrimRight(domain, "/"), key)
	case c.opts.Endpoint != "":
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(c.opts.Endpoint, "/"), c.opts.Bucket, key)
	default:
		return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", c.opts.Bucket, key)
	}
}
