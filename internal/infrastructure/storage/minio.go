package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hszk-dev/livebridge/internal/domain/repository"
)

// minioClient defines the read-side MinIO operations the bridge needs.
// This abstraction allows for easier unit testing with mocks.
type minioClient interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
}

// ClientConfig holds configuration for the MinIO client.
type ClientConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Client serves gift icon assets and implements repository.AssetStore.
// Icons are uploaded out of band by the catalog tooling; the bridge only
// resolves keys into presigned download URLs.
type Client struct {
	client minioClient
	bucket string
}

var _ repository.AssetStore = (*Client)(nil)

// NewClient creates a new MinIO client. It verifies the bucket exists
// during initialization to fail fast on misconfiguration.
func NewClient(ctx context.Context, cfg ClientConfig) (*Client, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	client := &Client{client: mc, bucket: cfg.Bucket}

	exists, err := client.client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %q does not exist", cfg.Bucket)
	}

	return client, nil
}

// newClientWithMinio creates a Client with a given minioClient.
// This is used for dependency injection in tests.
func newClientWithMinio(client minioClient, bucket string) *Client {
	return &Client{client: client, bucket: bucket}
}

// PresignedIconURL creates a time-limited download URL for an icon key.
func (c *Client) PresignedIconURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := c.client.PresignedGetObject(ctx, c.bucket, key, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to presign icon URL: %w", err)
	}
	return u.String(), nil
}

// Exists checks whether an icon object is present.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	_, err := c.client.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		var resp minio.ErrorResponse
		if errors.As(err, &resp) && resp.Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat icon: %w", err)
	}
	return true, nil
}
