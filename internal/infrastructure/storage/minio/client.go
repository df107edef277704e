package minio

import (
	"context"
	"io"
	"sync"
	"time"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/turtacn/ChemScreen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemScreen/pkg/errors"
)

// Config holds the object store connection parameters.
type Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
}

// ApplyDefaults fills zero values with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Region == "" {
		c.Region = "us-east-1"
	}
	if c.Bucket == "" {
		c.Bucket = "chemscreen-artifacts"
	}
}

// objectAPI is the slice of the minio client the store needs; a fake
// stands in during tests.
type objectAPI interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts miniogo.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts miniogo.PutObjectOptions) (miniogo.UploadInfo, error)
	GetObject(ctx context.Context, bucket, object string, opts miniogo.GetObjectOptions) (io.ReadCloser, error)
	RemoveObject(ctx context.Context, bucket, object string, opts miniogo.RemoveObjectOptions) error
	ListObjects(ctx context.Context, bucket string, opts miniogo.ListObjectsOptions) <-chan miniogo.ObjectInfo
}

// minioAdapter narrows *minio.Client to objectAPI. GetObject is adapted to
// return io.ReadCloser so tests can substitute plain readers.
type minioAdapter struct {
	c *miniogo.Client
}

func (a minioAdapter) BucketExists(ctx context.Context, bucket string) (bool, error) {
	return a.c.BucketExists(ctx, bucket)
}

func (a minioAdapter) MakeBucket(ctx context.Context, bucket string, opts miniogo.MakeBucketOptions) error {
	return a.c.MakeBucket(ctx, bucket, opts)
}

func (a minioAdapter) PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts miniogo.PutObjectOptions) (miniogo.UploadInfo, error) {
	return a.c.PutObject(ctx, bucket, object, reader, size, opts)
}

func (a minioAdapter) GetObject(ctx context.Context, bucket, object string, opts miniogo.GetObjectOptions) (io.ReadCloser, error) {
	return a.c.GetObject(ctx, bucket, object, opts)
}

func (a minioAdapter) RemoveObject(ctx context.Context, bucket, object string, opts miniogo.RemoveObjectOptions) error {
	return a.c.RemoveObject(ctx, bucket, object, opts)
}

func (a minioAdapter) ListObjects(ctx context.Context, bucket string, opts miniogo.ListObjectsOptions) <-chan miniogo.ObjectInfo {
	return a.c.ListObjects(ctx, bucket, opts)
}

// ErrClientClosed is returned when the client is used after Close.
var ErrClientClosed = errors.New(errors.ErrCodeStorageError, "object store client is closed")

// Client wraps the minio SDK client and owns the artifact bucket.
type Client struct {
	api    objectAPI
	bucket string
	region string
	logger logging.Logger

	mu     sync.RWMutex
	closed bool
}

// NewClient connects to the object store and ensures the artifact bucket
// exists.
func NewClient(ctx context.Context, cfg Config, logger logging.Logger) (*Client, error) {
	cfg.ApplyDefaults()
	if logger == nil {
		logger = logging.NewNop()
	}

	mc, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "creating object store client")
	}

	c := &Client{
		api:    minioAdapter{c: mc},
		bucket: cfg.Bucket,
		region: cfg.Region,
		logger: logger.Named("minio"),
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := c.ensureBucket(pingCtx); err != nil {
		return nil, err
	}

	c.logger.Info("object store connected",
		logging.String("endpoint", cfg.Endpoint),
		logging.String("bucket", cfg.Bucket))
	return c, nil
}

func (c *Client) ensureBucket(ctx context.Context) error {
	exists, err := c.api.BucketExists(ctx, c.bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "checking artifact bucket")
	}
	if exists {
		return nil
	}
	if err := c.api.MakeBucket(ctx, c.bucket, miniogo.MakeBucketOptions{Region: c.region}); err != nil {
		return errors.Wrapf(err, errors.ErrCodeStorageError, "creating bucket %s", c.bucket)
	}
	c.logger.Info("artifact bucket created", logging.String("bucket", c.bucket))
	return nil
}

// Bucket returns the artifact bucket name.
func (c *Client) Bucket() string { return c.bucket }

func (c *Client) guard() (objectAPI, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrClientClosed
	}
	return c.api, nil
}

// Close marks the client unusable. The minio SDK holds no persistent
// connections, so there is nothing to tear down.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
