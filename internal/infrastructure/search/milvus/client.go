package milvus

import (
	"context"
	"sync"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/turtacn/ChemScreen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemScreen/pkg/errors"
)

// Config holds the vector store connection parameters.
type Config struct {
	Address        string        `mapstructure:"address"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	DBName         string        `mapstructure:"db_name"`
	Collection     string        `mapstructure:"collection"`
	Dim            int           `mapstructure:"dim"`
	TopK           int           `mapstructure:"top_k"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// ApplyDefaults fills zero values with sensible defaults. Dim must match
// the bit length of the fingerprints being indexed.
func (c *Config) ApplyDefaults() {
	if c.DBName == "" {
		c.DBName = "default"
	}
	if c.Collection == "" {
		c.Collection = "chemscreen_fingerprints"
	}
	if c.Dim == 0 {
		c.Dim = 2048
	}
	if c.TopK == 0 {
		c.TopK = 10
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 10 * time.Second
	}
}

// milvusAPI is the slice of the SDK client the index needs; a fake stands
// in during tests.
type milvusAPI interface {
	HasCollection(ctx context.Context, collName string) (bool, error)
	CreateCollection(ctx context.Context, schema *entity.Schema, shardsNum int32, opts ...client.CreateCollectionOption) error
	CreateIndex(ctx context.Context, collName, fieldName string, idx entity.Index, async bool, opts ...client.IndexOption) error
	LoadCollection(ctx context.Context, collName string, async bool, opts ...client.LoadCollectionOption) error
	Insert(ctx context.Context, collName, partitionName string, columns ...entity.Column) (entity.Column, error)
	Flush(ctx context.Context, collName string, async bool, opts ...client.FlushOption) error
	Delete(ctx context.Context, collName, partitionName, expr string) error
	Search(ctx context.Context, collName string, partitions []string, expr string, outputFields []string, vectors []entity.Vector, vectorField string, metricType entity.MetricType, topK int, sp entity.SearchParam, opts ...client.SearchQueryOptionFunc) ([]client.SearchResult, error)
	Close() error
}

// Client manages the Milvus connection for the fingerprint index.
type Client struct {
	api    milvusAPI
	cfg    Config
	logger logging.Logger

	mu     sync.RWMutex
	closed bool
}

// NewClient connects to Milvus and verifies the connection.
func NewClient(ctx context.Context, cfg Config, logger logging.Logger) (*Client, error) {
	cfg.ApplyDefaults()
	if cfg.Address == "" {
		return nil, errors.New(errors.ErrCodeInvalidParam, "milvus address is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	connCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	mc, err := client.NewClient(connCtx, client.Config{
		Address:  cfg.Address,
		Username: cfg.Username,
		Password: cfg.Password,
		DBName:   cfg.DBName,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSearchError, "connecting to milvus")
	}

	c := &Client{api: mc, cfg: cfg, logger: logger.Named("milvus")}
	c.logger.Info("milvus connected",
		logging.String("address", cfg.Address),
		logging.String("collection", cfg.Collection))
	return c, nil
}

// ErrClientClosed is returned when the client is used after Close.
var ErrClientClosed = errors.New(errors.ErrCodeSearchError, "milvus client is closed")

func (c *Client) guard() (milvusAPI, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrClientClosed
	}
	return c.api, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.api.Close()
}
