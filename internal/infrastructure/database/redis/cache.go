package redis

import (
	"context"
	"encoding/json"
	"math"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/ChemScreen/internal/domain/molecule"
	"github.com/turtacn/ChemScreen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemScreen/pkg/errors"
)

// DescriptorCache memoises computed descriptor panels keyed by structure
// key, so repeated runs over the same compound library skip recomputation.
// Concurrent requests for the same key are collapsed with singleflight.
type DescriptorCache struct {
	client *Client
	logger logging.Logger
	prefix string
	ttl    time.Duration
	group  singleflight.Group
}

// NewDescriptorCache builds a cache with the given key prefix and TTL.
func NewDescriptorCache(client *Client, prefix string, ttl time.Duration, logger logging.Logger) *DescriptorCache {
	if logger == nil {
		logger = logging.NewNop()
	}
	if prefix == "" {
		prefix = "chemscreen"
	}
	return &DescriptorCache{
		client: client,
		logger: logger.Named("descriptor_cache"),
		prefix: prefix,
		ttl:    ttl,
	}
}

func (c *DescriptorCache) key(structureKey string) string {
	return c.prefix + ":desc:" + structureKey
}

// GetOrCompute returns the cached descriptors for structureKey, computing
// and storing them on a miss.  Cache failures degrade to computation: a
// broken Redis never fails a run, it only loses the speed-up.
func (c *DescriptorCache) GetOrCompute(ctx context.Context, structureKey string,
	compute func() (molecule.Descriptors, error)) (molecule.Descriptors, error) {

	v, err, _ := c.group.Do(structureKey, func() (interface{}, error) {
		if cached, ok := c.lookup(ctx, structureKey); ok {
			return cached, nil
		}

		desc, err := compute()
		if err != nil {
			return nil, err
		}
		c.store(ctx, structureKey, desc)
		return desc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(molecule.Descriptors), nil
}

// lookup fetches and decodes a cached panel.  The stored form contains only
// finite values; absent columns are restored as NaN.
func (c *DescriptorCache) lookup(ctx context.Context, structureKey string) (molecule.Descriptors, bool) {
	rdb, err := c.client.Raw()
	if err != nil {
		return nil, false
	}
	data, err := rdb.Get(ctx, c.key(structureKey)).Bytes()
	if err != nil {
		if err != goredis.Nil {
			c.logger.Warn("cache read failed", logging.String("key", structureKey), logging.Err(err))
		}
		return nil, false
	}

	var stored map[string]float64
	if err := json.Unmarshal(data, &stored); err != nil {
		c.logger.Warn("cache entry corrupt", logging.String("key", structureKey), logging.Err(err))
		return nil, false
	}

	desc := make(molecule.Descriptors, len(molecule.DescriptorColumns))
	for _, col := range molecule.DescriptorColumns {
		if v, ok := stored[col]; ok {
			desc[col] = v
		} else {
			desc[col] = math.NaN()
		}
	}
	return desc, true
}

// store encodes a panel, dropping NaN values that JSON cannot represent.
func (c *DescriptorCache) store(ctx context.Context, structureKey string, desc molecule.Descriptors) {
	rdb, err := c.client.Raw()
	if err != nil {
		return
	}
	finite := make(map[string]float64, len(desc))
	for col, v := range desc {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite[col] = v
		}
	}
	data, err := json.Marshal(finite)
	if err != nil {
		c.logger.Warn("cache encode failed", logging.String("key", structureKey), logging.Err(err))
		return
	}
	if err := rdb.Set(ctx, c.key(structureKey), data, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", logging.String("key", structureKey), logging.Err(err))
	}
}

// Invalidate removes cached panels for the given structure keys.
func (c *DescriptorCache) Invalidate(ctx context.Context, structureKeys ...string) error {
	rdb, err := c.client.Raw()
	if err != nil {
		return err
	}
	keys := make([]string, len(structureKeys))
	for i, k := range structureKeys {
		keys[i] = c.key(k)
	}
	if err := rdb.Del(ctx, keys...).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "invalidating descriptor cache")
	}
	return nil
}
