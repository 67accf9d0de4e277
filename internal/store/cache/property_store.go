// Package cache decorates a PropertyStore with a Redis read-through cache.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sort"
	"time"

	"property-browser/internal/common/database"
	"property-browser/internal/common/logger"
	"property-browser/internal/common/metrics"
	"property-browser/internal/models"
	"property-browser/internal/store"

	"github.com/redis/go-redis/v9"
)

const DefaultPrefix = "properties"

// PropertyStore caches GetAll, GetByID and Search results. Any successful
// mutation drops every key under the prefix. Redis failures are logged and
// treated as misses; they never fail a read.
type PropertyStore struct {
	next   store.PropertyStore
	rdb    redis.Cmdable
	ttl    time.Duration
	prefix string
	logger logger.Logger
}

var _ store.PropertyStore = (*PropertyStore)(nil)

func NewPropertyStore(next store.PropertyStore, rdb redis.Cmdable, ttl time.Duration, prefix string, log logger.Logger) *PropertyStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &PropertyStore{
		next:   next,
		rdb:    rdb,
		ttl:    ttl,
		prefix: prefix,
		logger: logger.ForComponent(log, "property-cache"),
	}
}

func (c *PropertyStore) allKey() string {
	return c.prefix + ":all"
}

func (c *PropertyStore) idKey(id int) string {
	return fmt.Sprintf("%s:id:%d", c.prefix, id)
}

// SearchKey derives a stable key for spec. Specs that differ only in the
// order of PropertyTypes, surrounding whitespace or zero bounds share a key.
func SearchKey(prefix string, spec models.FilterSpec) string {
	spec = spec.Normalize()
	types := append([]string(nil), spec.PropertyTypes...)
	sort.Strings(types)
	spec.PropertyTypes = types

	payload, _ := json.Marshal(spec)
	hash := md5.Sum(payload)
	return prefix + ":search:" + hex.EncodeToString(hash[:])
}

func (c *PropertyStore) lookup(ctx context.Context, key string, dest interface{}) bool {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if stderrors.Is(err, redis.Nil) {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return false
	}
	if err != nil {
		metrics.CacheLookups.WithLabelValues("error").Inc()
		c.logger.Warn("cache read failed", map[string]interface{}{"key": key, "error": err})
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		metrics.CacheLookups.WithLabelValues("error").Inc()
		c.logger.Warn("cache entry corrupt", map[string]interface{}{"key": key, "error": err})
		return false
	}
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return true
}

func (c *PropertyStore) store(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", map[string]interface{}{"key": key, "error": err})
	}
}

// Invalidate removes every cached entry under the prefix.
func (c *PropertyStore) Invalidate(ctx context.Context) {
	n, err := database.DeleteByPattern(ctx, c.rdb, c.prefix+":*")
	if err != nil {
		c.logger.Warn("cache invalidation failed", map[string]interface{}{"error": err})
		return
	}
	c.logger.Debug("cache invalidated", map[string]interface{}{"keys": n})
}

func (c *PropertyStore) GetAll(ctx context.Context) ([]models.Property, error) {
	var props []models.Property
	if c.lookup(ctx, c.allKey(), &props) {
		return props, nil
	}
	props, err := c.next.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, c.allKey(), props)
	return props, nil
}

func (c *PropertyStore) GetByID(ctx context.Context, id int) (*models.Property, error) {
	var p models.Property
	if c.lookup(ctx, c.idKey(id), &p) {
		return &p, nil
	}
	found, err := c.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, c.idKey(id), found)
	return found, nil
}

func (c *PropertyStore) Search(ctx context.Context, spec models.FilterSpec) ([]models.Property, error) {
	key := SearchKey(c.prefix, spec)
	var props []models.Property
	if c.lookup(ctx, key, &props) {
		return props, nil
	}
	props, err := c.next.Search(ctx, spec)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, props)
	return props, nil
}

func (c *PropertyStore) Create(ctx context.Context, p models.Property) (*models.Property, error) {
	created, err := c.next.Create(ctx, p)
	if err != nil {
		return nil, err
	}
	c.Invalidate(ctx)
	return created, nil
}

func (c *PropertyStore) Update(ctx context.Context, id int, patch models.PropertyPatch) (*models.Property, error) {
	updated, err := c.next.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	c.Invalidate(ctx)
	return updated, nil
}

func (c *PropertyStore) Delete(ctx context.Context, id int) error {
	if err := c.next.Delete(ctx, id); err != nil {
		return err
	}
	c.Invalidate(ctx)
	return nil
}
