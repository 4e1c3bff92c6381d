package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/seinetours/booking-backend/internal/models"
	"github.com/sirupsen/logrus"
)

const catalogVersionKey = "catalog:version"

// CatalogCache is a read-through Redis cache for catalog reads. Entries are
// namespaced by a version counter; bumping it invalidates everything at once.
// A nil cache or nil client disables caching.
type CatalogCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

// NewCatalogCache creates a cache; rdb may be nil
func NewCatalogCache(rdb *redis.Client, ttl time.Duration, logger *logrus.Logger) *CatalogCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CatalogCache{rdb: rdb, ttl: ttl, logger: logger}
}

func (c *CatalogCache) enabled() bool {
	return c != nil && c.rdb != nil
}

func (c *CatalogCache) version(ctx context.Context) (int64, bool) {
	v, err := c.rdb.Get(ctx, catalogVersionKey).Int64()
	if err == redis.Nil {
		return 0, true
	}
	if err != nil {
		c.logger.WithError(err).Warn("Catalog cache unavailable")
		return 0, false
	}
	return v, true
}

func listKey(version int64, f models.PackageFilter) string {
	return fmt.Sprintf("catalog:v%d:list:%s:%d:%t", version, f.Location, f.Limit, f.Featured)
}

func packageKey(version int64, id uuid.UUID) string {
	return fmt.Sprintf("catalog:v%d:pkg:%s", version, id)
}

func (c *CatalogCache) get(ctx context.Context, key func(int64) string, dest interface{}) bool {
	if !c.enabled() {
		return false
	}
	v, ok := c.version(ctx)
	if !ok {
		return false
	}
	data, err := c.rdb.Get(ctx, key(v)).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dest) == nil
}

func (c *CatalogCache) set(ctx context.Context, key func(int64) string, value interface{}) {
	if !c.enabled() {
		return
	}
	v, ok := c.version(ctx)
	if !ok {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key(v), data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).Debug("Catalog cache write failed")
	}
}

// GetList returns a cached list result
func (c *CatalogCache) GetList(ctx context.Context, f models.PackageFilter) ([]*models.Package, bool) {
	var pkgs []*models.Package
	ok := c.get(ctx, func(v int64) string { return listKey(v, f) }, &pkgs)
	return pkgs, ok
}

// SetList caches a list result
func (c *CatalogCache) SetList(ctx context.Context, f models.PackageFilter, pkgs []*models.Package) {
	c.set(ctx, func(v int64) string { return listKey(v, f) }, pkgs)
}

// GetPackage returns a cached package
func (c *CatalogCache) GetPackage(ctx context.Context, id uuid.UUID) (*models.Package, bool) {
	var pkg models.Package
	if !c.get(ctx, func(v int64) string { return packageKey(v, id) }, &pkg) {
		return nil, false
	}
	return &pkg, true
}

// SetPackage caches a package
func (c *CatalogCache) SetPackage(ctx context.Context, pkg *models.Package) {
	c.set(ctx, func(v int64) string { return packageKey(v, pkg.ID) }, pkg)
}

// Invalidate drops every cached catalog entry
func (c *CatalogCache) Invalidate(ctx context.Context) {
	if !c.enabled() {
		return
	}
	if err := c.rdb.Incr(ctx, catalogVersionKey).Err(); err != nil {
		c.logger.WithError(err).Warn("Catalog cache invalidation failed")
	}
}
