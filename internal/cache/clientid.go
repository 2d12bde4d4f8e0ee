// Package cache holds the redis-backed lookup cache in front of the tenant
// directory. Only the guard's hot path (application id to Keycloak client ID)
// is cached; everything else reads the database directly.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vinumavintel/ums-with-admin-ui/internal/constants"
	mw "github.com/vinumavintel/ums-with-admin-ui/internal/middleware"
)

// ClientIDResolver decorates an AppResolver with a redis cache. A nil redis
// client degrades to pass-through, so tests and single-node deployments run
// without redis.
type ClientIDResolver struct {
	inner  mw.AppResolver
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

func NewClientIDResolver(inner mw.AppResolver, client *redis.Client, prefix string, logger *zap.Logger) *ClientIDResolver {
	return &ClientIDResolver{
		inner:  inner,
		client: client,
		prefix: prefix,
		ttl:    constants.DefaultCacheTTL,
		logger: logger,
	}
}

func (r *ClientIDResolver) key(appID string) string {
	return fmt.Sprintf("%s:app-client:%s", r.prefix, appID)
}

func (r *ClientIDResolver) ResolveClientID(ctx context.Context, appID string) (string, error) {
	if r.client != nil {
		cached, err := r.client.Get(ctx, r.key(appID)).Result()
		if err == nil && cached != "" {
			return cached, nil
		}
		if err != nil && err != redis.Nil {
			r.logger.Warn("Cache read failed, falling through to directory", zap.Error(err))
		}
	}

	clientID, err := r.inner.ResolveClientID(ctx, appID)
	if err != nil {
		// Misses are not cached: a not-yet-visible application must
		// become resolvable as soon as its row lands.
		return "", err
	}

	if r.client != nil {
		if err := r.client.Set(ctx, r.key(appID), clientID, r.ttl).Err(); err != nil {
			r.logger.Warn("Cache write failed", zap.Error(err))
		}
	}

	return clientID, nil
}

// Invalidate drops the cached mapping, called when an application is
// deleted.
func (r *ClientIDResolver) Invalidate(ctx context.Context, appID string) {
	if r.client == nil {
		return
	}
	if err := r.client.Del(ctx, r.key(appID)).Err(); err != nil {
		r.logger.Warn("Cache invalidation failed", zap.Error(err))
	}
}
