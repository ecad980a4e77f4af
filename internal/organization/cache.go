package organization

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis key prefixes for resolved organizations and participation flags.
const (
	topLevelKeyPrefix      = "org:top:"
	participationKeyPrefix = "org:nvi:"
)

// CachedResolver decorates a Resolver with a shared Redis cache. Organization
// hierarchies change rarely; a short TTL keeps the evaluator from hammering
// the registry when one publication lists the same affiliation many times
// across creators.
type CachedResolver struct {
	inner  Resolver
	client *redis.Client
	ttl    time.Duration
}

// NewCachedResolver wraps a resolver with a Redis cache.
func NewCachedResolver(inner Resolver, client *redis.Client, ttl time.Duration) *CachedResolver {
	return &CachedResolver{inner: inner, client: client, ttl: ttl}
}

func (r *CachedResolver) ResolveTopLevelOrganization(ctx context.Context, affiliationID string) (Organization, error) {
	key := topLevelKeyPrefix + affiliationID
	if raw, err := r.client.Get(ctx, key).Result(); err == nil {
		var org Organization
		if err := json.Unmarshal([]byte(raw), &org); err == nil {
			return org, nil
		}
		// Corrupt cache entry: fall through to the registry and overwrite.
	} else if !errors.Is(err, redis.Nil) {
		// Cache outage must not take resolution down with it.
		return r.inner.ResolveTopLevelOrganization(ctx, affiliationID)
	}

	org, err := r.inner.ResolveTopLevelOrganization(ctx, affiliationID)
	if err != nil {
		return Organization{}, err
	}
	if payload, err := json.Marshal(org); err == nil {
		_ = r.client.Set(ctx, key, payload, r.ttl).Err()
	}
	return org, nil
}

func (r *CachedResolver) IsParticipatingInstitution(ctx context.Context, orgID string) (bool, error) {
	key := participationKeyPrefix + orgID
	if raw, err := r.client.Get(ctx, key).Result(); err == nil {
		return raw == "true", nil
	} else if !errors.Is(err, redis.Nil) {
		return r.inner.IsParticipatingInstitution(ctx, orgID)
	}

	participating, err := r.inner.IsParticipatingInstitution(ctx, orgID)
	if err != nil {
		return false, err
	}
	_ = r.client.Set(ctx, key, fmt.Sprintf("%t", participating), r.ttl).Err()
	return participating, nil
}
