package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheResolution stores a link -> resolved URL mapping
func (s *Store) CacheResolution(ctx context.Context, key, resolved string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultResolveTTL
	}
	if err := s.client.Set(ctx, ResolveKey(key), resolved, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache resolution: %w", err)
	}
	return nil
}

// GetCachedResolution retrieves a cached resolution. A miss returns "" and
// a nil error.
func (s *Store) GetCachedResolution(ctx context.Context, key string) (string, error) {
	resolved, err := s.client.Get(ctx, ResolveKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil // Cache miss
		}
		return "", fmt.Errorf("failed to get cached resolution: %w", err)
	}
	return resolved, nil
}

// CountResolutions returns the number of cached resolutions
func (s *Store) CountResolutions(ctx context.Context) (int, error) {
	n := 0
	iter := s.client.Scan(ctx, 0, KeyPrefixResolve+"*", 100).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("failed to count resolutions: %w", err)
	}
	return n, nil
}

// ListResolutions returns up to limit cached lookup keys without the Redis
// prefix, in scan order. limit <= 0 means no limit.
func (s *Store) ListResolutions(ctx context.Context, limit int) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, KeyPrefixResolve+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if limit > 0 && len(keys) >= limit {
			break
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list resolutions: %w", err)
	}
	return resolutionNames(keys), nil
}

// resolutionNames strips the prefix and drops keys that do not carry it.
func resolutionNames(keys []string) []string {
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		if name, ok := ExtractResolveKey(k); ok {
			names = append(names, name)
		}
	}
	return names
}

// FlushResolutions removes all cached resolutions and returns how many
// keys were deleted. Keys are deleted in batches of the scan page size.
func (s *Store) FlushResolutions(ctx context.Context) (int, error) {
	const batch = 100
	deleted := 0
	keys := make([]string, 0, batch)

	flush := func() error {
		if len(keys) == 0 {
			return nil
		}
		n, err := s.client.Unlink(ctx, keys...).Result()
		if err != nil {
			return fmt.Errorf("failed to delete resolution keys: %w", err)
		}
		deleted += int(n)
		keys = keys[:0]
		return nil
	}

	iter := s.client.Scan(ctx, 0, KeyPrefixResolve+"*", batch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) == batch {
			if err := flush(); err != nil {
				return deleted, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("failed to flush resolutions: %w", err)
	}
	return deleted, flush()
}
