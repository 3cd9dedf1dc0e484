package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// Revoker remembers signed-out token IDs until the tokens would have expired
// anyway. RevokeAccount ends every token of a removed account at once.
type Revoker interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	RevokeAccount(ctx context.Context, accountID string, until time.Time) error
	IsAccountRevoked(ctx context.Context, accountID string) (bool, error)
}

const (
	revokedKeyPrefix        = "hosteld:revoked:"
	revokedAccountKeyPrefix = "hosteld:revoked-account:"
)

// RedisRevoker shares revocations between replicas through Redis.
type RedisRevoker struct {
	client *redis.Client
}

// NewRedisRevoker connects to the Redis server at url.
func NewRedisRevoker(url string) (*RedisRevoker, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return &RedisRevoker{client: redis.NewClient(opt)}, nil
}

func (r *RedisRevoker) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, revokedKeyPrefix+jti, 1, ttl).Err()
}

func (r *RedisRevoker) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return r.exists(ctx, revokedKeyPrefix+jti)
}

func (r *RedisRevoker) RevokeAccount(ctx context.Context, accountID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, revokedAccountKeyPrefix+accountID, 1, ttl).Err()
}

func (r *RedisRevoker) IsAccountRevoked(ctx context.Context, accountID string) (bool, error) {
	return r.exists(ctx, revokedAccountKeyPrefix+accountID)
}

func (r *RedisRevoker) exists(ctx context.Context, key string) (bool, error) {
	err := r.client.Get(ctx, key).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Ping checks the connection.
func (r *RedisRevoker) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRevoker) Close() error {
	return r.client.Close()
}

// MemoryRevoker keeps revocations in process memory.
type MemoryRevoker struct {
	c *cache.Cache
}

func NewMemoryRevoker() *MemoryRevoker {
	return &MemoryRevoker{c: cache.New(time.Hour, 10*time.Minute)}
}

func (m *MemoryRevoker) Revoke(_ context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	m.c.Set(jti, struct{}{}, ttl)
	return nil
}

func (m *MemoryRevoker) IsRevoked(_ context.Context, jti string) (bool, error) {
	_, found := m.c.Get(jti)
	return found, nil
}

func (m *MemoryRevoker) RevokeAccount(_ context.Context, accountID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	m.c.Set(revokedAccountKeyPrefix+accountID, struct{}{}, ttl)
	return nil
}

func (m *MemoryRevoker) IsAccountRevoked(_ context.Context, accountID string) (bool, error) {
	_, found := m.c.Get(revokedAccountKeyPrefix + accountID)
	return found, nil
}
