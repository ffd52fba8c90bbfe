// Package auth answers whether an API key is valid and whom it belongs to.
package auth

import (
	"context"

	"github.com/danilofalcao/llama-gateway/internal/constants"
	"github.com/danilofalcao/llama-gateway/internal/utils"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Store looks up the principal owning an API key. ok is false for unknown keys;
// err is reserved for lookups that could not be performed.
type Store interface {
	Lookup(ctx context.Context, apiKey string) (principal string, ok bool, err error)
}

// KeyPrefix namespaces API keys in Redis.
const KeyPrefix = "api-key:"

// RedisStore resolves keys stored as "api-key:<key>" -> principal.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// NewRedisStoreFromURL parses a redis:// or rediss:// URL.
func NewRedisStoreFromURL(rawURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, errors.Wrap(err, "error parsing redis url")
	}
	return NewRedisStore(redis.NewClient(opts)), nil
}

func (s *RedisStore) Lookup(ctx context.Context, apiKey string) (string, bool, error) {
	if apiKey == "" {
		return "", false, nil
	}
	principal, err := s.client.Get(ctx, KeyPrefix+apiKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "error looking up api key")
	}
	return principal, principal != "", nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// StaticStore serves a fixed key -> principal table from configuration.
type StaticStore struct {
	keys map[string]string
}

func NewStaticStore(keys map[string]string) *StaticStore {
	cp := make(map[string]string, len(keys))
	for k, v := range keys {
		if k != "" {
			cp[k] = v
		}
	}
	return &StaticStore{keys: cp}
}

// Lookup compares against every configured key in constant time.
func (s *StaticStore) Lookup(_ context.Context, apiKey string) (string, bool, error) {
	var principal string
	found := 0
	for key, p := range s.keys {
		if utils.SecureCompareString(apiKey, key) {
			principal = p
			found = 1
		}
	}
	if found == 0 {
		return "", false, nil
	}
	if principal == "" {
		principal = "static"
	}
	return principal, true, nil
}

// ChainStore asks each store in order and returns the first hit.
type ChainStore []Store

func (c ChainStore) Lookup(ctx context.Context, apiKey string) (string, bool, error) {
	for _, s := range c {
		principal, ok, err := s.Lookup(ctx, apiKey)
		if err != nil || ok {
			return principal, ok, err
		}
	}
	return "", false, nil
}

// WithPrincipal records the authenticated principal on the request context.
func WithPrincipal(ctx context.Context, principal string) context.Context {
	return context.WithValue(ctx, constants.PrincipalKey, principal)
}

func PrincipalFromContext(ctx context.Context) string {
	p, _ := ctx.Value(constants.PrincipalKey).(string)
	return p
}
