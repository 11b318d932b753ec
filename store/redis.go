package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// saveCredentialScript sets the token and aligns the profile's lifetime with it,
// so a cached profile never outlives the credential it was fetched with.
const saveCredentialScript = `
local ttl = tonumber(ARGV[2])
if ttl > 0 then
  redis.call("SET", KEYS[1], ARGV[1], "PX", ttl)
  if redis.call("EXISTS", KEYS[2]) == 1 then
    redis.call("PEXPIRE", KEYS[2], ttl)
  end
else
  redis.call("SET", KEYS[1], ARGV[1])
  redis.call("PERSIST", KEYS[2])
end
return 1
`

var saveCredentialLua = redis.NewScript(saveCredentialScript)

// RedisStore keeps the credential in Redis under "<prefix>:access_token" and
// the profile under "<prefix>:profile".
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStore returns a store using rdb. An empty prefix defaults to "hrclient".
func NewRedisStore(rdb redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "hrclient"
	}
	return &RedisStore{
		redis:  rdb,
		prefix: prefix,
	}
}

func (s *RedisStore) tokenKey() string {
	return s.prefix + ":access_token"
}

func (s *RedisStore) profileKey() string {
	return s.prefix + ":profile"
}

func (s *RedisStore) LoadCredential(ctx context.Context) (string, error) {
	token, err := s.redis.Get(ctx, s.tokenKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if token == "" {
		return "", ErrNotFound
	}
	return token, nil
}

// SaveCredential stores token for ttl. Zero means no expiry; a negative ttl
// deletes the credential and profile instead.
//
//	Performance: 1 EVALSHA, or 1 DEL for a dead token.
func (s *RedisStore) SaveCredential(ctx context.Context, token string, ttl time.Duration) error {
	if ttl < 0 {
		return s.Clear(ctx)
	}
	keys := []string{s.tokenKey(), s.profileKey()}
	if err := saveCredentialLua.Run(ctx, s.redis, keys, token, pxMillis(ttl)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *RedisStore) LoadProfile(ctx context.Context) ([]byte, error) {
	data, err := s.redis.Get(ctx, s.profileKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return data, nil
}

func (s *RedisStore) SaveProfile(ctx context.Context, profile []byte, ttl time.Duration) error {
	if ttl < 0 {
		if err := s.redis.Del(ctx, s.profileKey()).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil
	}
	if ttl > 0 && ttl < time.Millisecond {
		ttl = time.Millisecond
	}
	if err := s.redis.Set(ctx, s.profileKey(), profile, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Clear deletes both keys in one round trip.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.redis.Del(ctx, s.tokenKey(), s.profileKey()).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// pxMillis rounds a positive sub-millisecond ttl up so it is not mistaken
// for "no expiry".
func pxMillis(ttl time.Duration) int64 {
	ms := ttl.Milliseconds()
	if ttl > 0 && ms == 0 {
		return 1
	}
	return ms
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *RedisStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return time.Since(start), nil
}
