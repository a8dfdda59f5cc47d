package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pkgerrors "github.com/oscshop/storefront-backend/pkg/errors"
	pkgredis "github.com/oscshop/storefront-backend/pkg/redis"
)

// Store persists carts between requests and across the checkout redirect.
type Store interface {
	Load(ctx context.Context, token string) (*Cart, error)
	Save(ctx context.Context, cart *Cart) error
	Delete(ctx context.Context, token string) error
}

type redisCommands interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CartKey(token string) string
}

// RedisStore keeps cart state in Redis with a rolling TTL so abandoned
// carts expire on their own.
type RedisStore struct {
	client redisCommands
	ttl    time.Duration
}

// NewRedisStore builds the Redis-backed cart store.
func NewRedisStore(client redisCommands, ttl time.Duration) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("cart ttl must be positive")
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

// Load returns the cart for the token, or a fresh empty cart when none is
// stored.
func (s *RedisStore) Load(ctx context.Context, token string) (*Cart, error) {
	raw, err := s.client.Get(ctx, s.client.CartKey(token))
	if errors.Is(err, pkgredis.Nil) {
		return &Cart{Token: token}, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	var cart Cart
	if err := json.Unmarshal([]byte(raw), &cart); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode cart")
	}
	cart.Token = token
	return &cart, nil
}

// Save writes the cart back with a refreshed TTL.
func (s *RedisStore) Save(ctx context.Context, cart *Cart) error {
	if cart == nil || cart.Token == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart token is required")
	}
	cart.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(cart)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart")
	}
	if err := s.client.Set(ctx, s.client.CartKey(cart.Token), string(payload), s.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cart")
	}
	return nil
}

// Delete removes the stored cart.
func (s *RedisStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, s.client.CartKey(token)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart")
	}
	return nil
}
