package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/nilgirisfresh-backend/pkg/redis"
)

// GuestKV is the slice of the redis client the guest store uses.
type GuestKV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	GuestCartKey(guestToken string) string
}

// GuestStore keeps unauthenticated carts as JSON documents in redis so they
// survive reloads until they expire.
type GuestStore struct {
	kv  GuestKV
	ttl time.Duration
}

// NewGuestStore builds a guest store with the given document TTL.
func NewGuestStore(kv GuestKV, ttl time.Duration) (*GuestStore, error) {
	if kv == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("guest cart ttl must be positive")
	}
	return &GuestStore{kv: kv, ttl: ttl}, nil
}

// Load returns the guest cart, or an empty cart when none is stored.
func (s *GuestStore) Load(ctx context.Context, token string) (Cart, error) {
	raw, err := s.kv.Get(ctx, s.kv.GuestCartKey(token))
	if err != nil {
		if redis.IsNil(err) {
			return Cart{}, nil
		}
		return Cart{}, fmt.Errorf("load guest cart: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		return Cart{}, nil
	}
	var c Cart
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return Cart{}, fmt.Errorf("decode guest cart: %w", err)
	}
	return c, nil
}

// Save writes the cart and refreshes its TTL. An empty cart erases the document.
func (s *GuestStore) Save(ctx context.Context, token string, c Cart) error {
	if c.Empty() {
		return s.Erase(ctx, token)
	}
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode guest cart: %w", err)
	}
	if err := s.kv.Set(ctx, s.kv.GuestCartKey(token), string(payload), s.ttl); err != nil {
		return fmt.Errorf("save guest cart: %w", err)
	}
	return nil
}

// Erase deletes the guest document.
func (s *GuestStore) Erase(ctx context.Context, token string) error {
	if err := s.kv.Del(ctx, s.kv.GuestCartKey(token)); err != nil {
		return fmt.Errorf("erase guest cart: %w", err)
	}
	return nil
}
