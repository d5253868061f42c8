// Package idempotency claims one-shot keys in Redis. Checkout uses it to
// reject a resubmitted Idempotency-Key and the outbox publisher uses it to
// avoid relaying an event twice after a crash between send and commit.
package idempotency

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ziggy12122/STK-Bot-sub000/pkg/redis"
)

// Guard claims keys with SETNX so only the first caller inside the TTL wins.
type Guard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

// NewGuard builds a guard whose claims expire after ttl. A zero ttl keeps
// claims until they are released.
func NewGuard(store redis.IdempotencyStore, ttl time.Duration) (*Guard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Guard{store: store, ttl: ttl}, nil
}

// Claim reports true when this call took the key, false when someone else
// already holds it.
func (g *Guard) Claim(ctx context.Context, scope, id string) (bool, error) {
	key, err := g.key(scope, id)
	if err != nil {
		return false, err
	}
	return g.store.SetNX(ctx, key, claimValue(), g.ttl)
}

// Release drops a claim so the operation can be retried.
func (g *Guard) Release(ctx context.Context, scope, id string) error {
	key, err := g.key(scope, id)
	if err != nil {
		return err
	}
	return g.store.Del(ctx, key)
}

func (g *Guard) key(scope, id string) (string, error) {
	if strings.TrimSpace(scope) == "" {
		return "", errors.New("scope is required")
	}
	if strings.TrimSpace(id) == "" {
		return "", errors.New("id is required")
	}
	return g.store.IdempotencyKey(scope, id), nil
}

// CheckoutScope namespaces checkout keys per Discord user so two shoppers
// may reuse the same client-generated key.
func CheckoutScope(userID string) string {
	return "checkout:" + userID
}

// RelayScope namespaces relayed event ids per outbox sink.
func RelayScope(sink string) string {
	if strings.TrimSpace(sink) == "" {
		return ""
	}
	return "evt:relayed:" + sink
}

func claimValue() string {
	return time.Now().UTC().Format(time.RFC3339)
}
