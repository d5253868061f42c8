package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	keys map[string]time.Duration
	err  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{keys: map[string]time.Duration{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	if _, ok := m.keys[key]; ok {
		return "1", nil
	}
	return "", nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, _ any, ttl time.Duration) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = ttl
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "sf:idempotency:" + scope + ":" + id
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.keys, k)
	}
	return nil
}

func TestNewGuardValidation(t *testing.T) {
	_, err := NewGuard(nil, time.Hour)
	assert.Error(t, err)
	_, err = NewGuard(newMemoryStore(), -time.Second)
	assert.Error(t, err)
}

func TestCheckoutClaims(t *testing.T) {
	store := newMemoryStore()
	guard, err := NewGuard(store, 10*time.Minute)
	require.NoError(t, err)
	ctx := context.Background()

	claimed, err := guard.Claim(ctx, CheckoutScope("111"), "key-1")
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Equal(t, 10*time.Minute, store.keys["sf:idempotency:checkout:111:key-1"])

	claimed, err = guard.Claim(ctx, CheckoutScope("111"), "key-1")
	require.NoError(t, err)
	assert.False(t, claimed, "resubmitted key is rejected")

	claimed, err = guard.Claim(ctx, CheckoutScope("222"), "key-1")
	require.NoError(t, err)
	assert.True(t, claimed, "keys are scoped per user")

	require.NoError(t, guard.Release(ctx, CheckoutScope("111"), "key-1"))
	claimed, err = guard.Claim(ctx, CheckoutScope("111"), "key-1")
	require.NoError(t, err)
	assert.True(t, claimed, "released keys can be claimed again")
}

func TestRelayClaims(t *testing.T) {
	store := newMemoryStore()
	guard, err := NewGuard(store, 24*time.Hour)
	require.NoError(t, err)

	eventID := uuid.NewString()
	claimed, err := guard.Claim(context.Background(), RelayScope("kafka"), eventID)
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Contains(t, store.keys, "sf:idempotency:evt:relayed:kafka:"+eventID)

	claimed, err = guard.Claim(context.Background(), RelayScope("redis"), eventID)
	require.NoError(t, err)
	assert.True(t, claimed, "each sink tracks its own deliveries")
}

func TestClaimErrors(t *testing.T) {
	store := newMemoryStore()
	guard, err := NewGuard(store, time.Hour)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = guard.Claim(ctx, RelayScope(""), uuid.NewString())
	assert.Error(t, err, "blank sink")
	_, err = guard.Claim(ctx, CheckoutScope("1"), " ")
	assert.Error(t, err, "blank id")
	assert.Error(t, guard.Release(ctx, "", "x"))

	store.err = errors.New("redis down")
	_, err = guard.Claim(ctx, CheckoutScope("1"), "k")
	assert.Error(t, err)
}
