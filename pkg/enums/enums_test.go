package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatusTransitions(t *testing.T) {
	assert.True(t, OrderStatusPending.CanTransitionTo(OrderStatusCompleted))
	assert.True(t, OrderStatusPending.CanTransitionTo(OrderStatusCancelled))
	assert.False(t, OrderStatusPending.CanTransitionTo(OrderStatusPending))
	assert.False(t, OrderStatusCompleted.CanTransitionTo(OrderStatusCancelled))
	assert.False(t, OrderStatusCancelled.CanTransitionTo(OrderStatusCompleted))
}

func TestParseOrderStatus(t *testing.T) {
	got, err := ParseOrderStatus("completed")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusCompleted, got)

	_, err = ParseOrderStatus("shipped")
	assert.Error(t, err)
}

func TestParseOutboxTypes(t *testing.T) {
	evt, err := ParseOutboxEventType("order_completed")
	require.NoError(t, err)
	assert.True(t, evt.IsValid())

	_, err = ParseOutboxEventType("license_expired")
	assert.Error(t, err)

	agg, err := ParseOutboxAggregateType("product")
	require.NoError(t, err)
	assert.Equal(t, AggregateProduct, agg)
	assert.True(t, OutboxDLQReasonMaxAttempts.IsValid())
	assert.False(t, OutboxDLQErrorReason("other").IsValid())
}
