package subscription

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestHub_Notify_reaches_every_subscriber(t *testing.T) {
	h := NewHub[int]()
	_, a, cancelA := h.Subscribe(context.Background())
	defer cancelA()
	_, b, cancelB := h.Subscribe(context.Background())
	defer cancelB()

	h.Notify(7)

	assert.Equal(t, 7, <-a)
	assert.Equal(t, 7, <-b)
}

func TestHub_Notify_keeps_latest_for_slow_subscriber(t *testing.T) {
	h := NewHub[int]()
	_, c, cancel := h.Subscribe(context.Background())
	defer cancel()

	h.Notify(1)
	h.Notify(2)
	h.Notify(3)

	assert.Equal(t, 3, <-c)
	select {
	case v := <-c:
		t.Fatalf("unexpected value %d", v)
	default:
	}
}

func TestHub_cancel_closes_and_removes(t *testing.T) {
	h := NewHub[string]()
	id, c, cancel := h.Subscribe(context.Background())
	assert.NotEqual(t, uuid.Nil, id)
	require.Equal(t, 1, h.Len())

	cancel()
	cancel()

	_, ok := <-c
	assert.False(t, ok)
	assert.Equal(t, 0, h.Len())

	h.Notify("after")
}

func TestHub_context_end_unsubscribes(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	h := NewHub[int]()
	ctx, cancelCtx := context.WithCancel(context.Background())
	_, c, cancel := h.Subscribe(ctx)
	defer cancel()

	cancelCtx()
	for range c {
	}
	assert.Equal(t, 0, h.Len())
}
