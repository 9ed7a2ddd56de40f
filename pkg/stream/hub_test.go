package stream_test

import (
	"context"
	"testing"

	"github.com/aretw0/firestream/pkg/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_DeliversOnlyAfterSubscribe(t *testing.T) {
	h := stream.NewHub[int]()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.Publish(1)
	ch := h.Subscribe(ctx)
	h.Publish(2)
	h.Publish(3)

	assert.Equal(t, 2, recv(t, ch).Value)
	assert.Equal(t, 3, recv(t, ch).Value)
}

func TestHub_CloseCompletesSubscribers(t *testing.T) {
	h := stream.NewHub[string]()
	ch := h.Subscribe(context.Background())
	h.Publish("last")
	h.Close()

	assert.Equal(t, "last", recv(t, ch).Value)
	expectClosed(t, ch)

	expectClosed(t, h.Subscribe(context.Background()))
	h.Publish("ignored")
}

func TestHub_DetachOnCancel(t *testing.T) {
	h := stream.NewHub[int]()
	ctx, cancel := context.WithCancel(context.Background())
	ch := h.Subscribe(ctx)
	assert.Equal(t, 1, h.Subscribers())

	cancel()
	expectClosed(t, ch)
	require.Eventually(t, func() bool { return h.Subscribers() == 0 }, waitTimeout, tick)
}

func TestHub_PublishNeverBlocksOnSlowSubscriber(t *testing.T) {
	h := stream.NewHub[int]()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := h.Subscribe(ctx)

	for i := 0; i < 1000; i++ {
		h.Publish(i)
	}
	for i := 0; i < 1000; i++ {
		require.Equal(t, i, recv(t, ch).Value)
	}
}
