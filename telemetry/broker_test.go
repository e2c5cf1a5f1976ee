package telemetry_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foundry9/robonav/telemetry"
)

func TestSubscribeAndPublishFanOut(t *testing.T) {
	t.Parallel()
	b := telemetry.New(4)

	chA, unsubA := b.Subscribe()
	defer unsubA()
	chB, unsubB := b.Subscribe()
	defer unsubB()
	assert.Equal(t, 2, b.Subscribers())

	ev := telemetry.Event{SessionID: "s1", Kind: telemetry.Connected}
	b.Publish(ev)

	select {
	case got := <-chA:
		assert.Equal(t, ev, got)
	case <-time.After(time.Second):
		t.Fatal("subscriber A did not receive event")
	}
	select {
	case got := <-chB:
		assert.Equal(t, ev, got)
	case <-time.After(time.Second):
		t.Fatal("subscriber B did not receive event")
	}
}

func TestPublishDoesNotBlockOnFullSubscriber(t *testing.T) {
	t.Parallel()
	b := telemetry.New(1)
	ch, unsub := b.Subscribe()
	defer unsub()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			b.Publish(telemetry.Event{SessionID: "s1"})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber channel")
	}

	// Exactly one event made it through; the rest were dropped.
	require.Len(t, ch, 1)
}

func TestUnsubscribeIsIdempotentAndStopsDelivery(t *testing.T) {
	t.Parallel()
	b := telemetry.New(4)
	ch, unsub := b.Subscribe()

	unsub()
	unsub() // must not panic on double-close

	assert.Equal(t, 0, b.Subscribers())
	b.Publish(telemetry.Event{SessionID: "s1"})

	_, open := <-ch
	assert.False(t, open, "channel should be closed after unsubscribe")
}
