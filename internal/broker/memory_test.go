package broker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	messages []*OwnedMessage
	ticks    int
}

func (s *recordingSink) PushMessage(m *OwnedMessage) { s.messages = append(s.messages, m) }
func (s *recordingSink) PushTick()                   { s.ticks++ }

func TestMemoryAdapterConnectIdempotent(t *testing.T) {
	a := NewMemoryAdapter(&recordingSink{})
	assert.Equal(t, Success, a.Connect(context.Background(), Credentials{}))
	assert.Equal(t, NothingToDo, a.Connect(context.Background(), Credentials{}))
}

func TestMemoryAdapterSubscribeRequiresConnect(t *testing.T) {
	a := NewMemoryAdapter(&recordingSink{})
	assert.Equal(t, Failure, a.Subscribe(context.Background(), "temp"))
}

func TestMemoryAdapterSubscribeUnsubscribe(t *testing.T) {
	a := NewMemoryAdapter(&recordingSink{})
	require.Equal(t, Success, a.Connect(context.Background(), Credentials{}))

	assert.Equal(t, Success, a.Subscribe(context.Background(), "temp"))
	assert.Equal(t, NothingToDo, a.Subscribe(context.Background(), "temp"))

	assert.Equal(t, Success, a.Unsubscribe(context.Background(), "temp"))
	assert.Equal(t, NothingToDo, a.Unsubscribe(context.Background(), "temp"))
}

func TestMemoryAdapterPublishDropsWhenNotSubscribed(t *testing.T) {
	sink := &recordingSink{}
	a := NewMemoryAdapter(sink)
	require.Equal(t, Success, a.Connect(context.Background(), Credentials{}))

	a.Publish("temp", []byte("42"))
	assert.Empty(t, sink.messages, "unsubscribed topic must not deliver")
}

func TestMemoryAdapterPublishDeliversToSink(t *testing.T) {
	sink := &recordingSink{}
	a := NewMemoryAdapter(sink)
	require.Equal(t, Success, a.Connect(context.Background(), Credentials{}))
	require.Equal(t, Success, a.Subscribe(context.Background(), "temp"))

	a.Publish("temp", []byte("42"))
	require.Len(t, sink.messages, 1)
	assert.Equal(t, "temp", sink.messages[0].Topic)
	assert.Equal(t, []byte("42"), sink.messages[0].Payload)
}

func TestOwnedMessageReleaseExactlyOnce(t *testing.T) {
	calls := 0
	msg := &OwnedMessage{Topic: "t", Payload: []byte("x")}
	msg.release = func() { calls++ }

	assert.True(t, msg.Release())
	assert.True(t, msg.Freed())
	assert.False(t, msg.Release(), "second Release must be a no-op")
	assert.Equal(t, 1, calls)
}
