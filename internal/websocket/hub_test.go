package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(hub *Hub, userID uint) *Client {
	return &Client{Hub: hub, UserID: userID, Send: make(chan []byte, sendBufferSize), LastResetTime: time.Now()}
}

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case msg, ok := <-c.Send:
		require.True(t, ok, "send channel closed")
		var ev Event
		require.NoError(t, json.Unmarshal(msg, &ev))
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
	return Event{}
}

func TestHub_NotifyReachesEverySessionOfUser(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(nil)
	go hub.Run(ctx)

	tabA := newTestClient(hub, 1)
	tabB := newTestClient(hub, 1)
	other := newTestClient(hub, 2)
	hub.Register(tabA)
	hub.Register(tabB)
	hub.Register(other)
	require.Eventually(t, func() bool { return hub.SessionCount(1) == 2 && hub.IsUserOnline(2) }, time.Second, 5*time.Millisecond)

	hub.Notify(1, EventCartUpdated, map[string]interface{}{"item_count": 3})

	assert.Equal(t, EventCartUpdated, receive(t, tabA).Type)
	assert.Equal(t, EventCartUpdated, receive(t, tabB).Type)
	select {
	case <-other.Send:
		t.Fatal("other user must not receive the event")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_UnregisterClosesSession(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(nil)
	go hub.Run(ctx)

	client := newTestClient(hub, 5)
	hub.Register(client)
	require.Eventually(t, func() bool { return hub.IsUserOnline(5) }, time.Second, 5*time.Millisecond)

	hub.Unregister(client)
	require.Eventually(t, func() bool { return !hub.IsUserOnline(5) }, time.Second, 5*time.Millisecond)
	_, ok := <-client.Send
	assert.False(t, ok)
}

func TestHub_PingAnswersPong(t *testing.T) {
	hub := NewHub(nil)
	client := newTestClient(hub, 1)

	hub.HandleClientMessage(client, []byte(`{"type":"ping"}`))
	assert.Equal(t, EventPong, receive(t, client).Type)
}

func TestHub_RateLimit(t *testing.T) {
	hub := NewHub(nil)
	client := newTestClient(hub, 1)

	for i := 0; i < maxMessagesPerSecond+5; i++ {
		hub.HandleClientMessage(client, []byte(`{"type":"ping"}`))
	}
	assert.Equal(t, maxMessagesPerSecond, len(client.Send))
}
