package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"rag-lab-ui/internal/pkg/logger"
	"rag-lab-ui/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(nil, logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func TestHub_RoutesBySession(t *testing.T) {
	hub := startHub(t)

	mine := &Client{Hub: hub, SessionID: "s1", Send: make(chan []byte, 4)}
	other := &Client{Hub: hub, SessionID: "s2", Send: make(chan []byte, 4)}
	require.True(t, hub.join(mine))
	require.True(t, hub.join(other))
	require.Eventually(t, func() bool { return hub.Clients("s1") == 1 && hub.Clients("s2") == 1 }, time.Second, 5*time.Millisecond)

	err := hub.Dispatch(context.Background(), events.BaseEvent{
		Type: events.TypeQueryStateChanged,
		Data: map[string]interface{}{events.KeySessionID: "s1", events.KeyState: map[string]interface{}{"answer": "42"}},
	})
	require.NoError(t, err)

	select {
	case raw := <-mine.Send:
		var got events.BaseEvent
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, events.TypeQueryStateChanged, got.Type)
		assert.Equal(t, "s1", events.SessionID(got))
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
	assert.Empty(t, other.Send)
}

func TestHub_IgnoresEventsWithoutSession(t *testing.T) {
	hub := startHub(t)
	client := &Client{Hub: hub, SessionID: "s1", Send: make(chan []byte, 1)}
	require.True(t, hub.join(client))

	require.NoError(t, hub.Dispatch(context.Background(), events.BaseEvent{Type: "X", Data: map[string]interface{}{}}))
	assert.Empty(t, client.Send)
}

func TestHub_CloseSessionAndLeave(t *testing.T) {
	hub := startHub(t)
	a := &Client{Hub: hub, SessionID: "s1", Send: make(chan []byte, 1)}
	b := &Client{Hub: hub, SessionID: "s1", Send: make(chan []byte, 1)}
	require.True(t, hub.join(a))
	require.True(t, hub.join(b))

	hub.leave(a)
	_, open := <-a.Send
	assert.False(t, open)
	assert.Equal(t, 1, hub.Clients("s1"))

	hub.CloseSession("s1")
	_, open = <-b.Send
	assert.False(t, open)
	assert.Equal(t, 0, hub.Clients("s1"))
}

func TestHub_StoppedHubRejectsJoin(t *testing.T) {
	hub := NewHub(nil, logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	assert.False(t, hub.join(&Client{Hub: hub, SessionID: "s1", Send: make(chan []byte, 1)}))
	hub.CloseSession("s1") // must not block
}

func TestHub_InitialFramePrecedesConcurrentEvents(t *testing.T) {
	hub := startHub(t)
	dispatched := make(chan error, 1)
	client := &Client{Hub: hub, SessionID: "s1", Send: make(chan []byte, 4)}
	client.initial = func() []byte {
		// A state change landing while the snapshot is being taken.
		go func() {
			dispatched <- hub.Dispatch(context.Background(), events.BaseEvent{
				Type: events.TypeQueryStateChanged,
				Data: map[string]interface{}{events.KeySessionID: "s1"},
			})
		}()
		return []byte(`{"type":"PANEL_SNAPSHOT"}`)
	}
	require.True(t, hub.join(client))

	select {
	case raw := <-client.Send:
		assert.JSONEq(t, `{"type":"PANEL_SNAPSHOT"}`, string(raw))
	case <-time.After(time.Second):
		t.Fatal("initial frame not queued")
	}
	require.NoError(t, <-dispatched)

	select {
	case raw := <-client.Send:
		var got events.BaseEvent
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, events.TypeQueryStateChanged, got.Type)
	case <-time.After(time.Second):
		t.Fatal("event raised during attach was lost")
	}
}

func TestHub_NilInitialFrameIsSkipped(t *testing.T) {
	hub := startHub(t)
	client := &Client{Hub: hub, SessionID: "s1", Send: make(chan []byte, 1), initial: func() []byte { return nil }}
	require.True(t, hub.join(client))
	require.Eventually(t, func() bool { return hub.Clients("s1") == 1 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, client.Send)
}
