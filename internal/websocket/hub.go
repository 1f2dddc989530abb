package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"rag-lab-ui/internal/pkg/logger"
	"rag-lab-ui/pkg/events"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	hubModule = "Hub"

	// ClusterChannel carries events between instances sharing one Redis.
	ClusterChannel = "raglab_cluster_events"
)

type clusterMessage struct {
	Origin    string          `json:"origin"`
	SessionID string          `json:"session_id"`
	Message   json.RawMessage `json:"message"`
}

type Hub struct {
	// Registered clients map: SessionID -> every open panel of that session
	clients map[string][]*Client

	register   chan *Client
	unregister chan *Client
	closeAll   chan string
	done       chan struct{}

	mu sync.RWMutex

	// Redis connection for cross-instance communication, nil when disabled
	rdb *redis.Client

	// instance id, used to skip our own messages coming back from Redis
	origin string

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		closeAll:   make(chan string),
		done:       make(chan struct{}),
		clients:    make(map[string][]*Client),
		rdb:        rdb,
		origin:     uuid.NewString(),
		logger:     log,
	}
}

// Run owns registration until ctx is done. Send channels are only closed
// under the write lock, so deliveries made under the read lock never hit a
// closed channel.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, clients := range h.clients {
				for _, client := range clients {
					close(client.Send)
				}
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			// The initial frame is built while deliveries are held off, so
			// nothing dispatched after it can be missed by this client.
			h.mu.Lock()
			h.clients[client.SessionID] = append(h.clients[client.SessionID], client)
			if client.initial != nil {
				if frame := client.initial(); frame != nil {
					select {
					case client.Send <- frame:
					default:
					}
				}
			}
			h.mu.Unlock()
			h.logger.Info(hubModule, "Client registered", map[string]interface{}{"session_id": client.SessionID})

		case client := <-h.unregister:
			h.remove(client)

		case sessionID := <-h.closeAll:
			h.mu.Lock()
			for _, client := range h.clients[sessionID] {
				close(client.Send)
			}
			delete(h.clients, sessionID)
			h.mu.Unlock()
			h.logger.Info(hubModule, "Session closed", map[string]interface{}{"session_id": sessionID})
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[client.SessionID]
	if !ok {
		return
	}
	for i, c := range clients {
		if c == client {
			h.clients[client.SessionID] = append(clients[:i], clients[i+1:]...)
			close(client.Send)
			break
		}
	}
	if len(h.clients[client.SessionID]) == 0 {
		delete(h.clients, client.SessionID)
		h.logger.Info(hubModule, "Client completely unregistered", map[string]interface{}{"session_id": client.SessionID})
	}
}

func (h *Hub) join(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// CloseSession disconnects every panel watching sessionID.
func (h *Hub) CloseSession(sessionID string) {
	select {
	case h.closeAll <- sessionID:
	case <-h.done:
	}
}

// Clients reports how many connections watch sessionID.
func (h *Hub) Clients(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

// Dispatch is the bus handler: it routes an event to the panels of its
// session and mirrors it to the other instances.
func (h *Hub) Dispatch(ctx context.Context, event events.Event) error {
	sessionID := events.SessionID(event)
	if sessionID == "" {
		return nil
	}

	data, err := json.Marshal(events.FromEvent(event))
	if err != nil {
		return err
	}
	h.deliver(sessionID, data)

	if h.rdb != nil {
		payload, _ := json.Marshal(clusterMessage{
			Origin:    h.origin,
			SessionID: sessionID,
			Message:   data,
		})
		if err := h.rdb.Publish(ctx, ClusterChannel, payload).Err(); err != nil {
			h.logger.Warn(hubModule, "Redis publish failed", map[string]interface{}{
				"session_id": sessionID,
				"error":      err.Error(),
			})
		}
	}
	return nil
}

func (h *Hub) deliver(sessionID string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients[sessionID] {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn(hubModule, "Client Send buffer full, dropping client", map[string]interface{}{"session_id": sessionID})
			go h.leave(client)
		}
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, ClusterChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var payload clusterMessage
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			h.logger.Warn(hubModule, "Redis msg parse error", map[string]interface{}{"error": err.Error()})
			continue
		}
		if payload.Origin == h.origin {
			continue
		}
		h.deliver(payload.SessionID, payload.Message)
	}
}
