package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"draco-chat-be/internal/pkg/logger"
)

const clusterChannel = "debug_run_events"

// Hub fans workflow updates out to the browsers watching each debug run.
// Multiple watchers per run are allowed. When Redis is available, updates
// are also relayed across instances so a watcher can connect to any node.
type Hub struct {
	// Watching clients map: debug session id -> clients
	clients map[string][]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	// Redis connection for cross-instance relay
	rdb *redis.Client

	// Identifies this instance on the relay channel so it can skip its
	// own envelopes; local delivery already happened in Publish.
	instanceID string

	logger logger.ILogger
}

// clusterEnvelope is the payload relayed through Redis.
type clusterEnvelope struct {
	Origin    string          `json:"origin"`
	SessionID string          `json:"session_id"`
	Message   json.RawMessage `json:"message"`
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string][]*Client),
		rdb:        rdb,
		instanceID: uuid.NewString(),
		logger:     log,
	}
}

func (h *Hub) Run() {
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.SessionID] = append(h.clients[client.SessionID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Watcher registered", map[string]interface{}{"session_id": client.SessionID})

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.SessionID]; ok {
				for i, c := range clients {
					if c == client {
						h.clients[client.SessionID] = append(clients[:i], clients[i+1:]...)
						close(client.Send)
						break
					}
				}
				if len(h.clients[client.SessionID]) == 0 {
					delete(h.clients, client.SessionID)
					h.logger.Info("Hub", "Last watcher left", map[string]interface{}{"session_id": client.SessionID})
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish sends an update to every watcher of a run, locally and through
// Redis for watchers connected to other instances.
func (h *Hub) Publish(sessionID string, update interface{}) {
	data, err := json.Marshal(update)
	if err != nil {
		h.logger.Error("Hub", "Failed to marshal update", map[string]interface{}{"error": err.Error()})
		return
	}

	h.deliverLocal(sessionID, data)

	if h.rdb != nil {
		envelope, _ := json.Marshal(clusterEnvelope{
			Origin:    h.instanceID,
			SessionID: sessionID,
			Message:   data,
		})
		h.rdb.Publish(context.Background(), clusterChannel, envelope)
	}
}

// deliverLocal sends to every watcher of the session. Sends happen under
// the read lock so the unregister path, which closes Send under the write
// lock, can never close a channel mid-send. Slow watchers are dropped; the
// unregister case in Run is the single owner of closing Send.
func (h *Hub) deliverLocal(sessionID string, data []byte) {
	var dropped []*Client

	h.mu.RLock()
	for _, client := range h.clients[sessionID] {
		select {
		case client.Send <- data:
		default:
			dropped = append(dropped, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range dropped {
		h.logger.Warn("Hub", "Watcher buffer full, dropping connection", map[string]interface{}{"session_id": sessionID})
		h.unregister <- client
	}
}

// subscribeToRedis relays envelopes published by other instances to
// watchers connected here.
func (h *Hub) subscribeToRedis() {
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		h.handleEnvelope([]byte(msg.Payload))
	}
}

func (h *Hub) handleEnvelope(payload []byte) {
	var envelope clusterEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		h.logger.Warn("Hub", "Bad cluster envelope", map[string]interface{}{"error": err.Error()})
		return
	}
	if envelope.Origin == h.instanceID {
		return
	}
	h.deliverLocal(envelope.SessionID, envelope.Message)
}
