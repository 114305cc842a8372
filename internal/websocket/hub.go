package websocket

import (
	"context"
	"encoding/json"

	"podcast-studio-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ClusterChannel is the Redis channel instances use to forward session
// updates to each other.
const ClusterChannel = "cluster_events"

// Envelope is the frame written to browser clients.
type Envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type clusterMessage struct {
	Origin          string          `json:"origin"`
	TargetSessionID string          `json:"target_session_id"`
	Message         json.RawMessage `json:"message"`
}

// Hub fans composer session updates out to the websocket connections watching
// that session. The client map is owned by the Run goroutine.
type Hub struct {
	// composer session id -> connections (several tabs may watch one session)
	clients map[string][]*Client

	register   chan *Client
	unregister chan *Client
	outbound   chan clusterMessage

	// Redis connection for cross-instance fan-out; nil runs single-instance.
	rdb *redis.Client
	// instanceID lets an instance skip its own messages coming back from Redis.
	instanceID string

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		clients:    make(map[string][]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		outbound:   make(chan clusterMessage, 256),
		rdb:        rdb,
		instanceID: uuid.NewString(),
		logger:     log,
	}
}

// Run owns the client map until ctx is cancelled. Clients still registered at
// that point have their send channel closed.
func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			for id, clients := range h.clients {
				for _, c := range clients {
					close(c.Send)
				}
				delete(h.clients, id)
			}
			return

		case client := <-h.register:
			h.clients[client.SessionID] = append(h.clients[client.SessionID], client)
			h.logger.Info("Hub", "Client registered", map[string]interface{}{
				"session_id": client.SessionID,
				"user_id":    client.UserID,
			})

		case client := <-h.unregister:
			h.remove(client)

		case msg := <-h.outbound:
			h.deliver(msg.TargetSessionID, msg.Message)
		}
	}
}

// Send queues a typed frame for every connection watching sessionID, here and
// on other instances.
func (h *Hub) Send(sessionID, msgType string, data interface{}) {
	payload, err := json.Marshal(Envelope{Type: msgType, Data: data})
	if err != nil {
		h.logger.Error("Hub", "Failed to marshal websocket frame", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		return
	}

	msg := clusterMessage{Origin: h.instanceID, TargetSessionID: sessionID, Message: payload}
	h.enqueue(msg)

	if h.rdb != nil {
		raw, _ := json.Marshal(msg)
		if err := h.rdb.Publish(context.Background(), ClusterChannel, raw).Err(); err != nil {
			h.logger.Warn("Hub", "Failed to publish to Redis", map[string]interface{}{
				"session_id": sessionID,
				"error":      err.Error(),
			})
		}
	}
}

func (h *Hub) enqueue(msg clusterMessage) {
	select {
	case h.outbound <- msg:
	default:
		h.logger.Warn("Hub", "Outbound queue full, dropping message", map[string]interface{}{
			"session_id": msg.TargetSessionID,
		})
	}
}

// deliver must only be called from Run.
func (h *Hub) deliver(sessionID string, data []byte) {
	for _, client := range h.clients[sessionID] {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("Hub", "Client send buffer full, dropping connection", map[string]interface{}{
				"session_id": sessionID,
				"user_id":    client.UserID,
			})
			h.remove(client)
		}
	}
}

// remove must only be called from Run.
func (h *Hub) remove(client *Client) {
	clients, ok := h.clients[client.SessionID]
	if !ok {
		return
	}
	for i, c := range clients {
		if c == client {
			h.clients[client.SessionID] = append(clients[:i:i], clients[i+1:]...)
			close(client.Send)
			break
		}
	}
	if len(h.clients[client.SessionID]) == 0 {
		delete(h.clients, client.SessionID)
		h.logger.Info("Hub", "Last client for session unregistered", map[string]interface{}{
			"session_id": client.SessionID,
		})
	}
}

// subscribeToRedis forwards updates published by other instances to local
// clients. Every instance subscribes; sessions it does not hold are ignored
// by deliver.
func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, ClusterChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			var msg clusterMessage
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				h.logger.Warn("Hub", "Redis message parse error", map[string]interface{}{"error": err.Error()})
				continue
			}
			if msg.Origin == h.instanceID {
				continue
			}
			h.enqueue(msg)
		}
	}
}
