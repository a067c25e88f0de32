package live

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/matthewbaird/partmanager/internal/event"
	"github.com/matthewbaird/partmanager/internal/snapshot"
	"github.com/matthewbaird/partmanager/internal/types"
)

// sendBuffer is the per-connection queue length. A client that falls this
// far behind is disconnected.
const sendBuffer = 16

// Portfolio is the collection the hub mirrors.
type Portfolio interface {
	Buildings() []types.Building
	Replace(ctx context.Context, buildings []types.Building, source string) error
}

// Hub tracks WebSocket connections and broadcasts the collection after
// every domain event. It implements eventbus.Handler.
type Hub struct {
	portfolio Portfolio
	decoder   *snapshot.Decoder
	log       *slog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	send   chan ServerMessage
	cancel context.CancelFunc
}

// NewHub creates a Hub. Pushed documents are decoded with decoder.
func NewHub(p Portfolio, decoder *snapshot.Decoder, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		portfolio: p,
		decoder:   decoder,
		log:       logger.With("component", "live"),
		clients:   make(map[*client]struct{}),
	}
}

// Clients returns the number of open connections.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// HandleEvent broadcasts the collection as it is after evt.
func (h *Hub) HandleEvent(_ context.Context, evt event.DomainEvent) error {
	h.broadcast(h.snapshot(&evt))
	return nil
}

// ServeHTTP upgrades to WebSocket and runs the message loop.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Error("websocket accept", "error", err)
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := &client{send: make(chan ServerMessage, sendBuffer), cancel: cancel}
	c.send <- h.snapshot(nil)
	h.register(c)
	defer h.unregister(c)

	go h.writeLoop(ctx, conn, c)

	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if websocket.CloseStatus(err) != -1 {
				h.log.Debug("connection closed", "status", websocket.CloseStatus(err))
			}
			return
		}

		switch msg.Type {
		case "push":
			h.handlePush(ctx, c, msg)
		case "ping":
			h.enqueue(c, ServerMessage{Type: "pong", RequestID: msg.ID})
		default:
			h.sendError(c, msg.ID, "unknown_type", fmt.Sprintf("unknown message type: %s", msg.Type))
		}
	}
}

func (h *Hub) handlePush(ctx context.Context, c *client, msg ClientMessage) {
	if len(msg.Data) == 0 {
		h.sendError(c, msg.ID, "invalid_data", "push requires a document")
		return
	}
	buildings, err := h.decoder.Decode(msg.Data)
	if err != nil {
		h.sendError(c, msg.ID, "invalid_document", err.Error())
		return
	}
	if err := h.portfolio.Replace(ctx, buildings, "sync"); err != nil {
		h.log.Error("applying push", "error", err)
		h.sendError(c, msg.ID, "apply_failed", err.Error())
		return
	}
	ack := AckData{Buildings: len(buildings)}
	for _, b := range buildings {
		ack.Apartments += len(b.Apartments)
	}
	h.enqueue(c, ServerMessage{Type: "ack", RequestID: msg.ID, Data: ack})
}

func (h *Hub) writeLoop(ctx context.Context, conn *websocket.Conn, c *client) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-c.send:
			if err := wsjson.Write(ctx, conn, msg); err != nil {
				h.log.Debug("write error", "error", err)
				c.cancel()
				return
			}
		}
	}
}

func (h *Hub) snapshot(evt *event.DomainEvent) ServerMessage {
	data := SnapshotData{Version: snapshot.CurrentVersion, Buildings: h.portfolio.Buildings()}
	if data.Buildings == nil {
		data.Buildings = []types.Building{}
	}
	if evt != nil {
		data.EventID, data.EventType = evt.ID, evt.EventType
	}
	return ServerMessage{Type: "snapshot", Data: data}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}

func (h *Hub) broadcast(msg ServerMessage) {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.enqueue(c, msg)
	}
}

// enqueue never blocks. A full queue disconnects the client.
func (h *Hub) enqueue(c *client, msg ServerMessage) {
	select {
	case c.send <- msg:
	default:
		h.log.Warn("client too slow, disconnecting")
		c.cancel()
	}
}

func (h *Hub) sendError(c *client, requestID, code, message string) {
	h.enqueue(c, ServerMessage{
		Type:      "error",
		RequestID: requestID,
		Data: ErrorData{
			Code:    code,
			Message: message,
		},
	})
}
