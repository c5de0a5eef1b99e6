package websocket

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/bullsai/watchlist/internal/models"
	"github.com/bullsai/watchlist/internal/utils"
)

const (
	writeWait      = 10 * time.Second
	broadcastQueue = 256
)

type client struct {
	conn   *websocket.Conn
	userID string
}

// Hub maintains the set of active clients and forwards favourite events to
// the connections of the user they belong to.
type Hub struct {
	clients    map[*client]bool
	register   chan *client
	unregister chan *client

	// Messages to be delivered to connected clients
	broadcast chan models.Message

	// Upgrader for HTTP connections to WebSocket
	upgrader websocket.Upgrader

	done     chan struct{}
	onChange func(int)
	log      logrus.FieldLogger
}

// NewHub creates a new hub. onChange, when set, receives the client count
// after every connect and disconnect.
func NewHub(log logrus.FieldLogger, onChange func(int)) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan models.Message, broadcastQueue),
		upgrader: websocket.Upgrader{
			// Origins are enforced by the CORS layer.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		done:     make(chan struct{}),
		onChange: onChange,
		log:      log,
	}
}

// Run delivers messages until ctx is cancelled. It is the only goroutine that
// writes to connections.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				c.conn.Close()
				delete(h.clients, c)
			}
			return
		case c := <-h.register:
			h.clients[c] = true
			h.changed()
		case c := <-h.unregister:
			if h.clients[c] {
				delete(h.clients, c)
				c.conn.Close()
				h.changed()
			}
		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

func (h *Hub) deliver(msg models.Message) {
	owner := ""
	if ev, ok := msg.Content.(models.FavoriteEvent); ok {
		owner = ev.UserID
	}
	for c := range h.clients {
		if owner != "" && c.userID != owner {
			continue
		}
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(msg); err != nil {
			h.log.WithError(err).WithField("user_id", c.userID).Warn("Error sending message to client")
			c.conn.Close()
			delete(h.clients, c)
			h.changed()
		}
	}
}

func (h *Hub) changed() {
	if h.onChange != nil {
		h.onChange(len(h.clients))
	}
}

// HandleWebSocket upgrades an authenticated HTTP request to a WebSocket.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("Error upgrading to WebSocket")
		return
	}

	c := &client{conn: ws, userID: userID}
	select {
	case h.register <- c:
	case <-h.done:
		ws.Close()
		return
	}

	// Read messages from the client (to keep the connection alive)
	go func() {
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				select {
				case h.unregister <- c:
				case <-h.done:
				}
				return
			}
		}
	}()
}

// Broadcast queues a message for delivery. It never blocks the caller: when
// the queue is full the message is dropped.
func (h *Hub) Broadcast(msg models.Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.log.WithField("type", msg.Type).Warn("Websocket queue full, dropping message")
	}
}
