package ws

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Hub is the delivery side of the broadcast path: a table of live clients
// keyed by connection id. It holds no room state; the registry resolves
// every audience to connection ids before handing frames over. Per-client
// send channels preserve emission order within an audience.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	upgrader websocket.Upgrader
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // CORS policy is enforced by the HTTP layer
			},
		},
	}
}

func (h *Hub) Upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return h.upgrader.Upgrade(w, r, nil)
}

func (h *Hub) Add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c.ID] = c
}

// Remove drops the client and closes its send channel, ending its write
// pump. Safe against concurrent Deliver calls: senders hold the read lock
// while enqueueing, so the channel is never closed mid-send.
func (h *Hub) Remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[id]; ok {
		delete(h.clients, id)
		close(c.send)
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Deliver enqueues msg for each named connection. Unknown ids are skipped
// (the client already disconnected). Delivery is fire-and-forget.
func (h *Hub) Deliver(connIDs []string, msg *Envelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, id := range connIDs {
		cl, ok := h.clients[id]
		if !ok {
			continue
		}
		h.enqueue(cl, msg)
	}
}

// DeliverAll enqueues msg for every connected client.
func (h *Hub) DeliverAll(msg *Envelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, cl := range h.clients {
		h.enqueue(cl, msg)
	}
}

func (h *Hub) enqueue(cl *Client, msg *Envelope) {
	select {
	case cl.send <- msg:
	default:
		// Client is too slow – drop the message
		log.Printf("client %s buffer full, dropping message", cl.ID)
	}
}
