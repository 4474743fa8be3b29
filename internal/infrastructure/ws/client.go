package ws

import (
	"encoding/json"
	"log"

	"github.com/gorilla/websocket"
)

// Dispatcher receives parsed inbound frames and the transport-level
// disconnect signal for a client.
type Dispatcher interface {
	Dispatch(c *Client, msg Inbound)
	Disconnected(c *Client)
}

type Client struct {
	conn *connWrapper
	send chan *Envelope
	ID   string `json:"id"`
}

func NewClient(conn *websocket.Conn, id string) *Client {
	return &Client{
		conn: newConnWrapper(conn),
		send: make(chan *Envelope, 64), // buffered to avoid dead-locks on slow clients
		ID:   id,
	}
}

func (c *Client) ReadPump(d Dispatcher) {
	defer func() {
		d.Disconnected(c)
		_ = c.conn.Close()
	}()

	for {
		_, raw, err := c.conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("ws read error (client %s): %v", c.ID, err)
			}
			break
		}

		var in Inbound
		if err := json.Unmarshal(raw, &in); err != nil {
			log.Printf("ws malformed frame (client %s): %v", c.ID, err)
			continue
		}

		d.Dispatch(c, in)
	}
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			log.Printf("ws write error (client %s): %v", c.ID, err)
			break
		}
	}
}
