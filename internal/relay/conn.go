package relay

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/1ureka/lightcycles/internal/protocol"
	"github.com/1ureka/lightcycles/internal/util"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. SDP bodies are the largest.
	maxMessageSize = 64 * 1024
)

// client is one WebSocket connection. Its id doubles as the player id.
type client struct {
	id   string
	addr string
	hub  *Hub
	conn *websocket.Conn
	send chan protocol.Envelope
}

func newClient(hub *Hub, conn *websocket.Conn) *client {
	return &client{
		id:   newConnID(),
		addr: conn.RemoteAddr().String(),
		hub:  hub,
		conn: conn,
		send: make(chan protocol.Envelope, sendBufferSize),
	}
}

// readPump decodes envelopes from the connection and hands them to the hub.
// It is the only reader of conn.
func (c *client) readPump() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var env protocol.Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				util.LogWarning("conn %s: read: %v", c.id, err)
			}
			return
		}
		if !c.hub.dispatch(inbound{conn: c, env: env}) {
			return
		}
	}
}

// writePump drains the send queue and keeps the connection alive with
// pings. It is the only writer of conn.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case env, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(env); err != nil {
				util.LogWarning("conn %s: write: %v", c.id, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
