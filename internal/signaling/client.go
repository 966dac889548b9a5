// Package signaling connects a player to the relay and negotiates the
// direct peer link through it.
package signaling

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/1ureka/lightcycles/internal/protocol"
	"github.com/1ureka/lightcycles/internal/util"
)

// ErrRelayClosed is returned by writes after the relay connection ended.
var ErrRelayClosed = errors.New("relay connection closed")

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	eventBuffer  = 32
	helloTimeout = 10 * time.Second
)

// Client is a player's connection to the relay. Inbound events are
// delivered in order on Events; writes are serialised by a mutex.
type Client struct {
	conn *websocket.Conn
	id   string

	mu sync.Mutex // guards writes to conn

	events    chan protocol.Envelope
	closeOnce sync.Once
	done      chan struct{}
	err       error

	quitOnce sync.Once
	quit     chan struct{}
}

// Dial connects to the relay at url and waits for the connection's
// identity.
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to relay: %w", err)
	}

	id, err := readHello(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}

	c := &Client{
		conn:   conn,
		id:     id,
		events: make(chan protocol.Envelope, eventBuffer),
		done:   make(chan struct{}),
		quit:   make(chan struct{}),
	}

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
	})

	go c.readLoop()
	return c, nil
}

func readHello(conn *websocket.Conn) (string, error) {
	conn.SetReadDeadline(time.Now().Add(helloTimeout))
	var env protocol.Envelope
	if err := conn.ReadJSON(&env); err != nil {
		return "", fmt.Errorf("failed to read relay greeting: %w", err)
	}
	if env.Event != protocol.EventConnected {
		return "", fmt.Errorf("unexpected relay greeting %q", env.Event)
	}
	var hello protocol.Connected
	if err := env.Decode(&hello); err != nil {
		return "", err
	}
	if hello.PlayerID == "" {
		return "", errors.New("relay greeting without player id")
	}
	return hello.PlayerID, nil
}

// ID is this connection's player id as assigned by the relay.
func (c *Client) ID() string { return c.id }

// Events delivers relay events in arrival order. It is closed when the
// connection ends; Err then reports why.
func (c *Client) Events() <-chan protocol.Envelope { return c.events }

// Done is closed when the connection has ended.
func (c *Client) Done() <-chan struct{} { return c.done }

// Err returns the read error that ended the connection, if any.
func (c *Client) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// JoinRoom asks to be seated in roomID under name.
func (c *Client) JoinRoom(roomID, name string) error {
	return c.send(protocol.EventJoinRoom, protocol.JoinRoom{RoomID: roomID, PlayerName: name})
}

// Ready signals readiness in the current room.
func (c *Client) Ready() error {
	return c.send(protocol.EventPlayerReady, struct{}{})
}

// SendSignal forwards a peer-link signal to another player via the relay.
func (c *Client) SendSignal(to string, sig protocol.Signal) error {
	raw, err := protocol.EncodeSignal(sig)
	if err != nil {
		return err
	}
	return c.send(protocol.EventSignal, protocol.SignalRequest{To: to, Signal: raw})
}

// Close ends the connection. It is safe to call more than once.
func (c *Client) Close() error {
	c.quitOnce.Do(func() { close(c.quit) })

	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.conn.Close()
}

func (c *Client) send(event string, payload any) error {
	env, err := protocol.NewEnvelope(event, payload)
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return ErrRelayClosed
	default:
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(env); err != nil {
		return fmt.Errorf("send %s: %w", event, err)
	}
	return nil
}

func (c *Client) readLoop() {
	defer c.closeOnce.Do(func() {
		close(c.events)
		close(c.done)
	})

	for {
		var env protocol.Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			select {
			case <-c.quit:
				return
			default:
			}
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				c.err = fmt.Errorf("relay read: %w", err)
				util.LogDebug("relay connection ended: %v", err)
			}
			return
		}

		select {
		case c.events <- env:
		case <-c.quit:
			return
		}
	}
}
