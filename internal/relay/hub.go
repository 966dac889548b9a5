package relay

import (
	"context"

	"github.com/google/uuid"

	"github.com/1ureka/lightcycles/internal/protocol"
	"github.com/1ureka/lightcycles/internal/util"
)

// sendBufferSize is the per-connection outbound queue length.
const sendBufferSize = 64

type inbound struct {
	conn *client
	env  protocol.Envelope
}

// Hub owns every connection and the Service. All state changes happen on
// the goroutine running Run; pumps talk to it through channels only.
type Hub struct {
	svc     *Service
	metrics *Metrics

	clients map[string]*client

	register   chan *client
	unregister chan *client
	inbound    chan inbound
	done       chan struct{}
}

// NewHub returns a Hub over store. metrics may be nil.
func NewHub(store RoomStore, metrics *Metrics) *Hub {
	h := &Hub{
		metrics:    metrics,
		clients:    make(map[string]*client),
		register:   make(chan *client),
		unregister: make(chan *client),
		inbound:    make(chan inbound),
		done:       make(chan struct{}),
	}
	h.svc = NewService(store, h, metrics)
	return h
}

// Run processes hub traffic until ctx is cancelled. Open connections are
// closed on the way out.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case c := <-h.register:
			h.clients[c.id] = c
			h.gaugeConnections()
			util.LogDebug("conn %s registered from %s", c.id, c.addr)
			h.sendConnected(c)

		case c := <-h.unregister:
			if _, ok := h.clients[c.id]; !ok {
				continue
			}
			h.svc.Disconnect(c.id)
			delete(h.clients, c.id)
			close(c.send)
			h.gaugeConnections()
			util.LogDebug("conn %s unregistered", c.id)

		case msg := <-h.inbound:
			if _, ok := h.clients[msg.conn.id]; !ok {
				continue
			}
			h.svc.Handle(msg.conn.id, msg.env)

		case <-ctx.Done():
			for id, c := range h.clients {
				close(c.send)
				delete(h.clients, id)
			}
			h.gaugeConnections()
			return
		}
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} { return h.done }

// Send implements Outbox. A connection whose queue is full loses the event.
func (h *Hub) Send(connID string, env protocol.Envelope) bool {
	c, ok := h.clients[connID]
	if !ok {
		return false
	}
	select {
	case c.send <- env:
	default:
		util.LogWarning("conn %s: send queue full, dropping %s", connID, env.Event)
		if h.metrics != nil {
			h.metrics.Dropped.Inc()
		}
	}
	return true
}

func (h *Hub) sendConnected(c *client) {
	env, err := protocol.NewEnvelope(protocol.EventConnected, protocol.Connected{PlayerID: c.id})
	if err != nil {
		util.LogError("conn %s: %v", c.id, err)
		return
	}
	h.Send(c.id, env)
}

// dispatch hands an envelope to the hub goroutine. It gives up once the
// hub stops.
func (h *Hub) dispatch(msg inbound) bool {
	select {
	case h.inbound <- msg:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) join(c *client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) gaugeConnections() {
	if h.metrics != nil {
		h.metrics.Connections.Set(float64(len(h.clients)))
	}
}

func newConnID() string {
	return uuid.NewString()
}
