// Package transport is the direct peer link: one PeerConnection carrying
// the ordered game data channel.
package transport

import (
	"context"
	"errors"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/1ureka/lightcycles/internal/protocol"
	"github.com/1ureka/lightcycles/internal/util"
)

// Config selects ICE servers and the transport's role.
type Config struct {
	ICEServers []webrtc.ICEServer
	// Initiator creates the data channel; the other side accepts it.
	Initiator bool
	// Loopback gathers 127.0.0.1 candidates too.
	Loopback bool
}

// Transport wraps a PeerConnection and its game data channel.
//
// Its lifecycle is governed by the data channel and the context passed at
// construction time. The PeerConnection state is recorded but does not
// drive open/close decisions.
type Transport struct {
	pc *webrtc.PeerConnection

	sender     *sender
	openSignal chan struct{}
	openOnce   sync.Once

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	closeErr  error

	mu         sync.RWMutex
	dc         *webrtc.DataChannel
	pcState    webrtc.PeerConnectionState
	onPosition func(protocol.Position)
}

// New creates a Transport. The initiator opens the data channel right away;
// the other side attaches to the channel announced by the remote.
func New(ctx context.Context, cfg Config) (*Transport, error) {
	pc, err := newPeerConnection(cfg)
	if err != nil {
		return nil, err
	}

	tCtx, tCancel := context.WithCancel(ctx)

	t := &Transport{
		pc:         pc,
		sender:     newSender(),
		openSignal: make(chan struct{}),
		ctx:        tCtx,
		cancel:     tCancel,
		pcState:    webrtc.PeerConnectionStateNew,
	}

	// Record PC state (informational only).
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		util.LogDebug("PeerConnection state: %s", state.String())
		t.mu.Lock()
		t.pcState = state
		t.mu.Unlock()
	})

	if cfg.Initiator {
		dc, err := newDataChannel(pc)
		if err != nil {
			tCancel()
			pc.Close()
			return nil, err
		}
		t.attach(dc)
	} else {
		pc.OnDataChannel(func(dc *webrtc.DataChannel) {
			if dc.Label() != ChannelLabel {
				util.LogWarning("ignoring unexpected data channel %q", dc.Label())
				return
			}
			t.attach(dc)
		})
	}

	go t.sender.loop(tCtx, t.openSignal, t.channel)

	return t, nil
}

// attach wires the data channel callbacks. Only the first channel counts.
func (t *Transport) attach(dc *webrtc.DataChannel) {
	t.mu.Lock()
	if t.dc != nil {
		t.mu.Unlock()
		return
	}
	t.dc = dc
	t.mu.Unlock()

	// DC open gate.
	dc.OnOpen(func() {
		util.LogDebug("DataChannel %q open", dc.Label())
		t.openOnce.Do(func() { close(t.openSignal) })
	})

	// DC close → cancel transport context.
	dc.OnClose(func() {
		util.LogDebug("DataChannel closed")
		t.cancel()
	})

	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		p, err := protocol.DecodePosition(msg.Data)
		if err != nil {
			util.LogWarning("dropping inbound message: %v", err)
			return
		}
		util.Stats.AddRecv(len(msg.Data))

		t.mu.RLock()
		fn := t.onPosition
		t.mu.RUnlock()
		if fn != nil {
			fn(p)
		}
	})
}

func (t *Transport) channel() *webrtc.DataChannel {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.dc
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

// Ready returns a channel that is closed when the data channel is open.
func (t *Transport) Ready() <-chan struct{} {
	return t.openSignal
}

// Done returns a channel that is closed when the Transport is shut down
// (data channel closed, Close called, or parent context cancelled).
func (t *Transport) Done() <-chan struct{} {
	return t.ctx.Done()
}

// Close shuts down the data channel and PeerConnection. Later calls return
// the first result.
func (t *Transport) Close() error {
	t.closeOnce.Do(func() {
		t.cancel()
		var dcErr error
		if dc := t.channel(); dc != nil {
			dcErr = dc.Close()
		}
		t.closeErr = errors.Join(dcErr, t.pc.Close())
	})
	return t.closeErr
}

// ConnectionState returns the last observed PeerConnection state.
func (t *Transport) ConnectionState() webrtc.PeerConnectionState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pcState
}

// ---------------------------------------------------------------------------
// Signaling
// ---------------------------------------------------------------------------

// CreateOffer generates an SDP offer.
func (t *Transport) CreateOffer() (webrtc.SessionDescription, error) {
	return t.pc.CreateOffer(nil)
}

// CreateAnswer generates an SDP answer.
func (t *Transport) CreateAnswer() (webrtc.SessionDescription, error) {
	return t.pc.CreateAnswer(nil)
}

// SetLocalDescription applies the local SDP.
func (t *Transport) SetLocalDescription(sdp webrtc.SessionDescription) error {
	return t.pc.SetLocalDescription(sdp)
}

// SetRemoteDescription applies the remote SDP.
func (t *Transport) SetRemoteDescription(sdp webrtc.SessionDescription) error {
	return t.pc.SetRemoteDescription(sdp)
}

// OnLocalCandidate registers a callback for every gathered local ICE
// candidate. The end-of-gathering marker is not forwarded.
func (t *Transport) OnLocalCandidate(fn func(webrtc.ICECandidateInit)) {
	t.pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c != nil {
			fn(c.ToJSON())
		}
	})
}

// AddICECandidate adds a remote ICE candidate received through signaling.
func (t *Transport) AddICECandidate(candidate webrtc.ICECandidateInit) error {
	return t.pc.AddICECandidate(candidate)
}

// ---------------------------------------------------------------------------
// Data
// ---------------------------------------------------------------------------

// SendPosition queues a snapshot for the peer. It never blocks: before the
// channel opens, after it closes, or while it is congested the snapshot is
// dropped.
func (t *Transport) SendPosition(p protocol.Position) {
	select {
	case <-t.openSignal:
	default:
		util.Stats.AddDropped()
		return
	}
	if t.ctx.Err() != nil || !t.sender.send(p) {
		util.Stats.AddDropped()
	}
}

// OnPosition registers the callback for inbound snapshots. It runs on a
// pion goroutine and must not block.
func (t *Transport) OnPosition(fn func(protocol.Position)) {
	t.mu.Lock()
	t.onPosition = fn
	t.mu.Unlock()
}
