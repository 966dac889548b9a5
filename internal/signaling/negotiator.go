package signaling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/1ureka/lightcycles/internal/protocol"
	"github.com/1ureka/lightcycles/internal/util"
)

// ErrAbandoned is returned by Wait after a negotiation step failed. The
// attempt is not retried.
var ErrAbandoned = errors.New("peer link negotiation abandoned")

// Peer is the negotiator's view of a peer transport.
type Peer interface {
	CreateOffer() (webrtc.SessionDescription, error)
	CreateAnswer() (webrtc.SessionDescription, error)
	SetLocalDescription(webrtc.SessionDescription) error
	SetRemoteDescription(webrtc.SessionDescription) error
	AddICECandidate(webrtc.ICECandidateInit) error

	// OnLocalCandidate registers fn for every gathered local candidate.
	OnLocalCandidate(fn func(webrtc.ICECandidateInit))

	// Ready is closed when the data channel opens.
	Ready() <-chan struct{}
	Close() error
}

// Mailbox carries signals to the remote player. The relay Client is one.
type Mailbox interface {
	SendSignal(to string, sig protocol.Signal) error
}

// NegotiatorConfig assembles a Negotiator.
type NegotiatorConfig struct {
	// Initiator creates the peer up front and sends the offer.
	Initiator bool
	// Remote is the only player whose signals are accepted.
	Remote  string
	Mailbox Mailbox
	// NewPeer builds the transport. The initiator calls it in Start, the
	// other side on the first offer.
	NewPeer func() (Peer, error)
}

// Negotiator runs one offer/answer exchange with trickled candidates.
// HandleSignal must be called from a single goroutine; local candidate
// callbacks may arrive from any goroutine.
type Negotiator struct {
	cfg NegotiatorConfig

	mu        sync.Mutex
	peer      Peer
	remoteSet bool
	pending   []webrtc.ICECandidateInit

	created   chan struct{}
	abandoned chan struct{}
	failOnce  sync.Once
	err       error
}

// NewNegotiator validates cfg and returns an idle Negotiator.
func NewNegotiator(cfg NegotiatorConfig) (*Negotiator, error) {
	if cfg.Remote == "" {
		return nil, errors.New("negotiator: empty remote id")
	}
	if cfg.Mailbox == nil || cfg.NewPeer == nil {
		return nil, errors.New("negotiator: mailbox and peer factory are required")
	}
	return &Negotiator{
		cfg:       cfg,
		created:   make(chan struct{}),
		abandoned: make(chan struct{}),
	}, nil
}

// Start opens the exchange. On the initiator it creates the peer, sets a
// local offer and sends it; on the other side it does nothing.
func (n *Negotiator) Start() error {
	if !n.cfg.Initiator {
		return nil
	}

	peer, err := n.createPeer()
	if err != nil {
		return n.fail(fmt.Errorf("create peer: %w", err))
	}

	offer, err := peer.CreateOffer()
	if err != nil {
		return n.fail(fmt.Errorf("CreateOffer: %w", err))
	}
	if err := peer.SetLocalDescription(offer); err != nil {
		return n.fail(fmt.Errorf("SetLocalDescription: %w", err))
	}
	if err := n.cfg.Mailbox.SendSignal(n.cfg.Remote, protocol.Signal{Type: protocol.SignalOffer, SDP: offer.SDP}); err != nil {
		return n.fail(fmt.Errorf("send offer: %w", err))
	}
	util.LogDebug("offer sent to %s", n.cfg.Remote)
	return nil
}

// HandleSignal applies a signal relayed from another player. Signals from
// anyone but the expected remote, and everything after abandonment, are
// ignored.
func (n *Negotiator) HandleSignal(from string, raw json.RawMessage) {
	if from != n.cfg.Remote {
		util.LogDebug("ignoring signal from unexpected peer %s", from)
		return
	}
	if n.isAbandoned() {
		return
	}

	sig, err := protocol.ParseSignal(raw)
	if err != nil {
		util.LogWarning("dropping malformed signal from %s: %v", from, err)
		return
	}

	switch sig.Type {
	case protocol.SignalOffer:
		n.handleOffer(sig.SDP)
	case protocol.SignalAnswer:
		n.handleAnswer(sig.SDP)
	case protocol.SignalCandidate:
		n.handleCandidate(sig.Candidate)
	}
}

// Wait blocks until the data channel is open, the attempt is abandoned, or
// ctx ends. There is no internal timeout.
func (n *Negotiator) Wait(ctx context.Context) (Peer, error) {
	select {
	case <-n.created:
	case <-n.abandoned:
		return nil, n.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	n.mu.Lock()
	peer := n.peer
	n.mu.Unlock()

	select {
	case <-peer.Ready():
		return peer, nil
	case <-n.abandoned:
		return nil, n.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close releases the peer if one was created. Callers that received the
// peer from Wait own it and close it themselves.
func (n *Negotiator) Close() error {
	n.mu.Lock()
	peer := n.peer
	n.mu.Unlock()
	if peer == nil {
		return nil
	}
	return peer.Close()
}

func (n *Negotiator) handleOffer(sdp string) {
	if n.cfg.Initiator {
		util.LogWarning("initiator received an offer from %s, ignoring", n.cfg.Remote)
		return
	}
	if n.currentPeer() != nil {
		util.LogDebug("duplicate offer from %s ignored", n.cfg.Remote)
		return
	}

	peer, err := n.createPeer()
	if err != nil {
		n.fail(fmt.Errorf("create peer: %w", err))
		return
	}
	if err := n.applyRemote(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: sdp}); err != nil {
		n.fail(err)
		return
	}

	answer, err := peer.CreateAnswer()
	if err != nil {
		n.fail(fmt.Errorf("CreateAnswer: %w", err))
		return
	}
	if err := peer.SetLocalDescription(answer); err != nil {
		n.fail(fmt.Errorf("SetLocalDescription: %w", err))
		return
	}
	if err := n.cfg.Mailbox.SendSignal(n.cfg.Remote, protocol.Signal{Type: protocol.SignalAnswer, SDP: answer.SDP}); err != nil {
		n.fail(fmt.Errorf("send answer: %w", err))
		return
	}
	util.LogDebug("answer sent to %s", n.cfg.Remote)
}

func (n *Negotiator) handleAnswer(sdp string) {
	if !n.cfg.Initiator {
		util.LogWarning("non-initiator received an answer from %s, ignoring", n.cfg.Remote)
		return
	}
	n.mu.Lock()
	already := n.remoteSet
	n.mu.Unlock()
	if already {
		util.LogDebug("duplicate answer from %s ignored", n.cfg.Remote)
		return
	}
	if err := n.applyRemote(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: sdp}); err != nil {
		n.fail(err)
	}
}

func (n *Negotiator) handleCandidate(raw string) {
	var init webrtc.ICECandidateInit
	if err := json.Unmarshal([]byte(raw), &init); err != nil {
		n.fail(fmt.Errorf("parse ICE candidate: %w", err))
		return
	}

	n.mu.Lock()
	if !n.remoteSet {
		n.pending = append(n.pending, init)
		n.mu.Unlock()
		return
	}
	peer := n.peer
	n.mu.Unlock()

	if err := peer.AddICECandidate(init); err != nil {
		n.fail(fmt.Errorf("AddICECandidate: %w", err))
	}
}

// applyRemote sets the remote description and flushes candidates that
// arrived ahead of it, in arrival order.
func (n *Negotiator) applyRemote(desc webrtc.SessionDescription) error {
	peer := n.currentPeer()
	if err := peer.SetRemoteDescription(desc); err != nil {
		return fmt.Errorf("SetRemoteDescription(%s): %w", desc.Type, err)
	}

	n.mu.Lock()
	n.remoteSet = true
	pending := n.pending
	n.pending = nil
	n.mu.Unlock()

	for _, c := range pending {
		if err := peer.AddICECandidate(c); err != nil {
			return fmt.Errorf("AddICECandidate: %w", err)
		}
	}
	return nil
}

func (n *Negotiator) createPeer() (Peer, error) {
	peer, err := n.cfg.NewPeer()
	if err != nil {
		return nil, err
	}

	peer.OnLocalCandidate(func(init webrtc.ICECandidateInit) {
		if n.isAbandoned() {
			return
		}
		data, err := json.Marshal(init)
		if err != nil {
			util.LogWarning("failed to encode local candidate: %v", err)
			return
		}
		// Best effort: a lost candidate only narrows the path search.
		if err := n.cfg.Mailbox.SendSignal(n.cfg.Remote, protocol.Signal{Type: protocol.SignalCandidate, Candidate: string(data)}); err != nil {
			util.LogWarning("failed to send candidate: %v", err)
		}
	})

	n.mu.Lock()
	n.peer = peer
	n.mu.Unlock()
	close(n.created)
	return peer, nil
}

func (n *Negotiator) currentPeer() Peer {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.peer
}

// fail abandons the attempt: the error is logged, the peer closed, and
// Wait released. It returns the wrapped error.
func (n *Negotiator) fail(cause error) error {
	n.failOnce.Do(func() {
		n.err = fmt.Errorf("%w: %v", ErrAbandoned, cause)
		util.LogError("negotiation with %s failed: %v", n.cfg.Remote, cause)
		if peer := n.currentPeer(); peer != nil {
			peer.Close()
		}
		close(n.abandoned)
	})
	return n.err
}

func (n *Negotiator) isAbandoned() bool {
	select {
	case <-n.abandoned:
		return true
	default:
		return false
	}
}
