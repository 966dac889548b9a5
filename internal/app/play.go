package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/1ureka/lightcycles/internal/config"
	"github.com/1ureka/lightcycles/internal/game"
	"github.com/1ureka/lightcycles/internal/protocol"
	"github.com/1ureka/lightcycles/internal/signaling"
	"github.com/1ureka/lightcycles/internal/transport"
	"github.com/1ureka/lightcycles/internal/util"
)

// ErrOpponentLeft is returned when the opponent leaves before the peer link
// opens.
var ErrOpponentLeft = errors.New("opponent left before the match started")

// snapshotBuffer bounds received snapshots waiting for the frame loop.
const snapshotBuffer = 64

// MatchInfo describes the match a Screen is opened for.
type MatchInfo struct {
	Seat     game.Seat
	Self     string
	Opponent string
}

// Screen is the player-facing side of a match: it draws frames, supplies
// input and reports when the player wants out.
type Screen interface {
	game.Renderer
	game.Controls
	// Quit is closed when the player asks to leave.
	Quit() <-chan struct{}
	Close() error
}

// Frontend opens a Screen once the peer link is up.
type Frontend func(t game.Tuning, info MatchInfo) (Screen, error)

// PlayOptions supplies the interactive parts of Play.
type PlayOptions struct {
	Frontend Frontend
	// ConfirmReady, if set and auto-ready is off, is asked before sending
	// ready. Returning false keeps the player waiting in the room.
	ConfirmReady func(ctx context.Context) bool
}

// Play runs one match: lobby, peer link negotiation, then the game loop.
func Play(ctx context.Context, cfg *config.Config, opts PlayOptions) (game.Outcome, error) {
	if opts.Frontend == nil {
		return game.Outcome{}, errors.New("app: no frontend")
	}
	if cfg.Player.FrameInterval > 0 {
		if err := cfg.Game.CheckFrameInterval(cfg.Player.FrameInterval); err != nil {
			return game.Outcome{}, err
		}
	}

	// ── 1. Lobby ──────────────────────────────────────────────────────
	client, err := signaling.Dial(ctx, cfg.Player.URL)
	if err != nil {
		return game.Outcome{}, err
	}
	defer client.Close()
	util.LogSuccess("Connected to relay %s", cfg.Player.URL)

	confirm := opts.ConfirmReady
	if cfg.Player.AutoReady {
		confirm = nil
	}
	m, err := lobby(ctx, client, cfg.Player.Room, cfg.Player.Name, confirm)
	if err != nil {
		return game.Outcome{}, err
	}
	util.LogSuccess("Match starting against %s (seat %d)", m.remoteTag, int(m.seat)+1)

	// ── 2. Peer link ──────────────────────────────────────────────────
	snapshots := make(chan protocol.Position, snapshotBuffer)
	tr, left, err := connect(ctx, cfg, client, m, snapshots)
	if err != nil {
		return game.Outcome{}, err
	}
	defer tr.Close()
	util.LogSuccess("Peer link open")
	util.LogDebug("PeerConnection state: %s", tr.ConnectionState())

	// ── 3. Game ───────────────────────────────────────────────────────
	screen, err := opts.Frontend(cfg.Game, MatchInfo{Seat: m.seat, Self: cfg.Player.Name, Opponent: m.remoteTag})
	if err != nil {
		return game.Outcome{}, err
	}
	defer screen.Close()

	sess, err := game.NewSession(game.Config{
		Tuning:   cfg.Game,
		Seat:     m.seat,
		Renderer: screen,
		Sender:   tr,
	})
	if err != nil {
		return game.Outcome{}, err
	}

	gCtx, gCancel := context.WithCancel(ctx)
	defer gCancel()

	abort := make(chan string, 1)
	go func() {
		select {
		case <-left:
		case <-tr.Done():
		case <-gCtx.Done():
			return
		}
		abort <- game.MsgOpponentLeft
	}()

	quit := screen.Quit()
	go func() {
		select {
		case <-quit:
			gCancel()
		case <-gCtx.Done():
		}
	}()

	outcome, err := sess.Run(gCtx, game.RunOptions{
		FrameInterval: cfg.Player.FrameInterval,
		Controls:      screen,
		Snapshots:     snapshots,
		Abort:         abort,
	})
	if err != nil {
		if ctx.Err() != nil {
			return outcome, err
		}
		// The player quit.
		return outcome, nil
	}

	// Leave the game-over message up before returning.
	select {
	case <-time.After(cfg.Game.ReturnDelay):
	case <-quit:
	case <-ctx.Done():
	}
	return outcome, nil
}

// connect negotiates the peer link over the relay. The returned channel is
// closed when the relay reports that the opponent left; it stays valid for
// the rest of the match.
func connect(ctx context.Context, cfg *config.Config, client *signaling.Client, m match, snapshots chan<- protocol.Position) (*transport.Transport, <-chan struct{}, error) {
	servers := cfg.ICEServers()
	if servers == nil && cfg.ICE.Loopback {
		servers = []webrtc.ICEServer{}
	}

	neg, err := signaling.NewNegotiator(signaling.NegotiatorConfig{
		Initiator: m.initiator,
		Remote:    m.remote,
		Mailbox:   client,
		NewPeer: func() (signaling.Peer, error) {
			tr, err := transport.New(ctx, transport.Config{
				ICEServers: servers,
				Initiator:  m.initiator,
				Loopback:   cfg.ICE.Loopback,
			})
			if err != nil {
				return nil, err
			}
			tr.OnPosition(func(p protocol.Position) {
				select {
				case snapshots <- p:
				default:
					util.Stats.AddDropped()
				}
			})
			return tr, nil
		},
	})
	if err != nil {
		return nil, nil, err
	}

	left := make(chan struct{})
	go route(client, neg, m.remote, left)

	nCtx, nCancel := context.WithCancel(ctx)
	defer nCancel()
	go func() {
		select {
		case <-left:
		case <-client.Done():
		case <-nCtx.Done():
		}
		nCancel()
	}()

	if m.initiator {
		util.LogInfo("Sending offer to %s...", m.remoteTag)
	} else {
		util.LogInfo("Waiting for offer from %s...", m.remoteTag)
	}
	if err := neg.Start(); err != nil {
		neg.Close()
		return nil, nil, err
	}

	peer, err := neg.Wait(nCtx)
	if err != nil {
		neg.Close()
		select {
		case <-left:
			return nil, nil, ErrOpponentLeft
		default:
		}
		if ctx.Err() == nil && errors.Is(err, context.Canceled) {
			return nil, nil, relayGone(client)
		}
		return nil, nil, err
	}

	tr, ok := peer.(*transport.Transport)
	if !ok {
		peer.Close()
		return nil, nil, fmt.Errorf("unexpected peer type %T", peer)
	}
	return tr, left, nil
}

// route feeds relay events to the negotiator until the connection ends and
// closes left once the opponent leaves the room.
func route(client *signaling.Client, neg *signaling.Negotiator, remote string, left chan<- struct{}) {
	gone := false
	for env := range client.Events() {
		switch env.Event {
		case protocol.EventSignal:
			var d protocol.SignalDelivery
			if err := env.Decode(&d); err != nil {
				util.LogWarning("%v", err)
				continue
			}
			neg.HandleSignal(d.From, d.Signal)

		case protocol.EventPlayerLeft:
			var pl protocol.PlayerLeft
			if err := env.Decode(&pl); err != nil {
				util.LogWarning("%v", err)
				continue
			}
			if pl.PlayerID == remote && !gone {
				gone = true
				util.LogWarning("Opponent left the room")
				close(left)
			}

		default:
			util.LogDebug("match: ignoring %s", env.Event)
		}
	}
}
