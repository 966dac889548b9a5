package app

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/1ureka/lightcycles/internal/game"
	"github.com/1ureka/lightcycles/internal/protocol"
	"github.com/1ureka/lightcycles/internal/signaling"
	"github.com/1ureka/lightcycles/internal/util"
)

// ErrRoomFull is returned when the requested room already seats two players.
var ErrRoomFull = errors.New("room is full")

// match is what the lobby hands to the peer-link phase.
type match struct {
	self      string
	remote    string
	remoteTag string
	seat      game.Seat
	initiator bool
}

// lobby joins the room and waits for game-start. Readiness is sent right
// after the join succeeds, either at once or when confirm returns true.
func lobby(ctx context.Context, client *signaling.Client, room, name string, confirm func(context.Context) bool) (match, error) {
	if err := client.JoinRoom(room, name); err != nil {
		return match{}, err
	}
	util.LogInfo("joining room %q as %q", room, name)

	joined := false
	for {
		select {
		case env, ok := <-client.Events():
			if !ok {
				return match{}, relayGone(client)
			}

			switch env.Event {
			case protocol.EventRoomFull:
				return match{}, fmt.Errorf("%w: %s", ErrRoomFull, room)

			case protocol.EventPlayerJoined:
				var pj protocol.PlayerJoined
				if err := env.Decode(&pj); err != nil {
					util.LogWarning("%v", err)
					continue
				}
				util.LogInfo("%s joined [%d/2]", pj.PlayerName, len(pj.Players))
				if !joined && pj.PlayerID == client.ID() {
					joined = true
					requestReady(ctx, client, confirm)
				}

			case protocol.EventReadyUpdate:
				var ru protocol.ReadyUpdate
				if err := env.Decode(&ru); err == nil {
					util.LogInfo("%s is ready", playerName(ru.Players, ru.PlayerID))
				}

			case protocol.EventPlayerLeft:
				var pl protocol.PlayerLeft
				if err := env.Decode(&pl); err == nil {
					util.LogInfo("player %s left the room", pl.PlayerID)
				}

			case protocol.EventGameStart:
				var gs protocol.GameStart
				if err := env.Decode(&gs); err != nil {
					return match{}, err
				}
				return newMatch(client.ID(), gs)

			default:
				util.LogDebug("lobby: ignoring %s", env.Event)
			}

		case <-ctx.Done():
			return match{}, ctx.Err()
		}
	}
}

func requestReady(ctx context.Context, client *signaling.Client, confirm func(context.Context) bool) {
	if confirm == nil {
		if err := client.Ready(); err != nil {
			util.LogWarning("failed to send ready: %v", err)
		}
		return
	}
	go func() {
		if !confirm(ctx) {
			return
		}
		if err := client.Ready(); err != nil {
			util.LogWarning("failed to send ready: %v", err)
		}
	}()
}

// newMatch derives seat and role from the start roster. Join order decides
// the seat; the relay names the initiator.
func newMatch(self string, gs protocol.GameStart) (match, error) {
	if len(gs.Players) != 2 {
		return match{}, fmt.Errorf("game-start with %d players", len(gs.Players))
	}
	i := slices.IndexFunc(gs.Players, func(p protocol.Player) bool { return p.ID == self })
	if i < 0 {
		return match{}, errors.New("game-start roster does not include this player")
	}
	other := gs.Players[1-i]
	return match{
		self:      self,
		remote:    other.ID,
		remoteTag: other.Name,
		seat:      game.Seat(i),
		initiator: gs.Initiator == self,
	}, nil
}

func playerName(players []protocol.Player, id string) string {
	for _, p := range players {
		if p.ID == id {
			return p.Name
		}
	}
	return id
}

func relayGone(client *signaling.Client) error {
	if err := client.Err(); err != nil {
		return fmt.Errorf("%w: %v", signaling.ErrRelayClosed, err)
	}
	return signaling.ErrRelayClosed
}
