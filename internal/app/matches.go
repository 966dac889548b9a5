package app

import (
	"context"
	"errors"

	"github.com/1ureka/lightcycles/internal/config"
	"github.com/1ureka/lightcycles/internal/signaling"
	"github.com/1ureka/lightcycles/internal/util"
)

// NextMatch is asked after every match. last is the error that ended the
// previous attempt, if it was one the player can recover from. It returns
// the room to join next, or false to stop.
type NextMatch func(ctx context.Context, room string, last error) (next string, ok bool)

// PlayMatches runs Play repeatedly, returning to the lobby after each game
// the way a page reload would. A full room, an opponent who left early or a
// failed negotiation sends the player back to choose again; any other error
// ends the loop. A nil next plays a single match.
func PlayMatches(ctx context.Context, cfg *config.Config, opts PlayOptions, next NextMatch) error {
	c := *cfg
	for {
		outcome, err := Play(ctx, &c, opts)
		switch {
		case ctx.Err() != nil:
			return nil
		case recoverable(err) && next != nil:
			util.LogWarning("%v", err)
		case err != nil:
			return err
		case outcome.Message != "":
			util.LogInfo("Game over: %s", outcome.Message)
		}

		if next == nil {
			return err
		}
		room, ok := next(ctx, c.Player.Room, err)
		if !ok || ctx.Err() != nil {
			return nil
		}
		c.Player.Room = room
		util.LogInfo("Back to the lobby")
	}
}

func recoverable(err error) bool {
	return errors.Is(err, ErrRoomFull) ||
		errors.Is(err, ErrOpponentLeft) ||
		errors.Is(err, signaling.ErrAbandoned)
}
