package game

import (
	"context"
	"time"

	"github.com/1ureka/lightcycles/internal/protocol"
)

// RunOptions wires a Session to its frame source and inbound traffic.
type RunOptions struct {
	FrameInterval time.Duration            // display frame period
	Controls      Controls                 // sampled once per frame
	Snapshots     <-chan protocol.Position // opponent snapshots, in order
	Abort         <-chan string            // ends the game with the received message
}

// Run drives the session on the calling goroutine, one Step per frame,
// until the game ends or ctx is cancelled. Snapshots and aborts are
// consumed between frames so the Session never sees concurrent access.
func (s *Session) Run(ctx context.Context, opts RunOptions) (Outcome, error) {
	interval := opts.FrameInterval
	if interval <= 0 {
		interval = time.Second / 60
	}
	if err := s.tuning.CheckFrameInterval(interval); err != nil {
		return Outcome{}, err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	snapshots := opts.Snapshots

	for {
		select {
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now

			var in InputFlags
			if opts.Controls != nil {
				in = opts.Controls.Flags()
			}
			if !s.Step(now, dt, in) {
				return s.outcome, nil
			}

		case p, ok := <-snapshots:
			if !ok {
				snapshots = nil
				continue
			}
			s.ApplySnapshot(p)

		case msg := <-opts.Abort:
			s.End(ReasonOpponentLeft, msg)
			return s.outcome, nil

		case <-ctx.Done():
			s.End(ReasonAborted, "")
			return s.outcome, ctx.Err()
		}
	}
}
