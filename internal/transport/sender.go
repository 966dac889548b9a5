package transport

import (
	"context"

	"github.com/pion/webrtc/v4"

	"github.com/1ureka/lightcycles/internal/protocol"
	"github.com/1ureka/lightcycles/internal/util"
)

const (
	highWaterMark  = 64 * 1024 // drop snapshots while bufferedAmount exceeds this
	sendBufferSize = 16        // outgoing snapshot channel capacity
)

// sender is the single writer to the data channel. Snapshots are
// superseded by the next one, so anything that cannot go out immediately
// is dropped rather than queued.
type sender struct {
	inbox chan protocol.Position
}

func newSender() *sender {
	return &sender{inbox: make(chan protocol.Position, sendBufferSize)}
}

// loop waits for the channel to open, then writes snapshots until ctx ends.
func (s *sender) loop(ctx context.Context, open <-chan struct{}, channel func() *webrtc.DataChannel) {
	select {
	case <-open:
	case <-ctx.Done():
		return
	}
	dc := channel()

	for {
		select {
		case p := <-s.inbox:
			if dc.BufferedAmount() > uint64(highWaterMark) {
				util.Stats.AddDropped()
				continue
			}

			data, err := protocol.EncodePosition(p)
			if err != nil {
				util.LogError("failed to encode snapshot: %v", err)
				continue
			}
			if err := dc.Send(data); err != nil {
				util.LogWarning("failed to send snapshot: %v", err)
				util.Stats.AddDropped()
				continue
			}
			util.Stats.AddSent(len(data))

		case <-ctx.Done():
			return
		}
	}
}

// send enqueues p without blocking. It reports false when p was dropped.
func (s *sender) send(p protocol.Position) bool {
	select {
	case s.inbox <- p:
		return true
	default:
		return false
	}
}
