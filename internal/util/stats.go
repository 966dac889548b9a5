// Package util provides logging and process-wide counters shared by the
// relay and the player client.
package util

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pterm/pterm"
)

// ──────────────────────────────────────────────────────────────────────────────
// Global stats singleton
// ──────────────────────────────────────────────────────────────────────────────

// Stats is the process-wide traffic counter.
var Stats = &stats{}

type stats struct {
	SnapshotsSent    atomic.Int64 // position snapshots written to the DataChannel
	SnapshotsRecv    atomic.Int64 // position snapshots decoded from the DataChannel
	SnapshotsDropped atomic.Int64 // snapshots discarded (channel closed or congested)
	SignalsRelayed   atomic.Int64 // signal envelopes forwarded by the relay
	BytesSent        atomic.Int64 // cumulative bytes written to the DataChannel
	BytesRecv        atomic.Int64 // cumulative bytes read from the DataChannel
}

func (s *stats) AddSent(n int) {
	s.SnapshotsSent.Add(1)
	s.BytesSent.Add(int64(n))
}

func (s *stats) AddRecv(n int) {
	s.SnapshotsRecv.Add(1)
	s.BytesRecv.Add(int64(n))
}

func (s *stats) AddDropped() { s.SnapshotsDropped.Add(1) }
func (s *stats) AddRelayed() { s.SignalsRelayed.Add(1) }

// ──────────────────────────────────────────────────────────────────────────────
// Periodic reporter
// ──────────────────────────────────────────────────────────────────────────────

// StartStatsReporter launches a goroutine that logs traffic statistics
// every interval. It stops when ctx is cancelled. Nothing is logged for
// an idle interval.
func StartStatsReporter(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var prevSent, prevRecv, prevDropped, prevRelayed int64
		for {
			select {
			case <-ticker.C:
				sent := Stats.SnapshotsSent.Load()
				recv := Stats.SnapshotsRecv.Load()
				dropped := Stats.SnapshotsDropped.Load()
				relayed := Stats.SignalsRelayed.Load()

				secs := interval.Seconds()
				outS := float64(sent-prevSent) / secs
				inS := float64(recv-prevRecv) / secs
				dropC := dropped - prevDropped
				relC := relayed - prevRelayed

				if outS > 0 || inS > 0 || dropC > 0 || relC > 0 {
					pterm.DefaultLogger.Info(formatStats(outS, inS, dropC, relC))
				}

				prevSent = sent
				prevRecv = recv
				prevDropped = dropped
				prevRelayed = relayed

			case <-ctx.Done():
				return
			}
		}
	}()
}

// byteUnits defines the units for formatting byte counts in a human-readable way.
var byteUnits = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB"}

// FormatBytes formats a byte count into a human-readable string with fixed
// width (exactly 8 chars), e.g. "99.0   B", " 1.5 KiB", "98.9 GiB".
func FormatBytes(b float64) string {
	unitIdx := 0

	// to prevent "100.0 KiB", which is 9 chars
	for b > 99 && unitIdx < 5 {
		b /= 1024
		unitIdx++
	}

	return fmt.Sprintf("%4.1f %3s", b, byteUnits[unitIdx])
}

// formatStats returns a formatted line of the interval's stats.
func formatStats(outS, inS float64, dropped, relayed int64) string {
	return fmt.Sprintf("Snapshots out: %5.1f/s | in: %5.1f/s | dropped: %3d | signals: %3d | total %s↑ %s↓",
		outS,
		inS,
		dropped,
		relayed,
		FormatBytes(float64(Stats.BytesSent.Load())),
		FormatBytes(float64(Stats.BytesRecv.Load())),
	)
}
