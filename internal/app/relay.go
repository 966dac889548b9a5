// Package app contains the top-level orchestration for the relay and the
// player client.
package app

import (
	"context"

	"github.com/1ureka/lightcycles/internal/config"
	"github.com/1ureka/lightcycles/internal/relay"
	"github.com/1ureka/lightcycles/internal/util"
)

// RunRelay serves the relay on cfg.Relay.Listen until ctx is cancelled.
func RunRelay(ctx context.Context, cfg *config.Config) error {
	if cfg.Relay.StatsInterval > 0 {
		util.StartStatsReporter(ctx, cfg.Relay.StatsInterval)
	}
	return relay.NewServer().ListenAndServe(ctx, cfg.Relay.Listen)
}
