// Lightcycles: CLI entry point.
//
// A two-player light-cycle arena. The relay subcommand runs the WebSocket
// lobby and signaling relay; the play subcommand joins a room, opens a
// direct WebRTC link to the opponent and runs the game in the terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/1ureka/lightcycles/internal/app"
	"github.com/1ureka/lightcycles/internal/config"
	"github.com/1ureka/lightcycles/internal/util"
)

var version = "dev"

var (
	flagConfig   string
	flagDebug    bool
	flagListen   string
	flagURL      string
	flagRoom     string
	flagName     string
	flagReady    bool
	flagLoopback bool
	flagOnce     bool
)

var rootCmd = &cobra.Command{
	Use:           "lightcycles",
	Short:         "Two-player light-cycle arena over WebRTC",
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if flagDebug {
			util.EnableDebug()
		}
	},
}

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run the lobby and signaling relay",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(config.RoleRelay, options(cmd))
		if err != nil {
			return err
		}
		if cfg.Debug {
			util.EnableDebug()
		}

		pterm.Info.Println(fmt.Sprintf("Lightcycles relay v%s", version))
		return app.RunRelay(cmd.Context(), cfg)
	},
}

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Join a room and play",
	Long: `Join a room on a relay and play once both players are ready. After a
match the player is returned to the lobby; --once exits instead.

Examples:
  lightcycles play --url ws://localhost:8080/ws --room arena --name ada
  lightcycles play --url relay.example.com --room arena --name bob --ready`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := options(cmd)
		opts.Ask = ask

		cfg, err := config.Load(config.RolePlay, opts)
		if err != nil {
			return err
		}
		if cfg.Debug {
			util.EnableDebug()
		}

		pterm.Info.Println(fmt.Sprintf("Lightcycles v%s", version))
		pterm.Println()

		var next app.NextMatch
		if !flagOnce {
			next = playAgain
		}
		return app.PlayMatches(cmd.Context(), cfg, app.PlayOptions{
			Frontend:     app.TerminalFrontend(cfg.Player.InputHold),
			ConfirmReady: confirmReady,
		}, next)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML configuration file")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")

	relayCmd.Flags().StringVar(&flagListen, "listen", config.DefaultListen, "Address to serve HTTP and WebSocket on")

	playCmd.Flags().StringVar(&flagURL, "url", config.DefaultURL, "Relay WebSocket URL")
	playCmd.Flags().StringVar(&flagRoom, "room", "", "Room ID to join")
	playCmd.Flags().StringVar(&flagName, "name", "", "Player name shown to the opponent")
	playCmd.Flags().BoolVar(&flagReady, "ready", false, "Send ready without asking")
	playCmd.Flags().BoolVar(&flagOnce, "once", false, "Exit after one match instead of returning to the lobby")
	playCmd.Flags().BoolVar(&flagLoopback, "loopback", false, "Also gather loopback ICE candidates (same-host play)")

	rootCmd.AddCommand(relayCmd, playCmd)
}

func main() {
	// Root context, cancelled on Ctrl+C.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			util.LogInfo("interrupted")
			return
		}
		util.LogError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// Helper Functions
// ---------------------------------------------------------------------------

// options collects only the flags that were set explicitly, so environment
// and file values are not shadowed by flag defaults.
func options(cmd *cobra.Command) config.Options {
	opts := config.Options{ConfigPath: flagConfig}
	flags := cmd.Flags()

	if flags.Changed("listen") {
		opts.Listen = flagListen
	}
	if flags.Changed("url") {
		opts.URL = flagURL
	}
	if flags.Changed("room") {
		opts.Room = flagRoom
	}
	if flags.Changed("name") {
		opts.Name = flagName
	}
	if flags.Changed("ready") {
		opts.Ready = &flagReady
	}
	if flags.Changed("loopback") {
		opts.Loopback = &flagLoopback
	}
	if flags.Changed("debug") {
		opts.Debug = &flagDebug
	}
	return opts
}

// ask prompts until a non-empty value is entered.
func ask(prompt string) string {
	for {
		raw, _ := pterm.DefaultInteractiveTextInput.
			WithDefaultText(prompt).
			Show()

		if v := strings.TrimSpace(raw); v != "" {
			pterm.Println()
			return v
		}

		util.LogWarning("%s must not be empty", strings.ToLower(prompt))
		pterm.Println()
	}
}

// confirmReady asks whether to start. Declining keeps the seat in the room.
func confirmReady(ctx context.Context) bool {
	ok, _ := pterm.DefaultInteractiveConfirm.
		WithDefaultText("Opponent found or waiting. Ready to ride?").
		WithDefaultValue(true).
		Show()
	if ctx.Err() != nil {
		return false
	}
	if !ok {
		util.LogInfo("not ready; waiting in the room (Ctrl+C to leave)")
	}
	return ok
}

// playAgain returns the player to the lobby, offering the last room.
func playAgain(ctx context.Context, room string, _ error) (string, bool) {
	pterm.Println()
	again, _ := pterm.DefaultInteractiveConfirm.
		WithDefaultText("Back to the lobby?").
		WithDefaultValue(true).
		Show()
	if !again || ctx.Err() != nil {
		return "", false
	}

	raw, _ := pterm.DefaultInteractiveTextInput.
		WithDefaultText("Room ID").
		WithDefaultValue(room).
		Show()
	pterm.Println()
	if v := strings.TrimSpace(raw); v != "" {
		return v, true
	}
	return room, true
}
