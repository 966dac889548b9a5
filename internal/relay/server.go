package relay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/1ureka/lightcycles/internal/util"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 4 * 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server exposes a Hub over HTTP: /ws for players, /health for liveness and
// /metrics for Prometheus.
type Server struct {
	hub *Hub
	reg *prometheus.Registry
}

// NewServer builds a Server with a fresh in-memory room store and its own
// metrics registry.
func NewServer() *Server {
	reg := prometheus.NewRegistry()
	return &Server{
		hub: NewHub(NewMemoryStore(), NewMetrics(reg)),
		reg: reg,
	}
}

// Handler returns the HTTP routes. The hub must be running (see Run) for
// /ws connections to make progress.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/health", handleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))
	return mux
}

// Hub returns the server's hub.
func (s *Server) Hub() *Hub { return s.hub }

// ListenAndServe runs the hub and serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	go s.hub.Run(ctx)

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()
	util.LogSuccess("relay listening on %s", listener.Addr())

	select {
	case err := <-errCh:
		return fmt.Errorf("relay server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("relay shutdown: %w", err)
		}
		<-s.hub.Done()
		return nil
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		util.LogWarning("failed to upgrade connection from %s: %v", r.RemoteAddr, err)
		return
	}

	c := newClient(s.hub, conn)
	if !s.hub.join(c) {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "relay shutting down"))
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
