package signaling

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1ureka/lightcycles/internal/protocol"
	"github.com/1ureka/lightcycles/internal/relay"
)

func startRelay(t *testing.T) string {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	srv := relay.NewServer()
	go srv.Hub().Run(ctx)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		cancel()
		ts.Close()
	})
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	c, err := Dial(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func next(t *testing.T, c *Client, event string) protocol.Envelope {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case env, ok := <-c.Events():
			require.True(t, ok, "relay closed while waiting for %s", event)
			if env.Event == event {
				return env
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", event)
		}
	}
}

func TestClientLobbyAndSignal(t *testing.T) {
	url := startRelay(t)
	a := dial(t, url)
	b := dial(t, url)
	require.NotEmpty(t, a.ID())

	require.NoError(t, a.JoinRoom("grid", "flynn"))
	next(t, a, protocol.EventPlayerJoined)
	require.NoError(t, b.JoinRoom("grid", "tron"))
	next(t, a, protocol.EventPlayerJoined)

	require.NoError(t, a.Ready())
	require.NoError(t, b.Ready())
	env := next(t, b, protocol.EventGameStart)
	var start protocol.GameStart
	require.NoError(t, env.Decode(&start))
	assert.Equal(t, min(a.ID(), b.ID()), start.Initiator)

	require.NoError(t, a.SendSignal(b.ID(), protocol.Signal{Type: protocol.SignalOffer, SDP: "v=0"}))
	env = next(t, b, protocol.EventSignal)
	var got protocol.SignalDelivery
	require.NoError(t, env.Decode(&got))
	assert.Equal(t, a.ID(), got.From)

	sig, err := protocol.ParseSignal(got.Signal)
	require.NoError(t, err)
	assert.Equal(t, "v=0", sig.SDP)
}

func TestClientWritesFailAfterClose(t *testing.T) {
	url := startRelay(t)
	c := dial(t, url)
	require.NoError(t, c.Close())

	select {
	case <-c.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("read loop did not stop")
	}
	assert.ErrorIs(t, c.Ready(), ErrRelayClosed)
	assert.NoError(t, c.Err())
}
