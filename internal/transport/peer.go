package transport

import (
	"github.com/pion/webrtc/v4"
)

// ChannelLabel names the game data channel.
const ChannelLabel = "gameData"

// DefaultSTUNServers are used when no ICE server list is configured.
var DefaultSTUNServers = []string{
	"stun:stun.l.google.com:19302",
	"stun:stun1.l.google.com:19302",
}

// newPeerConnection creates a PeerConnection for cfg. A nil server list
// means the default STUN servers; an empty one means host candidates only.
// Loopback candidates are only gathered when cfg.Loopback is set, for two
// players on one host.
func newPeerConnection(cfg Config) (*webrtc.PeerConnection, error) {
	servers := cfg.ICEServers
	if servers == nil {
		servers = []webrtc.ICEServer{{URLs: DefaultSTUNServers}}
	}

	var se webrtc.SettingEngine
	if cfg.Loopback {
		se.SetIncludeLoopbackCandidate(true)
	}
	api := webrtc.NewAPI(webrtc.WithSettingEngine(se))

	return api.NewPeerConnection(webrtc.Configuration{ICEServers: servers})
}

// newDataChannel creates the ordered, reliable game channel. Snapshots must
// arrive in send order with no duplicates, so neither ordering nor
// retransmission is relaxed.
func newDataChannel(pc *webrtc.PeerConnection) (*webrtc.DataChannel, error) {
	ordered := true
	return pc.CreateDataChannel(ChannelLabel, &webrtc.DataChannelInit{
		Ordered: &ordered,
	})
}
