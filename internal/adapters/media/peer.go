package media

import (
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

func defaultWebRTCConfig() webrtc.Configuration {
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{URLs: []string{"stun:stun.l.google.com:19302"}},
		},
	}
}

// peer is the offerer half of the media connection. Audio flows over
// it; coordination does not depend on it beyond setup success.
type peer struct {
	pc *webrtc.PeerConnection
}

func newPeer(onICE func(webrtc.ICECandidateInit)) (*peer, error) {
	pc, err := webrtc.NewPeerConnection(defaultWebRTCConfig())
	if err != nil {
		return nil, err
	}
	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c != nil && onICE != nil {
			onICE(c.ToJSON())
		}
	})
	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Info().Str("module", "media").Str("peer_state", s.String()).Msg("peer state")
	})
	if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio); err != nil {
		_ = pc.Close()
		return nil, err
	}
	return &peer{pc: pc}, nil
}

// createOffer produces the local SDP for trickle-ICE signaling.
func (p *peer) createOffer() (*webrtc.SessionDescription, error) {
	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return nil, err
	}
	if err := p.pc.SetLocalDescription(offer); err != nil {
		return nil, err
	}
	return p.pc.LocalDescription(), nil
}

func (p *peer) applyAnswer(sdp string) error {
	return p.pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  sdp,
	})
}

func (p *peer) addICECandidate(ci webrtc.ICECandidateInit) error {
	return p.pc.AddICECandidate(ci)
}

func (p *peer) close() {
	if err := p.pc.Close(); err != nil {
		log.Error().Err(err).Str("module", "media").Msg("peer close error")
	}
}
