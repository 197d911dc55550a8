package core

import "github.com/ThatGuyChandan/livekit-warm-transfer/internal/domain"

// memberSession implements MemberSession by pairing meta + transports.
type memberSession struct {
	meta   *domain.Participant
	signal SignalConnection
	media  MediaConnection
}

func NewMemberSession(meta *domain.Participant, signal SignalConnection) MemberSession {
	return &memberSession{meta: meta, signal: signal}
}

func (m *memberSession) Meta() *domain.Participant { return m.meta }
func (m *memberSession) Signal() SignalConnection  { return m.signal }
func (m *memberSession) Media() MediaConnection    { return m.media }

func (m *memberSession) UpdateMedia(mc MediaConnection) MemberSession {
	m.media = mc
	return m
}
