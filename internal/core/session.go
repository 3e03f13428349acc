package core

import (
	"sync"

	"github.com/dkeye/Conclave/internal/domain"
)

// memberSession implements MemberSession. Transport endpoints may be swapped
// while the session is shared, so they sit behind a lock.
type memberSession struct {
	conference  domain.ConferenceID
	participant domain.ParticipantID

	mu     sync.RWMutex
	signal SignalConnection
	media  MediaConnection
}

func NewMemberSession(conf domain.ConferenceID, participant domain.ParticipantID) MemberSession {
	return &memberSession{conference: conf, participant: participant}
}

func (m *memberSession) Conference() domain.ConferenceID   { return m.conference }
func (m *memberSession) Participant() domain.ParticipantID { return m.participant }

func (m *memberSession) Signal() SignalConnection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.signal
}

func (m *memberSession) Media() MediaConnection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.media
}

func (m *memberSession) UpdateSignal(s SignalConnection) MemberSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signal = s
	return m
}

func (m *memberSession) UpdateMedia(mc MediaConnection) MemberSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.media = mc
	return m
}
