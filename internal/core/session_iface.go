package core

import "github.com/dkeye/Conclave/internal/domain"

// ConnectionID identifies one transport connection. A participant may hold
// several connections to the same conference.
type ConnectionID string

// MemberSession binds a participant's identity and its transport endpoints.
// This is what notification delivery fans out to.
type MemberSession interface {
	Conference() domain.ConferenceID
	Participant() domain.ParticipantID
	Signal() SignalConnection
	Media() MediaConnection
	UpdateSignal(SignalConnection) MemberSession
	UpdateMedia(MediaConnection) MemberSession
}
