package syncobj

import (
	"context"
	"fmt"
)

// Signal is an inbound message consumed by Engine.Handle.
type Signal interface {
	signal()
}

// ParticipantJoined is sent when a participant's first connection to a
// conference is established.
type ParticipantJoined struct {
	ConferenceID  ConferenceID
	ParticipantID ParticipantID
}

// ParticipantLeftSignal is sent only when the participant's last connection
// ended; ConnectionID is the connection that closed.
type ParticipantLeftSignal struct {
	ConferenceID  ConferenceID
	ParticipantID ParticipantID
	ConnectionID  string
}

type RecomputeSubscriptionsRequest struct {
	ConferenceID  ConferenceID
	ParticipantID ParticipantID
}

type UpdateObjectRequest struct {
	ConferenceID ConferenceID
	ObjectID     ObjectID
}

type ConferenceClosed struct {
	ConferenceID ConferenceID
}

func (ParticipantJoined) signal()             {}
func (ParticipantLeftSignal) signal()         {}
func (RecomputeSubscriptionsRequest) signal() {}
func (UpdateObjectRequest) signal()           {}
func (ConferenceClosed) signal()              {}

// Handle routes a signal to the matching engine operation.
func (e *Engine) Handle(ctx context.Context, s Signal) error {
	switch s := s.(type) {
	case ParticipantJoined:
		return e.RecomputeSubscriptions(ctx, s.ConferenceID, s.ParticipantID)
	case RecomputeSubscriptionsRequest:
		return e.RecomputeSubscriptions(ctx, s.ConferenceID, s.ParticipantID)
	case ParticipantLeftSignal:
		e.ParticipantLeft(s.ConferenceID, s.ParticipantID)
		return nil
	case UpdateObjectRequest:
		return e.PushUpdate(ctx, s.ConferenceID, s.ObjectID)
	case ConferenceClosed:
		e.CloseConference(s.ConferenceID)
		return nil
	default:
		return fmt.Errorf("syncobj: unhandled signal %T", s)
	}
}
