package providers

import (
	"context"

	"github.com/dkeye/Conclave/internal/app"
	"github.com/dkeye/Conclave/internal/domain"
	"github.com/dkeye/Conclave/internal/syncobj"
)

// Participants publishes the participant list to everyone in the conference.
type Participants struct {
	noParam
	conferences ConferenceLookup
}

func (*Participants) Key() string { return KeyParticipants }

func (p *Participants) AvailableObjects(_ context.Context, conf syncobj.ConferenceID, participant syncobj.ParticipantID) ([]syncobj.ObjectID, error) {
	if !isMember(p.conferences, conf, participant) {
		return nil, nil
	}
	return []syncobj.ObjectID{ParticipantsID()}, nil
}

func (p *Participants) FetchValue(_ context.Context, conf syncobj.ConferenceID, _ syncobj.ObjectID) (syncobj.Value, error) {
	c, err := lookup(p.conferences, conf)
	if err != nil {
		return nil, err
	}
	return ParticipantsValue{Participants: c.Participants()}, nil
}

type ParticipantsValue struct {
	Participants []app.ParticipantView `json:"participants"`
}

func isMember(conferences ConferenceLookup, conf syncobj.ConferenceID, participant syncobj.ParticipantID) bool {
	c, ok := conferences.Get(domain.ConferenceID(conf))
	if !ok {
		return false
	}
	_, ok = c.Participant(domain.ParticipantID(participant))
	return ok
}
