package providers

import (
	"context"

	"github.com/dkeye/Conclave/internal/domain"
	"github.com/dkeye/Conclave/internal/syncobj"
)

// Rooms publishes the room layout: the rooms of a conference and who is in
// which room.
type Rooms struct {
	noParam
	conferences ConferenceLookup
}

func (*Rooms) Key() string { return KeyRooms }

func (r *Rooms) AvailableObjects(_ context.Context, conf syncobj.ConferenceID, participant syncobj.ParticipantID) ([]syncobj.ObjectID, error) {
	if !isMember(r.conferences, conf, participant) {
		return nil, nil
	}
	return []syncobj.ObjectID{RoomsID()}, nil
}

func (r *Rooms) FetchValue(_ context.Context, conf syncobj.ConferenceID, _ syncobj.ObjectID) (syncobj.Value, error) {
	c, err := lookup(r.conferences, conf)
	if err != nil {
		return nil, err
	}
	v := RoomsValue{
		Rooms:       c.Rooms(),
		Assignments: make(map[domain.ParticipantID]domain.RoomID),
	}
	for _, p := range c.Participants() {
		v.Assignments[p.ID] = p.Room
	}
	return v, nil
}

type RoomsValue struct {
	Rooms       []domain.Room                          `json:"rooms"`
	Assignments map[domain.ParticipantID]domain.RoomID `json:"assignments"`
}
