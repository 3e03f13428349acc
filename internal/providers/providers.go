// Package providers implements the synchronized objects of a conference:
// participant list, room layout, room chat, whiteboards, media streams, polls
// and per-participant permissions.
package providers

import (
	"errors"
	"fmt"

	"github.com/dkeye/Conclave/internal/app"
	"github.com/dkeye/Conclave/internal/domain"
	"github.com/dkeye/Conclave/internal/syncobj"
)

const (
	KeyParticipants = "participants"
	KeyRooms        = "rooms"
	KeyChat         = "chat"
	KeyMediaStreams = "mediaStreams"
	KeyPoll         = "poll"
	KeyPollResults  = "pollResults"
	KeyPermissions  = "permissions"
	KeyWhiteboard   = "whiteboard"
)

var (
	ErrConferenceNotFound = errors.New("conference not found")
	errParamRequired      = errors.New("parameter required")
	errParamForbidden     = errors.New("parameter not allowed")
)

// ConferenceLookup resolves open conferences.
type ConferenceLookup interface {
	Get(id domain.ConferenceID) (*app.Conference, bool)
}

// All returns every provider in the order their objects are announced to a
// joining client.
func All(conferences ConferenceLookup, chat ChatHistory, chatLimit int) []syncobj.Provider {
	return []syncobj.Provider{
		&Participants{conferences: conferences},
		&Permissions{conferences: conferences},
		&Rooms{conferences: conferences},
		&MediaStreams{conferences: conferences},
		&Chat{conferences: conferences, history: chat, limit: chatLimit},
		&Whiteboards{conferences: conferences},
		&Polls{conferences: conferences},
		&PollResults{conferences: conferences},
	}
}

func lookup(conferences ConferenceLookup, id syncobj.ConferenceID) (*app.Conference, error) {
	c, ok := conferences.Get(domain.ConferenceID(id))
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrConferenceNotFound, id)
	}
	return c, nil
}

// noParam is embedded by providers whose single object has no parameter.
type noParam struct{}

func (noParam) ValidateParam(param string) error {
	if param != "" {
		return errParamForbidden
	}
	return nil
}

type requiredParam struct{}

func (requiredParam) ValidateParam(param string) error {
	if param == "" {
		return errParamRequired
	}
	return nil
}

// ParticipantsID and friends build object ids for callers that trigger
// updates.
func ParticipantsID() syncobj.ObjectID { return syncobj.NewObjectID(KeyParticipants) }
func RoomsID() syncobj.ObjectID        { return syncobj.NewObjectID(KeyRooms) }
func MediaStreamsID() syncobj.ObjectID { return syncobj.NewObjectID(KeyMediaStreams) }

func ChatID(room domain.RoomID) syncobj.ObjectID {
	return syncobj.WithParam(KeyChat, string(room))
}

func PollID(id domain.PollID) syncobj.ObjectID {
	return syncobj.WithParam(KeyPoll, string(id))
}

func PollResultsID(id domain.PollID) syncobj.ObjectID {
	return syncobj.WithParam(KeyPollResults, string(id))
}

func PermissionsID(p domain.ParticipantID) syncobj.ObjectID {
	return syncobj.WithParam(KeyPermissions, string(p))
}

func WhiteboardID(room domain.RoomID, id domain.WhiteboardID) syncobj.ObjectID {
	return syncobj.WithParam(KeyWhiteboard, string(room)+whiteboardSep+string(id))
}
