package providers

import (
	"context"

	"github.com/dkeye/Conclave/internal/app"
	"github.com/dkeye/Conclave/internal/domain"
	"github.com/dkeye/Conclave/internal/syncobj"
)

// MediaStreams publishes which participants currently produce audio or
// video, as reported by the SFU.
type MediaStreams struct {
	noParam
	conferences ConferenceLookup
}

func (*MediaStreams) Key() string { return KeyMediaStreams }

func (m *MediaStreams) AvailableObjects(_ context.Context, conf syncobj.ConferenceID, participant syncobj.ParticipantID) ([]syncobj.ObjectID, error) {
	if !isMember(m.conferences, conf, participant) {
		return nil, nil
	}
	return []syncobj.ObjectID{MediaStreamsID()}, nil
}

func (m *MediaStreams) FetchValue(_ context.Context, conf syncobj.ConferenceID, _ syncobj.ObjectID) (syncobj.Value, error) {
	c, err := lookup(m.conferences, conf)
	if err != nil {
		return nil, err
	}
	return MediaStreamsValue{Streams: c.Streams()}, nil
}

type MediaStreamsValue struct {
	Streams map[domain.ParticipantID]app.StreamState `json:"streams"`
}
