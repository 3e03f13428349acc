package providers

import (
	"context"

	"github.com/dkeye/Conclave/internal/domain"
	"github.com/dkeye/Conclave/internal/syncobj"
)

// ChatHistory reads persisted room chat.
type ChatHistory interface {
	Recent(ctx context.Context, conf domain.ConferenceID, room domain.RoomID, limit int) ([]domain.ChatMessage, error)
}

// Chat publishes one channel per room. A participant sees only the channel
// of the room it is currently in.
type Chat struct {
	requiredParam
	conferences ConferenceLookup
	history     ChatHistory
	limit       int
}

func (*Chat) Key() string { return KeyChat }

func (c *Chat) AvailableObjects(_ context.Context, conf syncobj.ConferenceID, participant syncobj.ParticipantID) ([]syncobj.ObjectID, error) {
	cf, ok := c.conferences.Get(domain.ConferenceID(conf))
	if !ok {
		return nil, nil
	}
	room, ok := cf.RoomOf(domain.ParticipantID(participant))
	if !ok {
		return nil, nil
	}
	return []syncobj.ObjectID{ChatID(room)}, nil
}

func (c *Chat) FetchValue(ctx context.Context, conf syncobj.ConferenceID, id syncobj.ObjectID) (syncobj.Value, error) {
	msgs, err := c.history.Recent(ctx, domain.ConferenceID(conf), domain.RoomID(id.Param), c.limit)
	if err != nil {
		return nil, err
	}
	return ChatValue{Room: domain.RoomID(id.Param), Messages: msgs}, nil
}

type ChatValue struct {
	Room     domain.RoomID        `json:"room"`
	Messages []domain.ChatMessage `json:"messages"`
}
