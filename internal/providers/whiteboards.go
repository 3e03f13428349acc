package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dkeye/Conclave/internal/domain"
	"github.com/dkeye/Conclave/internal/syncobj"
)

const whiteboardSep = "/"

var errWhiteboardParam = errors.New("parameter must be <room>/<whiteboard>")

// Whiteboards publishes each whiteboard to the participants currently in
// its room. The parameter is "<room>/<whiteboard>".
type Whiteboards struct {
	conferences ConferenceLookup
}

func (*Whiteboards) Key() string { return KeyWhiteboard }

func (*Whiteboards) ValidateParam(param string) error {
	_, _, err := splitWhiteboardParam(param)
	return err
}

func splitWhiteboardParam(param string) (domain.RoomID, domain.WhiteboardID, error) {
	room, id, ok := strings.Cut(param, whiteboardSep)
	if !ok || room == "" || id == "" || strings.Contains(id, whiteboardSep) {
		return "", "", errWhiteboardParam
	}
	return domain.RoomID(room), domain.WhiteboardID(id), nil
}

func (w *Whiteboards) AvailableObjects(_ context.Context, conf syncobj.ConferenceID, participant syncobj.ParticipantID) ([]syncobj.ObjectID, error) {
	c, ok := w.conferences.Get(domain.ConferenceID(conf))
	if !ok {
		return nil, nil
	}
	room, ok := c.RoomOf(domain.ParticipantID(participant))
	if !ok {
		return nil, nil
	}
	boards := c.WhiteboardsOf(room)
	out := make([]syncobj.ObjectID, 0, len(boards))
	for _, id := range boards {
		out = append(out, WhiteboardID(room, id))
	}
	return out, nil
}

func (w *Whiteboards) FetchValue(_ context.Context, conf syncobj.ConferenceID, id syncobj.ObjectID) (syncobj.Value, error) {
	c, err := lookup(w.conferences, conf)
	if err != nil {
		return nil, err
	}
	room, board, err := splitWhiteboardParam(id.Param)
	if err != nil {
		return nil, err
	}
	wb, ok := c.Whiteboard(room, board)
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, domain.ErrWhiteboardNotFound)
	}
	return wb, nil
}
