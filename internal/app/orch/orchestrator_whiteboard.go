package orch

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Conclave/internal/app"
	"github.com/dkeye/Conclave/internal/domain"
	"github.com/dkeye/Conclave/internal/providers"
)

// CreateWhiteboard adds a whiteboard to room, or to the actor's room when
// room is empty. The room's members gain its object.
func (o *Orchestrator) CreateWhiteboard(ctx context.Context, conf domain.ConferenceID, actor domain.ParticipantID, room domain.RoomID, name string) (domain.WhiteboardID, error) {
	c, err := o.conference(conf)
	if err != nil {
		return "", err
	}
	if err := authorize(c, actor, domain.PermWhiteboardManage); err != nil {
		return "", err
	}
	room = whiteboardRoom(c, actor, room)
	wb, err := domain.NewWhiteboard(room, name)
	if err != nil {
		return "", err
	}
	if err := c.AddWhiteboard(wb); err != nil {
		return "", err
	}
	o.recompute(ctx, conf, c.MembersOfRoom(room)...)
	log.Info().Str("module", "orch").Str("conference", string(conf)).
		Str("room", string(room)).Str("whiteboard", string(wb.ID)).Msg("whiteboard created")
	return wb.ID, nil
}

// UpdateWhiteboard applies a canvas patch. Only participants in the
// whiteboard's room may draw on it; an empty room means the actor's.
func (o *Orchestrator) UpdateWhiteboard(ctx context.Context, conf domain.ConferenceID, actor domain.ParticipantID, room domain.RoomID, id domain.WhiteboardID, patch domain.WhiteboardPatch) error {
	c, err := o.conference(conf)
	if err != nil {
		return err
	}
	if err := authorize(c, actor, domain.PermWhiteboardEdit); err != nil {
		return err
	}
	room = whiteboardRoom(c, actor, room)
	if in, _ := c.RoomOf(actor); in != room {
		return fmt.Errorf("%w: not in room %s", ErrForbidden, room)
	}
	err = c.UpdateWhiteboard(room, id, func(wb *domain.Whiteboard) error {
		return wb.Apply(patch)
	})
	if err != nil {
		return err
	}
	o.push(ctx, conf, providers.WhiteboardID(room, id))
	return nil
}

// DeleteWhiteboard removes a whiteboard and its object from the room's
// members.
func (o *Orchestrator) DeleteWhiteboard(ctx context.Context, conf domain.ConferenceID, actor domain.ParticipantID, room domain.RoomID, id domain.WhiteboardID) error {
	c, err := o.conference(conf)
	if err != nil {
		return err
	}
	if err := authorize(c, actor, domain.PermWhiteboardManage); err != nil {
		return err
	}
	room = whiteboardRoom(c, actor, room)
	if err := c.RemoveWhiteboard(room, id); err != nil {
		return err
	}
	o.recompute(ctx, conf, c.MembersOfRoom(room)...)
	return nil
}

// whiteboardRoom is the room of the actor, used when a client names no room.
func whiteboardRoom(c *app.Conference, actor domain.ParticipantID, room domain.RoomID) domain.RoomID {
	if room != "" {
		return room
	}
	r, _ := c.RoomOf(actor)
	return r
}
