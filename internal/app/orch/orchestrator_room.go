package orch

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Conclave/internal/domain"
)

// MoveRoom moves target into room to. Participants move themselves freely;
// moving someone else requires the rooms.manage permission.
func (o *Orchestrator) MoveRoom(ctx context.Context, conf domain.ConferenceID, actor, target domain.ParticipantID, to domain.RoomID) error {
	c, err := o.conference(conf)
	if err != nil {
		return err
	}
	if actor != target {
		if err := authorize(c, actor, domain.PermRoomsManage); err != nil {
			return err
		}
	}
	from, err := c.MoveParticipant(target, to)
	if err != nil {
		return err
	}
	if from == to {
		return nil
	}
	o.detach(conf, target, c.MembersOfRoom(from))
	o.attach(conf, target, c.MembersOfRoom(to))

	o.recompute(ctx, conf, target)
	o.push(ctx, conf, roomsID, participantsID)
	log.Info().Str("module", "orch").Str("conference", string(conf)).
		Str("participant", string(target)).Str("from", string(from)).Str("to", string(to)).
		Msg("moved")
	return nil
}

func (o *Orchestrator) CreateRoom(ctx context.Context, conf domain.ConferenceID, actor domain.ParticipantID, name string) (domain.RoomID, error) {
	c, err := o.conference(conf)
	if err != nil {
		return "", err
	}
	if err := authorize(c, actor, domain.PermRoomsManage); err != nil {
		return "", err
	}
	room, err := domain.NewRoom(domain.RoomID(uuid.NewString()), name)
	if err != nil {
		return "", err
	}
	if err := c.CreateRoom(room); err != nil {
		return "", err
	}
	o.push(ctx, conf, roomsID)
	return room.ID, nil
}

// RemoveRoom deletes a room; its members return to the default room.
func (o *Orchestrator) RemoveRoom(ctx context.Context, conf domain.ConferenceID, actor domain.ParticipantID, id domain.RoomID) error {
	c, err := o.conference(conf)
	if err != nil {
		return err
	}
	if err := authorize(c, actor, domain.PermRoomsManage); err != nil {
		return err
	}
	moved, err := c.RemoveRoom(id)
	if err != nil {
		return err
	}
	// Moved members stay linked to each other and join the default room's
	// media.
	lobby := c.MembersOfRoom(domain.DefaultRoomID)
	for _, p := range moved {
		o.attach(conf, p, lobby)
	}
	o.recompute(ctx, conf, moved...)
	o.push(ctx, conf, roomsID, participantsID)
	return nil
}
