package signal

import (
	"context"

	"github.com/dkeye/Conclave/internal/domain"
)

func (ctl *SignalWSController) handleJoinRoom(ctx context.Context, cl *client, data []byte) {
	var p struct {
		Room        string `json:"room"`
		Participant string `json:"participant,omitempty"`
	}
	if !ctl.decode(cl, "join_room", data, &p) {
		return
	}
	target := cl.participant()
	if p.Participant != "" {
		target = domain.ParticipantID(p.Participant)
	}
	if err := ctl.Orch.MoveRoom(ctx, cl.conference(), cl.participant(), target, domain.RoomID(p.Room)); err != nil {
		ctl.sendError(cl.conn, "join_room", err)
	}
}

func (ctl *SignalWSController) handleCreateRoom(ctx context.Context, cl *client, data []byte) {
	var p struct {
		Name string `json:"name"`
	}
	if !ctl.decode(cl, "create_room", data, &p) {
		return
	}
	id, err := ctl.Orch.CreateRoom(ctx, cl.conference(), cl.participant(), p.Name)
	if err != nil {
		ctl.sendError(cl.conn, "create_room", err)
		return
	}
	ctl.sendJSON(cl.conn, struct {
		Type string        `json:"type"`
		Room domain.RoomID `json:"room"`
	}{Type: "room_created", Room: id})
}

func (ctl *SignalWSController) handleRemoveRoom(ctx context.Context, cl *client, data []byte) {
	var p struct {
		Room string `json:"room"`
	}
	if !ctl.decode(cl, "remove_room", data, &p) {
		return
	}
	if err := ctl.Orch.RemoveRoom(ctx, cl.conference(), cl.participant(), domain.RoomID(p.Room)); err != nil {
		ctl.sendError(cl.conn, "remove_room", err)
	}
}

func (ctl *SignalWSController) handleSetRole(ctx context.Context, cl *client, data []byte) {
	var p struct {
		Participant string `json:"participant"`
		Role        string `json:"role"`
	}
	if !ctl.decode(cl, "set_role", data, &p) {
		return
	}
	role, err := domain.ParseRole(p.Role)
	if err != nil {
		ctl.sendError(cl.conn, "set_role", err)
		return
	}
	if err := ctl.Orch.SetRole(ctx, cl.conference(), cl.participant(), domain.ParticipantID(p.Participant), role); err != nil {
		ctl.sendError(cl.conn, "set_role", err)
	}
}

func (ctl *SignalWSController) handleCloseConference(ctx context.Context, cl *client) {
	if err := ctl.Orch.CloseConferenceAs(ctx, cl.conference(), cl.participant()); err != nil {
		ctl.sendError(cl.conn, "close_conference", err)
	}
}
