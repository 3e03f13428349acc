package signal

import (
	"context"

	"github.com/dkeye/Conclave/internal/domain"
)

func (ctl *SignalWSController) handleWhiteboardCreate(ctx context.Context, cl *client, data []byte) {
	var p struct {
		Room string `json:"room"`
		Name string `json:"name"`
	}
	if !ctl.decode(cl, "whiteboard_create", data, &p) {
		return
	}
	id, err := ctl.Orch.CreateWhiteboard(ctx, cl.conference(), cl.participant(), domain.RoomID(p.Room), p.Name)
	if err != nil {
		ctl.sendError(cl.conn, "whiteboard_create", err)
		return
	}
	ctl.sendJSON(cl.conn, struct {
		Type       string              `json:"type"`
		Whiteboard domain.WhiteboardID `json:"whiteboard"`
	}{Type: "whiteboard_created", Whiteboard: id})
}

func (ctl *SignalWSController) handleWhiteboardUpdate(ctx context.Context, cl *client, data []byte) {
	var p struct {
		Room       string                 `json:"room"`
		Whiteboard string                 `json:"whiteboard"`
		Patch      domain.WhiteboardPatch `json:"patch"`
	}
	if !ctl.decode(cl, "whiteboard_update", data, &p) {
		return
	}
	err := ctl.Orch.UpdateWhiteboard(ctx, cl.conference(), cl.participant(),
		domain.RoomID(p.Room), domain.WhiteboardID(p.Whiteboard), p.Patch)
	if err != nil {
		ctl.sendError(cl.conn, "whiteboard_update", err)
	}
}

func (ctl *SignalWSController) handleWhiteboardDelete(ctx context.Context, cl *client, data []byte) {
	var p struct {
		Room       string `json:"room"`
		Whiteboard string `json:"whiteboard"`
	}
	if !ctl.decode(cl, "whiteboard_delete", data, &p) {
		return
	}
	err := ctl.Orch.DeleteWhiteboard(ctx, cl.conference(), cl.participant(),
		domain.RoomID(p.Room), domain.WhiteboardID(p.Whiteboard))
	if err != nil {
		ctl.sendError(cl.conn, "whiteboard_delete", err)
	}
}
