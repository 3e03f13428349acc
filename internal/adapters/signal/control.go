package signal

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Conclave/internal/app"
	"github.com/dkeye/Conclave/internal/domain"
)

func (ctl *SignalWSController) handlePing(cl *client) {
	ctl.sendJSON(cl.conn, struct {
		Type string `json:"type"`
	}{Type: "pong"})
}

func (ctl *SignalWSController) handleWhoAmI(cl *client) {
	view, err := ctl.Orch.WhoAmI(cl.conference(), cl.participant())
	if err != nil {
		ctl.sendError(cl.conn, "whoami", err)
		return
	}
	ctl.sendJSON(cl.conn, struct {
		Type        string              `json:"type"`
		Conference  domain.ConferenceID `json:"conference"`
		Connection  string              `json:"connection"`
		Participant app.ParticipantView `json:"participant"`
	}{
		Type:        "whoami",
		Conference:  cl.conference(),
		Connection:  string(cl.cid),
		Participant: view,
	})
}

func (ctl *SignalWSController) handleRename(ctx context.Context, cl *client, data []byte) {
	var p struct {
		Name string `json:"name"`
	}
	if !ctl.decode(cl, "rename", data, &p) {
		return
	}
	if err := ctl.Orch.Rename(ctx, cl.conference(), cl.participant(), p.Name); err != nil {
		ctl.sendError(cl.conn, "rename", err)
		return
	}
	log.Info().Str("module", "signal").Str("cid", string(cl.cid)).Str("name", p.Name).Msg("rename")
	ctl.handleWhoAmI(cl)
}
