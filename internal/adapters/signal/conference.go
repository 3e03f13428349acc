package signal

import (
	"context"

	"github.com/dkeye/Conclave/internal/domain"
)

func (ctl *SignalWSController) handleChat(ctx context.Context, cl *client, data []byte) {
	var p struct {
		Text string `json:"text"`
	}
	if !ctl.decode(cl, "chat", data, &p) {
		return
	}
	if _, err := ctl.Orch.SendChat(ctx, cl.conference(), cl.participant(), p.Text); err != nil {
		ctl.sendError(cl.conn, "chat", err)
	}
}

func (ctl *SignalWSController) handlePollCreate(ctx context.Context, cl *client, data []byte) {
	var p struct {
		Question    string   `json:"question"`
		Options     []string `json:"options"`
		AllowChange bool     `json:"allowChange"`
	}
	if !ctl.decode(cl, "poll_create", data, &p) {
		return
	}
	id, err := ctl.Orch.CreatePoll(ctx, cl.conference(), cl.participant(), p.Question, p.Options, p.AllowChange)
	if err != nil {
		ctl.sendError(cl.conn, "poll_create", err)
		return
	}
	ctl.sendJSON(cl.conn, struct {
		Type string        `json:"type"`
		Poll domain.PollID `json:"poll"`
	}{Type: "poll_created", Poll: id})
}

func (ctl *SignalWSController) handlePollVote(ctx context.Context, cl *client, data []byte) {
	var p struct {
		Poll   string `json:"poll"`
		Option int    `json:"option"`
	}
	if !ctl.decode(cl, "poll_vote", data, &p) {
		return
	}
	if err := ctl.Orch.Vote(ctx, cl.conference(), cl.participant(), domain.PollID(p.Poll), p.Option); err != nil {
		ctl.sendError(cl.conn, "poll_vote", err)
	}
}

func (ctl *SignalWSController) handlePollClose(ctx context.Context, cl *client, data []byte) {
	var p struct {
		Poll    string `json:"poll"`
		Publish bool   `json:"publish"`
	}
	if !ctl.decode(cl, "poll_close", data, &p) {
		return
	}
	if err := ctl.Orch.ClosePoll(ctx, cl.conference(), cl.participant(), domain.PollID(p.Poll), p.Publish); err != nil {
		ctl.sendError(cl.conn, "poll_close", err)
	}
}

func (ctl *SignalWSController) handlePollDelete(ctx context.Context, cl *client, data []byte) {
	var p struct {
		Poll string `json:"poll"`
	}
	if !ctl.decode(cl, "poll_delete", data, &p) {
		return
	}
	if err := ctl.Orch.DeletePoll(ctx, cl.conference(), cl.participant(), domain.PollID(p.Poll)); err != nil {
		ctl.sendError(cl.conn, "poll_delete", err)
	}
}
