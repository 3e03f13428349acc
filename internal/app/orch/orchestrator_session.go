package orch

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Conclave/internal/app"
	"github.com/dkeye/Conclave/internal/core"
	"github.com/dkeye/Conclave/internal/domain"
	"github.com/dkeye/Conclave/internal/providers"
	"github.com/dkeye/Conclave/internal/syncobj"
)

// Connect registers a connection of a participant. The participant's first
// connection adds it to the conference and subscribes it. A later connection
// gets the current values of the existing subscriptions through replay,
// which must deliver to that connection only.
func (o *Orchestrator) Connect(ctx context.Context, cid core.ConnectionID, sess core.MemberSession, displayName string, cancel context.CancelFunc, replay func(syncobj.Notification)) error {
	conf, pid := sess.Conference(), sess.Participant()
	p, err := domain.NewParticipant(pid, displayName)
	if err != nil {
		return err
	}
	if _, err := o.open(conf); err != nil {
		return err
	}

	if !o.Registry.Bind(cid, sess, cancel) {
		if replay != nil {
			o.Engine.Replay(syncobj.ConferenceID(conf), syncobj.ParticipantID(pid), replay)
		}
		return nil
	}
	if err := o.admit(conf, p); err != nil {
		o.Registry.Unbind(cid)
		return err
	}
	o.push(ctx, conf, participantsID, roomsID)

	err = o.Engine.Handle(ctx, syncobj.ParticipantJoined{
		ConferenceID:  syncobj.ConferenceID(conf),
		ParticipantID: syncobj.ParticipantID(pid),
	})
	if err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("participant", string(pid)).Msg("join recompute failed")
		return err
	}
	log.Info().Str("module", "orch").Str("conference", string(conf)).Str("participant", string(pid)).Msg("participant joined")
	return nil
}

// admit adds p to the conference. An ephemeral conference retired between
// lookup and join is opened again.
func (o *Orchestrator) admit(conf domain.ConferenceID, p *domain.Participant) error {
	for {
		c, err := o.open(conf)
		if err != nil {
			return err
		}
		err = c.AddParticipant(p)
		switch {
		case errors.Is(err, app.ErrConferenceClosed):
			continue
		case errors.Is(err, app.ErrParticipantExists):
			return nil
		default:
			return err
		}
	}
}

// Disconnect unregisters a connection. When it was the participant's last
// one, the participant leaves the conference, and an ephemeral conference
// left empty is closed.
func (o *Orchestrator) Disconnect(ctx context.Context, cid core.ConnectionID) {
	sess, last, ok := o.Registry.Unbind(cid)
	if !ok {
		return
	}
	conf, pid := sess.Conference(), sess.Participant()
	o.releaseMedia(cid, sess)

	if !last {
		o.refreshStreams(ctx, conf, pid)
		return
	}

	c, open := o.Conferences.Get(conf)
	if open {
		c.RemoveParticipant(pid)
	}
	err := o.Engine.Handle(ctx, syncobj.ParticipantLeftSignal{
		ConferenceID:  syncobj.ConferenceID(conf),
		ParticipantID: syncobj.ParticipantID(pid),
		ConnectionID:  string(cid),
	})
	if err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("conference", string(conf)).
			Str("participant", string(pid)).Msg("leave failed")
	}
	log.Info().Str("module", "orch").Str("conference", string(conf)).Str("participant", string(pid)).Msg("participant left")

	switch {
	case !open:
	case o.Conferences.CloseIdle(conf):
		// The engine retires the empty state block on its own; a client may
		// already be reopening the conference, so only chat history goes.
		if o.Chat != nil {
			if err := o.Chat.DeleteConference(ctx, conf); err != nil {
				log.Warn().Err(err).Str("module", "orch").Str("conference", string(conf)).Msg("delete chat history")
			}
		}
		log.Info().Str("module", "orch").Str("conference", string(conf)).Msg("idle conference closed")
	default:
		o.push(ctx, conf, participantsID, roomsID, mediaID)
	}
}

// Kick drops every connection of a participant.
func (o *Orchestrator) Kick(conf domain.ConferenceID, pid domain.ParticipantID) int {
	n := 0
	for _, snap := range o.Registry.SessionsOf(conf, pid) {
		if o.Registry.Cancel(snap.CID) {
			n++
		}
	}
	return n
}

func (o *Orchestrator) Rename(ctx context.Context, conf domain.ConferenceID, pid domain.ParticipantID, name string) error {
	c, err := o.conference(conf)
	if err != nil {
		return err
	}
	if err := c.Rename(pid, name); err != nil {
		return err
	}
	o.push(ctx, conf, participantsID)
	return nil
}

func (o *Orchestrator) WhoAmI(conf domain.ConferenceID, pid domain.ParticipantID) (app.ParticipantView, error) {
	c, err := o.conference(conf)
	if err != nil {
		return app.ParticipantView{}, err
	}
	v, ok := c.Participant(pid)
	if !ok {
		return app.ParticipantView{}, app.ErrParticipantNotFound
	}
	return v, nil
}

// SetRole changes a participant's role. Role changes alter what the target
// may see, so its subscriptions are recomputed.
func (o *Orchestrator) SetRole(ctx context.Context, conf domain.ConferenceID, actor, target domain.ParticipantID, role domain.Role) error {
	c, err := o.conference(conf)
	if err != nil {
		return err
	}
	if err := authorize(c, actor, domain.PermRolesAssign); err != nil {
		return err
	}
	if err := c.SetRole(target, role); err != nil {
		return err
	}
	o.recompute(ctx, conf, target)
	o.push(ctx, conf, providers.PermissionsID(target), participantsID)
	log.Info().Str("module", "orch").Str("conference", string(conf)).
		Str("actor", string(actor)).Str("target", string(target)).Str("role", string(role)).
		Msg("role changed")
	return nil
}
