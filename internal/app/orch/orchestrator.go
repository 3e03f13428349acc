// Package orch applies conference actions to the conference model and turns
// each change into the synchronization signals it implies.
package orch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Conclave/internal/app"
	"github.com/dkeye/Conclave/internal/app/sfu"
	"github.com/dkeye/Conclave/internal/domain"
	"github.com/dkeye/Conclave/internal/providers"
	"github.com/dkeye/Conclave/internal/syncobj"
)

var ErrForbidden = errors.New("permission denied")

// ChatStore persists room chat.
type ChatStore interface {
	Append(ctx context.Context, m *domain.ChatMessage) error
	DeleteConference(ctx context.Context, conf domain.ConferenceID) error
}

type Orchestrator struct {
	Conferences *app.ConferenceManager
	Registry    *app.Registry
	Engine      *syncobj.Engine
	Relays      *sfu.RelayManager
	Chat        ChatStore

	// AutoCreate lets a connecting client open an unknown conference. Such
	// conferences close when their last participant leaves.
	AutoCreate bool

	// Now defaults to time.Now.
	Now func() time.Time
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o *Orchestrator) conference(conf domain.ConferenceID) (*app.Conference, error) {
	c, ok := o.Conferences.Get(conf)
	if !ok {
		return nil, fmt.Errorf("%w: %s", app.ErrConferenceNotFound, conf)
	}
	return c, nil
}

// open resolves the conference a client connects to.
func (o *Orchestrator) open(conf domain.ConferenceID) (*app.Conference, error) {
	if o.AutoCreate {
		return o.Conferences.GetOrCreate(conf), nil
	}
	return o.conference(conf)
}

// Joinable reports whether a client may connect to conf.
func (o *Orchestrator) Joinable(conf domain.ConferenceID) bool {
	if o.AutoCreate {
		return true
	}
	_, ok := o.Conferences.Get(conf)
	return ok
}

// Authorize checks that actor is in the conference and holds perm.
func (o *Orchestrator) Authorize(conf domain.ConferenceID, actor domain.ParticipantID, perm domain.Permission) error {
	c, err := o.conference(conf)
	if err != nil {
		return err
	}
	return authorize(c, actor, perm)
}

func authorize(c *app.Conference, actor domain.ParticipantID, perm domain.Permission) error {
	v, ok := c.Participant(actor)
	if !ok {
		return app.ErrParticipantNotFound
	}
	if !v.Role.Has(perm) {
		return fmt.Errorf("%w: %s", ErrForbidden, perm)
	}
	return nil
}

// push refreshes objects after a model change. Failures are logged; the
// model change itself has already happened.
func (o *Orchestrator) push(ctx context.Context, conf domain.ConferenceID, ids ...syncobj.ObjectID) {
	for _, id := range ids {
		err := o.Engine.Handle(ctx, syncobj.UpdateObjectRequest{
			ConferenceID: syncobj.ConferenceID(conf),
			ObjectID:     id,
		})
		if err != nil {
			log.Warn().Err(err).Str("module", "orch").
				Str("conference", string(conf)).
				Str("object", id.String()).
				Msg("update failed")
		}
	}
}

func (o *Orchestrator) recompute(ctx context.Context, conf domain.ConferenceID, participants ...domain.ParticipantID) {
	for _, p := range participants {
		err := o.Engine.Handle(ctx, syncobj.RecomputeSubscriptionsRequest{
			ConferenceID:  syncobj.ConferenceID(conf),
			ParticipantID: syncobj.ParticipantID(p),
		})
		if err != nil {
			log.Warn().Err(err).Str("module", "orch").
				Str("conference", string(conf)).
				Str("participant", string(p)).
				Msg("recompute failed")
		}
	}
}

func (o *Orchestrator) recomputeAll(ctx context.Context, c *app.Conference) {
	views := c.Participants()
	ids := make([]domain.ParticipantID, 0, len(views))
	for _, v := range views {
		ids = append(ids, v.ID)
	}
	o.recompute(ctx, c.ID(), ids...)
}

// Recompute re-evaluates one participant's subscriptions on request.
func (o *Orchestrator) Recompute(ctx context.Context, conf domain.ConferenceID, p domain.ParticipantID) error {
	return o.Engine.Handle(ctx, syncobj.RecomputeSubscriptionsRequest{
		ConferenceID:  syncobj.ConferenceID(conf),
		ParticipantID: syncobj.ParticipantID(p),
	})
}

// UpdateObject refreshes one object given in its string form.
func (o *Orchestrator) UpdateObject(ctx context.Context, conf domain.ConferenceID, object string) error {
	id, err := o.Engine.Registry().Parse(object)
	if err != nil {
		return err
	}
	return o.Engine.Handle(ctx, syncobj.UpdateObjectRequest{
		ConferenceID: syncobj.ConferenceID(conf),
		ObjectID:     id,
	})
}

func (o *Orchestrator) Snapshot(conf domain.ConferenceID) (syncobj.ConferenceSnapshot, bool) {
	return o.Engine.Snapshot(syncobj.ConferenceID(conf))
}

// OpenConference creates a conference with its moderators, or returns the
// one already open.
func (o *Orchestrator) OpenConference(id domain.ConferenceID, name string, moderators []domain.ParticipantID) *app.Conference {
	return o.Conferences.Open(id, name, moderators)
}

// CloseConference drops the conference, its synchronized state and chat
// history, and disconnects everyone in it.
func (o *Orchestrator) CloseConference(ctx context.Context, conf domain.ConferenceID) error {
	if !o.Conferences.Close(conf) {
		return fmt.Errorf("%w: %s", app.ErrConferenceNotFound, conf)
	}
	if err := o.Engine.Handle(ctx, syncobj.ConferenceClosed{ConferenceID: syncobj.ConferenceID(conf)}); err != nil {
		return err
	}
	for _, snap := range o.Registry.MembersOfConference(conf) {
		if o.Relays != nil {
			o.Relays.StopRelays(snap.CID)
		}
		o.Registry.Cancel(snap.CID)
	}
	if o.Chat != nil {
		if err := o.Chat.DeleteConference(ctx, conf); err != nil {
			return fmt.Errorf("delete chat history: %w", err)
		}
	}
	log.Info().Str("module", "orch").Str("conference", string(conf)).Msg("conference closed")
	return nil
}

// CloseConferenceAs closes a conference on behalf of a participant.
func (o *Orchestrator) CloseConferenceAs(ctx context.Context, conf domain.ConferenceID, actor domain.ParticipantID) error {
	if err := o.Authorize(conf, actor, domain.PermConferenceClose); err != nil {
		return err
	}
	return o.CloseConference(ctx, conf)
}

var (
	participantsID = providers.ParticipantsID()
	roomsID        = providers.RoomsID()
	mediaID        = providers.MediaStreamsID()
)
