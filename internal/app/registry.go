package app

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Conclave/internal/core"
	"github.com/dkeye/Conclave/internal/domain"
)

type sessionEntry struct {
	Session core.MemberSession
	Cancel  context.CancelFunc
}

type participantKey struct {
	conference  domain.ConferenceID
	participant domain.ParticipantID
}

// Registry maps live connections to sessions and counts connections per
// participant, so joins and leaves can be detected per participant rather
// than per connection.
type Registry struct {
	mu            sync.RWMutex
	sessions      map[core.ConnectionID]*sessionEntry
	byParticipant map[participantKey]map[core.ConnectionID]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:      make(map[core.ConnectionID]*sessionEntry),
		byParticipant: make(map[participantKey]map[core.ConnectionID]struct{}),
	}
}

// Bind registers a connection and reports whether it is the participant's
// first connection to the conference.
func (r *Registry) Bind(cid core.ConnectionID, sess core.MemberSession, cancel context.CancelFunc) (first bool) {
	key := participantKey{sess.Conference(), sess.Participant()}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[cid] = &sessionEntry{Session: sess, Cancel: cancel}
	conns, ok := r.byParticipant[key]
	if !ok {
		conns = make(map[core.ConnectionID]struct{})
		r.byParticipant[key] = conns
	}
	first = len(conns) == 0
	conns[cid] = struct{}{}
	log.Info().Str("module", "app.registry").
		Str("cid", string(cid)).
		Str("conference", string(key.conference)).
		Str("participant", string(key.participant)).
		Bool("first", first).
		Msg("bound connection")
	return first
}

// Unbind removes a connection. last reports whether it was the participant's
// final connection to the conference.
func (r *Registry) Unbind(cid core.ConnectionID) (sess core.MemberSession, last bool, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[cid]
	if !ok {
		return nil, false, false
	}
	delete(r.sessions, cid)
	key := participantKey{e.Session.Conference(), e.Session.Participant()}
	conns := r.byParticipant[key]
	delete(conns, cid)
	if len(conns) == 0 {
		delete(r.byParticipant, key)
		last = true
	}
	log.Info().Str("module", "app.registry").Str("cid", string(cid)).Bool("last", last).Msg("unbind connection")
	return e.Session, last, true
}

func (r *Registry) GetSession(cid core.ConnectionID) (core.MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[cid]; ok {
		return e.Session, true
	}
	return nil, false
}

// ConnSnapshot is a live connection and its session.
type ConnSnapshot struct {
	CID     core.ConnectionID
	Session core.MemberSession
}

// SessionsOf returns the live connections of a participant, sorted by id.
func (r *Registry) SessionsOf(conf domain.ConferenceID, p domain.ParticipantID) []ConnSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := r.byParticipant[participantKey{conf, p}]
	out := make([]ConnSnapshot, 0, len(conns))
	for cid := range conns {
		out = append(out, ConnSnapshot{CID: cid, Session: r.sessions[cid].Session})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CID < out[j].CID })
	return out
}

// ConnectionCount is the number of live connections of a participant.
func (r *Registry) ConnectionCount(conf domain.ConferenceID, p domain.ParticipantID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byParticipant[participantKey{conf, p}])
}

// MembersOfConference returns every live connection of a conference.
func (r *Registry) MembersOfConference(conf domain.ConferenceID) []ConnSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []ConnSnapshot
	for cid, e := range r.sessions {
		if e.Session.Conference() == conf {
			out = append(out, ConnSnapshot{CID: cid, Session: e.Session})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CID < out[j].CID })
	return out
}

// Cancel stops a connection's pumps; the adapter unbinds it on exit.
func (r *Registry) Cancel(cid core.ConnectionID) bool {
	r.mu.RLock()
	e, ok := r.sessions[cid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("cid", string(cid)).Msg("canceled connection")
	return true
}
