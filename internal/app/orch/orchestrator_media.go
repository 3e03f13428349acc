package orch

import (
	"context"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Conclave/internal/app"
	"github.com/dkeye/Conclave/internal/app/sfu"
	"github.com/dkeye/Conclave/internal/core"
	"github.com/dkeye/Conclave/internal/domain"
)

func (o *Orchestrator) BindMediaHandlers(mc core.MediaConnection, cid core.ConnectionID) {
	mc.OnTrack(func(trackCtx context.Context, track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		o.OnTrack(trackCtx, cid, track)
	})
	mc.OnClosed(func() { o.OnMediaDisconnect(context.Background(), cid) })
}

// OnTrack starts forwarding a newly published track to the publisher's room
// mates and reports the changed stream state.
func (o *Orchestrator) OnTrack(ctx context.Context, cid core.ConnectionID, track *webrtc.TrackRemote) {
	if o.Relays == nil {
		return
	}
	sess, ok := o.Registry.GetSession(cid)
	if !ok || sess.Media() == nil {
		return
	}
	conf, pid := sess.Conference(), sess.Participant()
	c, err := o.conference(conf)
	if err != nil {
		return
	}
	if err := authorize(c, pid, domain.PermMediaPublish); err != nil {
		log.Warn().Err(err).Str("module", "sfu").Str("cid", string(cid)).Msg("track ignored")
		return
	}

	key := sfu.TrackKey{Conn: cid, Kind: track.Kind()}
	o.Relays.StartRelay(ctx, key, pid, track, func() {
		o.refreshStreams(context.Background(), conf, pid)
	})
	o.refreshStreams(ctx, conf, pid)

	room, ok := c.RoomOf(pid)
	if !ok {
		return
	}
	for _, peer := range o.peerConnections(c, room, pid) {
		o.link(cid, peer.CID, peer.Session.Media())
	}
}

// OnMediaReady subscribes a freshly negotiated connection to everything
// published in its room.
func (o *Orchestrator) OnMediaReady(cid core.ConnectionID) {
	if o.Relays == nil {
		return
	}
	sess, ok := o.Registry.GetSession(cid)
	if !ok || sess.Media() == nil {
		return
	}
	c, err := o.conference(sess.Conference())
	if err != nil {
		return
	}
	room, ok := c.RoomOf(sess.Participant())
	if !ok {
		return
	}
	for _, peer := range o.peerConnections(c, room, sess.Participant()) {
		o.link(peer.CID, cid, sess.Media())
	}
}

func (o *Orchestrator) OnMediaDisconnect(ctx context.Context, cid core.ConnectionID) {
	if o.Relays != nil {
		o.Relays.StopRelays(cid)
		o.Relays.UnsubscribeEverywhere(cid)
	}
	if sess, ok := o.Registry.GetSession(cid); ok {
		o.refreshStreams(ctx, sess.Conference(), sess.Participant())
	}
}

func (o *Orchestrator) releaseMedia(cid core.ConnectionID, sess core.MemberSession) {
	if o.Relays != nil {
		o.Relays.StopRelays(cid)
		o.Relays.UnsubscribeEverywhere(cid)
	}
	if mc := sess.Media(); mc != nil && !mc.IsClosed() {
		mc.Close()
	}
}

// refreshStreams derives a participant's stream state from the relays of
// all its connections.
func (o *Orchestrator) refreshStreams(ctx context.Context, conf domain.ConferenceID, pid domain.ParticipantID) {
	c, ok := o.Conferences.Get(conf)
	if !ok {
		return
	}
	var state app.StreamState
	if o.Relays != nil {
		for _, snap := range o.Registry.SessionsOf(conf, pid) {
			for _, key := range o.Relays.Published(snap.CID) {
				switch key.Kind {
				case webrtc.RTPCodecTypeAudio:
					state.Audio = true
				case webrtc.RTPCodecTypeVideo:
					state.Video = true
				}
			}
		}
	}
	if c.SetStream(pid, state) {
		o.push(ctx, conf, mediaID)
	}
}

// peerConnections lists live connections of room members other than self.
func (o *Orchestrator) peerConnections(c *app.Conference, room domain.RoomID, self domain.ParticipantID) []app.ConnSnapshot {
	var out []app.ConnSnapshot
	for _, p := range c.MembersOfRoom(room) {
		if p == self {
			continue
		}
		out = append(out, o.Registry.SessionsOf(c.ID(), p)...)
	}
	return out
}

// link subscribes dst to every track published by src.
func (o *Orchestrator) link(src, dst core.ConnectionID, mc core.MediaConnection) {
	if mc == nil || mc.IsClosed() {
		return
	}
	for _, key := range o.Relays.Published(src) {
		if err := o.Relays.Subscribe(key, dst, mc); err != nil {
			log.Warn().Err(err).Str("module", "sfu").Str("track", key.String()).Str("dst", string(dst)).Msg("subscribe failed")
		}
	}
}

func (o *Orchestrator) unlink(src, dst core.ConnectionID) {
	for _, key := range o.Relays.Published(src) {
		o.Relays.Unsubscribe(key, dst)
	}
}

// attach links every connection of pid with every connection of peers, in
// both directions.
func (o *Orchestrator) attach(conf domain.ConferenceID, pid domain.ParticipantID, peers []domain.ParticipantID) {
	if o.Relays == nil {
		return
	}
	own := o.Registry.SessionsOf(conf, pid)
	for _, peer := range peers {
		if peer == pid {
			continue
		}
		for _, theirs := range o.Registry.SessionsOf(conf, peer) {
			for _, mine := range own {
				o.link(theirs.CID, mine.CID, mine.Session.Media())
				o.link(mine.CID, theirs.CID, theirs.Session.Media())
			}
		}
	}
}

func (o *Orchestrator) detach(conf domain.ConferenceID, pid domain.ParticipantID, peers []domain.ParticipantID) {
	if o.Relays == nil {
		return
	}
	own := o.Registry.SessionsOf(conf, pid)
	for _, peer := range peers {
		if peer == pid {
			continue
		}
		for _, theirs := range o.Registry.SessionsOf(conf, peer) {
			for _, mine := range own {
				o.unlink(theirs.CID, mine.CID)
				o.unlink(mine.CID, theirs.CID)
			}
		}
	}
}
