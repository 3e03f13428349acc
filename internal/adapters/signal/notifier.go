package signal

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Conclave/internal/app"
	"github.com/dkeye/Conclave/internal/core"
	"github.com/dkeye/Conclave/internal/domain"
	"github.com/dkeye/Conclave/internal/syncobj"
)

// WSNotifier delivers engine notifications to every live connection of each
// recipient. Delivery never blocks; a full outbound queue is handled by the
// backpressure policy.
type WSNotifier struct {
	Registry *app.Registry
	Policy   app.Policy
}

func NewWSNotifier(reg *app.Registry, policy app.Policy) *WSNotifier {
	if policy == nil {
		policy = app.SimplePolicy{}
	}
	return &WSNotifier{Registry: reg, Policy: policy}
}

func (n *WSNotifier) Notify(note syncobj.Notification) {
	frame, err := encodeNotification(note)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("encode notification")
		return
	}
	conf := domain.ConferenceID(note.Conference())
	for _, p := range note.RecipientIDs() {
		snaps := n.Registry.SessionsOf(conf, domain.ParticipantID(p))
		if len(snaps) == 0 {
			log.Debug().Str("module", "signal").Str("conference", string(conf)).
				Str("participant", string(p)).Msg("recipient has no live connection")
			continue
		}
		for _, snap := range snaps {
			n.send(snap.CID, snap.Session, frame)
		}
	}
}

// Deliver sends a single notification to one connection.
func (n *WSNotifier) Deliver(cid core.ConnectionID, sess core.MemberSession, note syncobj.Notification) {
	frame, err := encodeNotification(note)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("encode notification")
		return
	}
	n.send(cid, sess, frame)
}

func (n *WSNotifier) send(cid core.ConnectionID, sess core.MemberSession, frame core.Frame) {
	sig := sess.Signal()
	if sig == nil {
		return
	}
	err := sig.TrySend(frame)
	switch {
	case err == nil:
	case errors.Is(err, core.ErrBackpressure):
		switch n.Policy.OnBackPressure(sess) {
		case app.KickConnection:
			log.Warn().Str("module", "signal").Str("cid", string(cid)).Msg("slow consumer, disconnecting")
			n.Registry.Cancel(cid)
		case app.DropMessage, app.NoAction:
			log.Warn().Str("module", "signal").Str("cid", string(cid)).Msg("slow consumer, notification dropped")
		}
	default:
		log.Debug().Err(err).Str("module", "signal").Str("cid", string(cid)).Msg("deliver")
	}
}

var _ syncobj.Notifier = (*WSNotifier)(nil)
