package signal

import (
	"context"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Conclave/internal/adapters/rtc"
)

type sdpMsg struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

type candidateMsg struct {
	Type          string  `json:"type"`
	Candidate     string  `json:"candidate"`
	SDPMid        *string `json:"sdpMid,omitempty"`
	SDPMLineIndex *uint16 `json:"sdpMLineIndex,omitempty"`
}

func (ctl *SignalWSController) sendCandidate(cl *client, ci webrtc.ICECandidateInit) {
	ctl.sendJSON(cl.conn, candidateMsg{
		Type:          "candidate",
		Candidate:     ci.Candidate,
		SDPMid:        ci.SDPMid,
		SDPMLineIndex: ci.SDPMLineIndex,
	})
}

// handleOffer answers a client offer. The first offer creates the peer
// connection; later offers renegotiate it.
func (ctl *SignalWSController) handleOffer(ctx context.Context, cl *client, data []byte) {
	var p sdpMsg
	if !ctl.decode(cl, "offer", data, &p) {
		return
	}
	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: p.SDP}

	if mc := cl.sess.Media(); mc != nil && !mc.IsClosed() {
		answer, err := mc.ApplyOfferAndCreateAnswer(offer)
		if err != nil {
			ctl.sendError(cl.conn, "offer", err)
			return
		}
		ctl.sendJSON(cl.conn, sdpMsg{Type: "answer", SDP: answer.SDP})
		return
	}

	wc, err := rtc.NewWebRTCConnection(rtc.Configuration(ctl.Options.ICEServers), cl.cid)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("webrtc new pc")
		ctl.sendError(cl.conn, "offer", err)
		return
	}
	wc.OnICECandidate(func(ci webrtc.ICECandidateInit) { ctl.sendCandidate(cl, ci) })
	wc.OnOffer(func(sd webrtc.SessionDescription) {
		ctl.sendJSON(cl.conn, sdpMsg{Type: "offer", SDP: sd.SDP})
	})
	ctl.Orch.BindMediaHandlers(wc, cl.cid)

	if err := wc.Start(ctx); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("webrtc start")
		wc.Close()
		return
	}
	answer, err := wc.ApplyOfferAndCreateAnswer(offer)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("webrtc apply offer")
		ctl.sendError(cl.conn, "offer", err)
		wc.Close()
		return
	}

	cl.sess.UpdateMedia(wc)
	ctl.sendJSON(cl.conn, sdpMsg{Type: "answer", SDP: answer.SDP})
	ctl.Orch.OnMediaReady(cl.cid)
}

// handleAnswer completes a server-initiated renegotiation.
func (ctl *SignalWSController) handleAnswer(cl *client, data []byte) {
	var p sdpMsg
	if !ctl.decode(cl, "answer", data, &p) {
		return
	}
	mc := cl.sess.Media()
	if mc == nil {
		ctl.sendError(cl.conn, "answer", errNoMedia)
		return
	}
	if err := mc.ApplyAnswer(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: p.SDP}); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("cid", string(cl.cid)).Msg("apply answer")
		ctl.sendError(cl.conn, "answer", err)
	}
}

func (ctl *SignalWSController) handleCandidate(cl *client, data []byte) {
	var p candidateMsg
	if !ctl.decode(cl, "candidate", data, &p) {
		return
	}
	mc := cl.sess.Media()
	if mc == nil {
		log.Warn().Str("module", "signal").Str("cid", string(cl.cid)).Msg("candidate: no media connection")
		return
	}
	cand := webrtc.ICECandidateInit{
		Candidate:     p.Candidate,
		SDPMid:        p.SDPMid,
		SDPMLineIndex: p.SDPMLineIndex,
	}
	if err := mc.AddICECandidate(cand); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("add ice candidate")
	}
}
