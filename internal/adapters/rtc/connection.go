// Package rtc wraps pion peer connections behind core.MediaConnection.
package rtc

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/rtcp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Conclave/internal/core"
)

// KeyframeInterval is how often a picture loss indication is sent for each
// published video track, so new subscribers get a decodable picture soon.
const KeyframeInterval = 3 * time.Second

type WebRTCConnection struct {
	pc  *webrtc.PeerConnection
	cid core.ConnectionID

	cancel context.CancelFunc
	closed atomic.Bool

	mu                 sync.Mutex
	pendingNegotiation bool

	onICE     func(webrtc.ICECandidateInit)
	onOffer   func(webrtc.SessionDescription)
	onTrack   func(ctx context.Context, track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver)
	onClosed  func()
	closeOnce sync.Once
}

// Configuration builds a peer connection configuration from ICE server
// URLs.
func Configuration(iceServers []string) webrtc.Configuration {
	cfg := webrtc.Configuration{}
	if len(iceServers) > 0 {
		cfg.ICEServers = []webrtc.ICEServer{{URLs: iceServers}}
	}
	return cfg
}

func NewWebRTCConnection(cfg webrtc.Configuration, cid core.ConnectionID) (*WebRTCConnection, error) {
	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}
	return &WebRTCConnection{pc: pc, cid: cid}, nil
}

func (c *WebRTCConnection) logger() *zerolog.Logger {
	l := log.With().Str("module", "webrtc").Str("cid", string(c.cid)).Logger()
	return &l
}

func (c *WebRTCConnection) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	logger := c.logger()

	c.pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		logger.Info().Str("ice_state", s.String()).Msg("ICE state")
		if s == webrtc.ICEConnectionStateFailed || s == webrtc.ICEConnectionStateClosed {
			cancel()
		}
	})

	c.pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		logger.Info().Str("peer_connection_state", s.String()).Msg("Peer state")
		if s == webrtc.PeerConnectionStateFailed || s == webrtc.PeerConnectionStateClosed {
			c.Close()
		}
	})

	c.pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand != nil && c.onICE != nil {
			c.onICE(cand.ToJSON())
		}
	})

	c.pc.OnNegotiationNeeded(func() { c.renegotiate() })

	c.pc.OnSignalingStateChange(func(s webrtc.SignalingState) {
		if s != webrtc.SignalingStateStable {
			return
		}
		c.mu.Lock()
		pending := c.pendingNegotiation
		c.pendingNegotiation = false
		c.mu.Unlock()
		if pending {
			go c.renegotiate()
		}
	})

	c.pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		logger.Info().
			Str("kind", track.Kind().String()).
			Str("track_id", track.ID()).
			Str("stream_id", track.StreamID()).
			Msg("OnTrack received")
		if track.Kind() == webrtc.RTPCodecTypeVideo {
			go c.requestKeyframes(ctx, track)
		}
		if c.onTrack != nil {
			c.onTrack(ctx, track, receiver)
		}
	})

	return nil
}

// renegotiate sends a fresh server offer, or defers it until the current
// offer/answer exchange completes.
func (c *WebRTCConnection) renegotiate() {
	if c.IsClosed() {
		return
	}
	if c.pc.SignalingState() != webrtc.SignalingStateStable {
		c.mu.Lock()
		c.pendingNegotiation = true
		c.mu.Unlock()
		return
	}
	offer, err := c.CreateAndSetOffer()
	if err != nil {
		c.logger().Error().Err(err).Msg("renegotiation offer")
		return
	}
	if c.onOffer != nil {
		c.onOffer(*offer)
	}
}

func (c *WebRTCConnection) requestKeyframes(ctx context.Context, track *webrtc.TrackRemote) {
	ticker := time.NewTicker(KeyframeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := c.pc.WriteRTCP([]rtcp.Packet{&rtcp.PictureLossIndication{MediaSSRC: uint32(track.SSRC())}})
			if err != nil {
				return
			}
		}
	}
}

func (c *WebRTCConnection) ApplyOfferAndCreateAnswer(offer webrtc.SessionDescription) (*webrtc.SessionDescription, error) {
	if err := c.pc.SetRemoteDescription(offer); err != nil {
		return nil, err
	}
	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return nil, err
	}

	gatherComplete := webrtc.GatheringCompletePromise(c.pc)
	if err := c.pc.SetLocalDescription(answer); err != nil {
		return nil, err
	}
	<-gatherComplete

	return c.pc.LocalDescription(), nil
}

func (c *WebRTCConnection) ApplyAnswer(answer webrtc.SessionDescription) error {
	return c.pc.SetRemoteDescription(answer)
}

func (c *WebRTCConnection) CreateAndSetOffer() (*webrtc.SessionDescription, error) {
	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return nil, err
	}
	if err := c.pc.SetLocalDescription(offer); err != nil {
		return nil, err
	}
	return c.pc.LocalDescription(), nil
}

func (c *WebRTCConnection) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		if c.cancel != nil {
			c.cancel()
		}
		if err := c.pc.Close(); err != nil {
			c.logger().Error().Err(err).Msg("close error")
		} else {
			c.logger().Info().Msg("closed")
		}
		if c.onClosed != nil {
			c.onClosed()
		}
	})
}

func (c *WebRTCConnection) IsClosed() bool { return c.closed.Load() }

func (c *WebRTCConnection) AddICECandidate(ci webrtc.ICECandidateInit) error {
	return c.pc.AddICECandidate(ci)
}

func (c *WebRTCConnection) OnICECandidate(fn func(webrtc.ICECandidateInit)) { c.onICE = fn }

func (c *WebRTCConnection) OnOffer(fn func(webrtc.SessionDescription)) { c.onOffer = fn }

// OnTrack sets application-level callback for remote tracks.
func (c *WebRTCConnection) OnTrack(fn func(ctx context.Context, track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver)) {
	c.onTrack = fn
}

// OnClosed sets application-level callback for cleanup tracks
func (c *WebRTCConnection) OnClosed(fn func()) { c.onClosed = fn }

// AddLocalTrack attaches a local static RTP track to the PeerConnection.
func (c *WebRTCConnection) AddLocalTrack(track *webrtc.TrackLocalStaticRTP) (*webrtc.RTPSender, error) {
	return c.pc.AddTrack(track)
}

func (c *WebRTCConnection) RemoveSender(sender *webrtc.RTPSender) error {
	return c.pc.RemoveTrack(sender)
}

var _ core.MediaConnection = (*WebRTCConnection)(nil)
