// Package sfu forwards published RTP tracks to the other participants of a
// room.
package sfu

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Conclave/internal/core"
	"github.com/dkeye/Conclave/internal/domain"
)

var ErrNoRelay = errors.New("no relay for track")

// TrackKey identifies a published track: one per connection and media kind.
type TrackKey struct {
	Conn core.ConnectionID
	Kind webrtc.RTPCodecType
}

func (k TrackKey) String() string { return fmt.Sprintf("%s/%s", k.Conn, k.Kind) }

type RelayManager struct {
	mu     sync.RWMutex
	relays map[TrackKey]*Relay
	owners map[TrackKey]domain.ParticipantID
}

func NewRelayManager() *RelayManager {
	return &RelayManager{
		relays: make(map[TrackKey]*Relay),
		owners: make(map[TrackKey]domain.ParticipantID),
	}
}

// StartRelay begins forwarding track. onStop runs after the relay loop exits,
// whether the source ended or the relay was stopped.
func (m *RelayManager) StartRelay(ctx context.Context, key TrackKey, owner domain.ParticipantID, track *webrtc.TrackRemote, onStop func()) {
	logger := log.With().
		Str("module", "sfu").
		Str("track", key.String()).
		Str("participant", string(owner)).
		Logger()

	relayCtx, cancel := context.WithCancel(ctx)
	relay := NewRelay(key, track, cancel)

	m.mu.Lock()
	if old, ok := m.relays[key]; ok {
		logger.Info().Msg("replacing existing relay")
		old.cancel()
	}
	m.relays[key] = relay
	m.owners[key] = owner
	m.mu.Unlock()

	logger.Info().Msg("starting relay loop")
	go relay.loop(relayCtx, &logger, func() {
		m.forget(key, relay)
		if onStop != nil {
			onStop()
		}
	})
}

func (m *RelayManager) forget(key TrackKey, relay *Relay) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.relays[key] == relay {
		delete(m.relays, key)
		delete(m.owners, key)
	}
}

// Subscribe adds a copy of the src track to the peer connection of dst. The
// added sender triggers renegotiation on the subscriber's connection.
func (m *RelayManager) Subscribe(src TrackKey, dst core.ConnectionID, mc core.MediaConnection) error {
	m.mu.RLock()
	relay, ok := m.relays[src]
	owner := m.owners[src]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoRelay, src)
	}
	if relay.HasSubscriber(dst) {
		return nil
	}

	local, err := webrtc.NewTrackLocalStaticRTP(relay.Src.Codec().RTPCodecCapability, src.String(), string(owner))
	if err != nil {
		return fmt.Errorf("new local track: %w", err)
	}
	sender, err := mc.AddLocalTrack(local)
	if err != nil {
		return fmt.Errorf("add local track: %w", err)
	}
	go drainRTCP(sender)

	relay.AddOutTrack(dst, NewOutTrack(local, func() {
		if mc.IsClosed() {
			return
		}
		if err := mc.RemoveSender(sender); err != nil {
			log.Warn().Err(err).Str("module", "sfu").Str("track", src.String()).Str("dst", string(dst)).Msg("remove sender")
		}
	}))
	log.Debug().Str("module", "sfu").Str("track", src.String()).Str("dst", string(dst)).Msg("subscribed")
	return nil
}

// drainRTCP reads the sender's incoming RTCP so interceptors keep running.
func drainRTCP(sender *webrtc.RTPSender) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := sender.Read(buf); err != nil {
			return
		}
	}
}

// Unsubscribe removes dst from the src relay.
func (m *RelayManager) Unsubscribe(src TrackKey, dst core.ConnectionID) {
	m.mu.RLock()
	relay, ok := m.relays[src]
	m.mu.RUnlock()
	if ok {
		relay.RemoveOutTrack(dst)
	}
}

// UnsubscribeEverywhere removes dst from every relay.
func (m *RelayManager) UnsubscribeEverywhere(dst core.ConnectionID) {
	m.mu.RLock()
	relays := make([]*Relay, 0, len(m.relays))
	for _, r := range m.relays {
		relays = append(relays, r)
	}
	m.mu.RUnlock()
	for _, r := range relays {
		r.RemoveOutTrack(dst)
	}
}

// StopRelays stops every relay published by conn.
func (m *RelayManager) StopRelays(conn core.ConnectionID) {
	m.mu.Lock()
	var stopped []*Relay
	for key, r := range m.relays {
		if key.Conn == conn {
			stopped = append(stopped, r)
			delete(m.relays, key)
			delete(m.owners, key)
		}
	}
	m.mu.Unlock()
	for _, r := range stopped {
		r.cancel()
		r.releaseAll()
	}
}

// Published lists the tracks published by conn, audio first.
func (m *RelayManager) Published(conn core.ConnectionID) []TrackKey {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []TrackKey
	for key := range m.relays {
		if key.Conn == conn {
			out = append(out, key)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

func (m *RelayManager) HasRelay(key TrackKey) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.relays[key]
	return ok
}
