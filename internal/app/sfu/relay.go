package sfu

import (
	"context"
	"maps"
	"sync"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"github.com/dkeye/Conclave/internal/core"
)

// Relay copies RTP packets from one published track to its subscribers.
type Relay struct {
	Key TrackKey
	Src *webrtc.TrackRemote

	mu        sync.RWMutex
	outTracks map[core.ConnectionID]*OutTrack

	cancel context.CancelFunc
	done   chan struct{}
}

func NewRelay(key TrackKey, src *webrtc.TrackRemote, cancel context.CancelFunc) *Relay {
	return &Relay{
		Key:       key,
		Src:       src,
		outTracks: make(map[core.ConnectionID]*OutTrack),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

func (r *Relay) loop(ctx context.Context, logger *zerolog.Logger, onStop func()) {
	defer func() {
		r.releaseAll()
		close(r.done)
		if onStop != nil {
			onStop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("relay ctx done")
			return
		default:
		}
		pkt, _, err := r.Src.ReadRTP()
		if err != nil {
			logger.Info().Err(err).Msg("relay source ended")
			return
		}
		r.forward(pkt, logger)
	}
}

func (r *Relay) forward(pkt *rtp.Packet, logger *zerolog.Logger) {
	r.mu.RLock()
	snapshot := maps.Clone(r.outTracks)
	r.mu.RUnlock()

	var dirty []core.ConnectionID
	for dst, ot := range snapshot {
		switch ot.GetState() {
		case TrackStateDelete:
			dirty = append(dirty, dst)
		case TrackStateMuted:
		case TrackStateOk:
			if err := ot.Track.WriteRTP(pkt); err != nil {
				logger.Warn().Err(err).Str("dst", string(dst)).Msg("relay write RTP error, dropping subscriber")
				ot.MarkDelete()
				dirty = append(dirty, dst)
			}
		}
	}
	if len(dirty) > 0 {
		r.cleanupDeleted(dirty)
	}
}

func (r *Relay) cleanupDeleted(dirty []core.ConnectionID) {
	r.mu.Lock()
	var released []*OutTrack
	for _, dst := range dirty {
		if ot, ok := r.outTracks[dst]; ok && ot.GetState() == TrackStateDelete {
			delete(r.outTracks, dst)
			released = append(released, ot)
		}
	}
	r.mu.Unlock()
	for _, ot := range released {
		ot.release()
	}
}

func (r *Relay) releaseAll() {
	r.mu.Lock()
	out := r.outTracks
	r.outTracks = make(map[core.ConnectionID]*OutTrack)
	r.mu.Unlock()
	for _, ot := range out {
		ot.MarkDelete()
		ot.release()
	}
}

// AddOutTrack registers a subscriber, replacing any previous track for dst.
func (r *Relay) AddOutTrack(dst core.ConnectionID, ot *OutTrack) {
	r.mu.Lock()
	old, had := r.outTracks[dst]
	r.outTracks[dst] = ot
	r.mu.Unlock()
	if had {
		old.MarkDelete()
		old.release()
	}
}

// RemoveOutTrack detaches dst immediately.
func (r *Relay) RemoveOutTrack(dst core.ConnectionID) bool {
	r.mu.Lock()
	ot, ok := r.outTracks[dst]
	delete(r.outTracks, dst)
	r.mu.Unlock()
	if ok {
		ot.MarkDelete()
		ot.release()
	}
	return ok
}

func (r *Relay) HasSubscriber(dst core.ConnectionID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.outTracks[dst]
	return ok
}

func (r *Relay) SubscriberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.outTracks)
}
