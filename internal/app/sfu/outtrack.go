package sfu

import (
	"sync"
	"sync/atomic"

	"github.com/pion/webrtc/v4"
)

type TrackState int32

const (
	TrackStateOk TrackState = iota
	TrackStateMuted
	TrackStateDelete
)

// OutTrack is one forwarded copy of a source track on a subscriber's peer
// connection.
type OutTrack struct {
	Track  *webrtc.TrackLocalStaticRTP
	state  atomic.Int32
	detach func()
	once   sync.Once
}

// NewOutTrack wraps a local track. detach, if set, runs once when the track
// is dropped and removes it from the subscriber's peer connection.
func NewOutTrack(track *webrtc.TrackLocalStaticRTP, detach func()) *OutTrack {
	return &OutTrack{Track: track, detach: detach}
}

func (ot *OutTrack) GetState() TrackState { return TrackState(ot.state.Load()) }
func (ot *OutTrack) MarkOk()              { ot.state.Store(int32(TrackStateOk)) }
func (ot *OutTrack) MarkMuted()           { ot.state.Store(int32(TrackStateMuted)) }
func (ot *OutTrack) MarkDelete()          { ot.state.Store(int32(TrackStateDelete)) }

func (ot *OutTrack) release() {
	ot.once.Do(func() {
		if ot.detach != nil {
			ot.detach()
		}
	})
}
