package sfu

import (
	"context"
	"testing"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Conclave/internal/core"
)

func newLocalTrack(t *testing.T, id string) *webrtc.TrackLocalStaticRTP {
	t.Helper()
	tr, err := webrtc.NewTrackLocalStaticRTP(webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus}, id, "stream")
	require.NoError(t, err)
	return tr
}

func newTestRelay(key TrackKey) *Relay {
	_, cancel := context.WithCancel(context.Background())
	return NewRelay(key, nil, cancel)
}

func TestRelay_ForwardDropsDeleted(t *testing.T) {
	r := newTestRelay(TrackKey{Conn: "a", Kind: webrtc.RTPCodecTypeAudio})
	released := map[core.ConnectionID]int{}
	add := func(dst core.ConnectionID) *OutTrack {
		ot := NewOutTrack(newLocalTrack(t, string(dst)), func() { released[dst]++ })
		r.AddOutTrack(dst, ot)
		return ot
	}
	add("b")
	gone := add("c")
	muted := add("d")
	gone.MarkDelete()
	muted.MarkMuted()

	logger := zerolog.Nop()
	r.forward(&rtp.Packet{Header: rtp.Header{Version: 2, SequenceNumber: 1}}, &logger)

	assert.True(t, r.HasSubscriber("b"))
	assert.False(t, r.HasSubscriber("c"))
	assert.True(t, r.HasSubscriber("d"))
	assert.Equal(t, 1, released["c"])
	assert.Zero(t, released["b"])
}

func TestRelay_ReplaceAndRemoveReleaseOnce(t *testing.T) {
	r := newTestRelay(TrackKey{Conn: "a", Kind: webrtc.RTPCodecTypeVideo})
	calls := 0
	first := NewOutTrack(newLocalTrack(t, "1"), func() { calls++ })
	r.AddOutTrack("b", first)
	r.AddOutTrack("b", NewOutTrack(newLocalTrack(t, "2"), nil))
	assert.Equal(t, 1, calls)
	assert.Equal(t, TrackStateDelete, first.GetState())

	assert.True(t, r.RemoveOutTrack("b"))
	assert.False(t, r.RemoveOutTrack("b"))
	first.release()
	assert.Equal(t, 1, calls)
	assert.Zero(t, r.SubscriberCount())
}

func TestRelayManager_PublishedAndStop(t *testing.T) {
	m := NewRelayManager()
	audio := TrackKey{Conn: "a", Kind: webrtc.RTPCodecTypeAudio}
	video := TrackKey{Conn: "a", Kind: webrtc.RTPCodecTypeVideo}
	other := TrackKey{Conn: "b", Kind: webrtc.RTPCodecTypeAudio}
	for _, k := range []TrackKey{video, audio, other} {
		m.relays[k] = newTestRelay(k)
		m.owners[k] = "p"
	}
	assert.Equal(t, []TrackKey{audio, video}, m.Published("a"))

	released := 0
	m.relays[other].AddOutTrack("a", NewOutTrack(newLocalTrack(t, "x"), func() { released++ }))
	m.UnsubscribeEverywhere("a")
	assert.Equal(t, 1, released)

	m.StopRelays("a")
	assert.Empty(t, m.Published("a"))
	assert.True(t, m.HasRelay(other))
}

func TestRelayManager_SubscribeWithoutRelay(t *testing.T) {
	m := NewRelayManager()
	err := m.Subscribe(TrackKey{Conn: "nope", Kind: webrtc.RTPCodecTypeAudio}, "b", nil)
	assert.ErrorIs(t, err, ErrNoRelay)
}
