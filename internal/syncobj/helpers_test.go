package syncobj

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

var errProviderDown = errors.New("provider down")

// fakeProvider serves per-participant availability and per-id values that
// tests change between calls.
type fakeProvider struct {
	key string

	mu         sync.Mutex
	available  map[ParticipantID][]ObjectID
	values     map[ObjectID]Value
	availErr   error
	fetchErr   error
	fetchCalls int
}

func newFakeProvider(key string) *fakeProvider {
	return &fakeProvider{
		key:       key,
		available: make(map[ParticipantID][]ObjectID),
		values:    make(map[ObjectID]Value),
	}
}

func (f *fakeProvider) Key() string { return f.key }

func (f *fakeProvider) AvailableObjects(_ context.Context, _ ConferenceID, p ParticipantID) ([]ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.availErr != nil {
		return nil, f.availErr
	}
	return append([]ObjectID(nil), f.available[p]...), nil
}

func (f *fakeProvider) FetchValue(_ context.Context, _ ConferenceID, id ObjectID) (Value, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.values[id], nil
}

func (f *fakeProvider) allow(p ParticipantID, ids ...ObjectID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.available[p] = ids
}

func (f *fakeProvider) set(id ObjectID, v Value) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[id] = v
}

type recorder struct {
	mu    sync.Mutex
	notes []Notification
}

func (r *recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *recorder) take() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.notes
	r.notes = nil
	return out
}

func (r *recorder) reset() { r.take() }

// requireConsistent checks that cache entries exist iff they have
// subscribers and that records and subscriber sets mirror each other.
func requireConsistent(t *testing.T, e *Engine, conf ConferenceID) {
	t.Helper()
	snap, ok := e.Snapshot(conf)
	if !ok {
		return
	}
	bySubscriber := make(map[ParticipantID]map[ObjectID]bool)
	for _, obj := range snap.Objects {
		require.NotEmpty(t, obj.Subscribers, "cached %s without subscribers", obj.ID)
		for _, p := range obj.Subscribers {
			if bySubscriber[p] == nil {
				bySubscriber[p] = make(map[ObjectID]bool)
			}
			bySubscriber[p][obj.ID] = true
		}
	}
	for p, ids := range snap.Subscriptions {
		require.Len(t, bySubscriber[p], len(ids), "participant %s", p)
		for _, id := range ids {
			require.True(t, bySubscriber[p][id], "%s recorded for %s but not subscribed", id, p)
		}
	}
	for p := range bySubscriber {
		_, ok := snap.Subscriptions[p]
		require.True(t, ok, "%s subscribed without record", p)
	}
}
