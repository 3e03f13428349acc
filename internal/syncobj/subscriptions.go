package syncobj

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// RecomputeSubscriptions re-derives the objects participant may see and
// reconciles them with what was last sent. Removed objects are announced in
// one SubscriptionsRemoved; every added object gets its current value.
//
// All provider calls happen before the first mutation, so a provider error
// leaves the conference state untouched.
func (e *Engine) RecomputeSubscriptions(ctx context.Context, confID ConferenceID, participant ParticipantID) error {
	c := e.acquire(confID)
	notes, err := e.recompute(ctx, c, confID, participant)
	if err != nil {
		if c.idle() {
			e.retire(c)
		}
		c.mu.Unlock()
		log.Warn().Err(err).
			Str("module", "syncobj").
			Str("conference", string(confID)).
			Str("participant", string(participant)).
			Msg("recompute subscriptions failed")
		return err
	}
	c.enqueue(nil, notes...)
	e.flush(c)
	return nil
}

func (e *Engine) recompute(ctx context.Context, c *conference, confID ConferenceID, participant ParticipantID) ([]Notification, error) {
	available, err := e.availableObjects(ctx, confID, participant)
	if err != nil {
		return nil, err
	}

	newSet := make(idSet, len(available))
	for _, id := range available {
		newSet[id] = struct{}{}
	}
	oldSet, hadRecord := c.records[participant]

	var added, removed []ObjectID
	for _, id := range available {
		if _, ok := oldSet[id]; !ok {
			added = append(added, id)
		}
	}
	for id := range oldSet {
		if _, ok := newSet[id]; !ok {
			removed = append(removed, id)
		}
	}
	sortIDs(removed)

	if len(added) == 0 && len(removed) == 0 {
		if !hadRecord {
			c.records[participant] = newSet
		}
		return nil, nil
	}

	fetched := make(map[ObjectID]Value)
	for _, id := range added {
		if _, cached := c.store.Get(id); cached {
			continue
		}
		v, err := e.registry.MustGet(id.Key).FetchValue(ctx, confID, id)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", id, err)
		}
		fetched[id] = v
	}

	// Mutations only from here on.
	var notes []Notification
	for _, id := range removed {
		c.store.RemoveSubscriber(id, participant)
	}
	if len(removed) > 0 {
		notes = append(notes, SubscriptionsRemoved{
			ConferenceID:  confID,
			ParticipantID: participant,
			Removed:       removed,
		})
	}
	for _, id := range added {
		v, _, _ := c.store.Ensure(id, func() (Value, error) { return fetched[id], nil })
		c.store.AddSubscriber(id, participant)
		notes = append(notes, ObjectUpdated{
			ConferenceID: confID,
			ObjectID:     id,
			Value:        v,
			Recipients:   []ParticipantID{participant},
		})
	}
	c.records[participant] = newSet

	log.Debug().
		Str("module", "syncobj").
		Str("conference", string(confID)).
		Str("participant", string(participant)).
		Int("added", len(added)).
		Int("removed", len(removed)).
		Msg("subscriptions updated")
	return notes, nil
}

// availableObjects unions AvailableObjects over all providers in registry
// order, dropping duplicates while keeping first-seen order.
func (e *Engine) availableObjects(ctx context.Context, confID ConferenceID, participant ParticipantID) ([]ObjectID, error) {
	var out []ObjectID
	seen := make(idSet)
	for _, p := range e.registry.Providers() {
		ids, err := p.AvailableObjects(ctx, confID, participant)
		if err != nil {
			return nil, fmt.Errorf("available objects of %q: %w", p.Key(), err)
		}
		for _, id := range ids {
			if id.Key != p.Key() {
				return nil, fmt.Errorf("provider %q returned foreign id %s: %w", p.Key(), id, ErrUnknownProvider)
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out, nil
}

// ParticipantLeft drops every subscription of a participant whose last
// connection ended. Objects without remaining subscribers are evicted. No
// notification is sent.
func (e *Engine) ParticipantLeft(confID ConferenceID, participant ParticipantID) {
	c := e.lookup(confID)
	if c == nil {
		return
	}
	defer c.mu.Unlock()

	evicted := 0
	for id := range c.records[participant] {
		if c.store.RemoveSubscriber(id, participant) {
			evicted++
		}
	}
	delete(c.records, participant)

	log.Debug().
		Str("module", "syncobj").
		Str("conference", string(confID)).
		Str("participant", string(participant)).
		Int("evicted", evicted).
		Msg("participant subscriptions dropped")

	if c.idle() {
		e.retire(c)
	}
}

// Subscriptions returns the ids participant is recorded as subscribed to.
func (e *Engine) Subscriptions(confID ConferenceID, participant ParticipantID) []ObjectID {
	c := e.lookup(confID)
	if c == nil {
		return nil
	}
	defer c.mu.Unlock()
	rec := c.records[participant]
	out := make([]ObjectID, 0, len(rec))
	for id := range rec {
		out = append(out, id)
	}
	sortIDs(out)
	return out
}
