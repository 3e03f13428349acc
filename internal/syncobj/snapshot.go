package syncobj

// ObjectSnapshot is a read-only copy of one cache entry.
type ObjectSnapshot struct {
	ID          ObjectID        `json:"id"`
	Value       Value           `json:"value"`
	Subscribers []ParticipantID `json:"subscribers"`
}

// ConferenceSnapshot is a point-in-time copy of a conference's engine state.
type ConferenceSnapshot struct {
	Objects       []ObjectSnapshot             `json:"objects"`
	Subscriptions map[ParticipantID][]ObjectID `json:"subscriptions"`
}

// Snapshot copies the state of one conference. The second result is false
// when the conference has no state.
func (e *Engine) Snapshot(confID ConferenceID) (ConferenceSnapshot, bool) {
	c := e.lookup(confID)
	if c == nil {
		return ConferenceSnapshot{}, false
	}
	defer c.mu.Unlock()

	snap := ConferenceSnapshot{
		Objects:       make([]ObjectSnapshot, 0, c.store.Len()),
		Subscriptions: make(map[ParticipantID][]ObjectID, len(c.records)),
	}
	for _, id := range c.store.IDs() {
		obj, _ := c.store.Get(id)
		snap.Objects = append(snap.Objects, ObjectSnapshot{
			ID:          id,
			Value:       obj.Value,
			Subscribers: obj.SubscriberList(),
		})
	}
	for p, rec := range c.records {
		ids := make([]ObjectID, 0, len(rec))
		for id := range rec {
			ids = append(ids, id)
		}
		sortIDs(ids)
		snap.Subscriptions[p] = ids
	}
	return snap, true
}

// Replay hands the current value of every object the participant is
// subscribed to to deliver, addressed to that participant alone. The values
// are queued behind the notifications already committed for the conference,
// so a connection fed by deliver never receives a value older than one it
// was already sent. It returns the number of queued values.
func (e *Engine) Replay(confID ConferenceID, participant ParticipantID, deliver func(Notification)) int {
	c := e.lookup(confID)
	if c == nil {
		return 0
	}

	rec := c.records[participant]
	ids := make([]ObjectID, 0, len(rec))
	for id := range rec {
		ids = append(ids, id)
	}
	sortIDs(ids)
	n := 0
	for _, id := range ids {
		obj, ok := c.store.Get(id)
		if !ok {
			continue
		}
		c.enqueue(deliver, ObjectUpdated{
			ConferenceID: confID,
			ObjectID:     id,
			Value:        obj.Value,
			Recipients:   []ParticipantID{participant},
		})
		n++
	}
	e.flush(c)
	return n
}
