package syncobj

import "sort"

// CachedObject is the last value delivered for an object together with the
// participants receiving it.
type CachedObject struct {
	Value       Value
	Subscribers map[ParticipantID]struct{}
}

// SubscriberList returns the subscribers sorted, for stable notifications.
func (c *CachedObject) SubscriberList() []ParticipantID {
	out := make([]ParticipantID, 0, len(c.Subscribers))
	for p := range c.Subscribers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ObjectStore caches synchronized objects of one conference.
// An entry exists iff it has at least one subscriber; callers must follow
// Ensure with AddSubscriber inside the same critical section.
// ObjectStore is not safe for concurrent use; the owning conference
// serializes access.
type ObjectStore struct {
	objects map[ObjectID]*CachedObject
}

func NewObjectStore() *ObjectStore {
	return &ObjectStore{objects: make(map[ObjectID]*CachedObject)}
}

func (s *ObjectStore) Get(id ObjectID) (*CachedObject, bool) {
	obj, ok := s.objects[id]
	return obj, ok
}

// Ensure returns the cached value of id, or stores the result of fetch with
// an empty subscriber set and reports it as new.
func (s *ObjectStore) Ensure(id ObjectID, fetch func() (Value, error)) (Value, bool, error) {
	if obj, ok := s.objects[id]; ok {
		return obj.Value, false, nil
	}
	v, err := fetch()
	if err != nil {
		return nil, false, err
	}
	s.objects[id] = &CachedObject{Value: v, Subscribers: make(map[ParticipantID]struct{})}
	return v, true, nil
}

// AddSubscriber reports false if id is not cached.
func (s *ObjectStore) AddSubscriber(id ObjectID, p ParticipantID) bool {
	obj, ok := s.objects[id]
	if !ok {
		return false
	}
	obj.Subscribers[p] = struct{}{}
	return true
}

// RemoveSubscriber evicts the entry once its last subscriber is gone and
// reports whether that happened.
func (s *ObjectStore) RemoveSubscriber(id ObjectID, p ParticipantID) (evicted bool) {
	obj, ok := s.objects[id]
	if !ok {
		return false
	}
	delete(obj.Subscribers, p)
	if len(obj.Subscribers) == 0 {
		delete(s.objects, id)
		return true
	}
	return false
}

func (s *ObjectStore) SetValue(id ObjectID, v Value) bool {
	obj, ok := s.objects[id]
	if !ok {
		return false
	}
	obj.Value = v
	return true
}

func (s *ObjectStore) Clear() {
	s.objects = make(map[ObjectID]*CachedObject)
}

func (s *ObjectStore) Len() int { return len(s.objects) }

// IDs returns cached ids sorted by their string form.
func (s *ObjectStore) IDs() []ObjectID {
	out := make([]ObjectID, 0, len(s.objects))
	for id := range s.objects {
		out = append(out, id)
	}
	sortIDs(out)
	return out
}

func sortIDs(ids []ObjectID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
}
