package syncobj

import (
	"sync"

	"github.com/rs/zerolog/log"
)

type idSet map[ObjectID]struct{}

// outboxEntry is a committed notification waiting for delivery. A nil
// deliver means the engine's notifier.
type outboxEntry struct {
	note    Notification
	deliver func(Notification)
}

// conference is the single-writer domain for one conference: its object
// store, the per-participant subscription records and the notifications
// committed but not yet delivered.
type conference struct {
	id ConferenceID

	mu       sync.Mutex
	closed   bool
	store    *ObjectStore
	records  map[ParticipantID]idSet
	outbox   []outboxEntry
	draining bool
}

func newConference(id ConferenceID) *conference {
	return &conference{
		id:      id,
		store:   NewObjectStore(),
		records: make(map[ParticipantID]idSet),
	}
}

// enqueue appends notifications in commit order. Callers hold c.mu.
func (c *conference) enqueue(deliver func(Notification), notes ...Notification) {
	for _, n := range notes {
		c.outbox = append(c.outbox, outboxEntry{note: n, deliver: deliver})
	}
}

func (c *conference) idle() bool {
	return len(c.records) == 0 && c.store.Len() == 0 && len(c.outbox) == 0 && !c.draining
}

// Engine tracks synchronized objects for all conferences.
type Engine struct {
	registry *Registry
	notifier Notifier

	mu          sync.RWMutex
	conferences map[ConferenceID]*conference
}

func NewEngine(registry *Registry, notifier Notifier) *Engine {
	if notifier == nil {
		notifier = NotifierFunc(func(Notification) {})
	}
	return &Engine{
		registry:    registry,
		notifier:    notifier,
		conferences: make(map[ConferenceID]*conference),
	}
}

func (e *Engine) Registry() *Registry { return e.registry }

// acquire returns the locked state block of id, creating it if needed.
// A block closed between lookup and lock is retried with a fresh one.
func (e *Engine) acquire(id ConferenceID) *conference {
	for {
		c := e.getOrCreate(id)
		c.mu.Lock()
		if !c.closed {
			return c
		}
		c.mu.Unlock()
	}
}

// lookup returns the locked state block of id or nil if the conference has
// no state.
func (e *Engine) lookup(id ConferenceID) *conference {
	for {
		e.mu.RLock()
		c, ok := e.conferences[id]
		e.mu.RUnlock()
		if !ok {
			return nil
		}
		c.mu.Lock()
		if !c.closed {
			return c
		}
		c.mu.Unlock()
	}
}

func (e *Engine) getOrCreate(id ConferenceID) *conference {
	e.mu.RLock()
	c, ok := e.conferences[id]
	e.mu.RUnlock()
	if ok {
		return c
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if c, ok = e.conferences[id]; ok {
		return c
	}
	c = newConference(id)
	e.conferences[id] = c
	return c
}

// retire drops a locked, idle conference block from the table.
func (e *Engine) retire(c *conference) {
	c.closed = true
	e.mu.Lock()
	if e.conferences[c.id] == c {
		delete(e.conferences, c.id)
	}
	e.mu.Unlock()
}

// flush releases the lock of c and delivers its outbox in commit order.
// One goroutine drains a conference at a time: a caller that finds a drain
// in progress leaves its notifications to the draining goroutine, which
// keeps taking batches until the outbox is empty. Delivery runs without the
// lock, so a notifier may call back into the engine.
func (e *Engine) flush(c *conference) {
	if c.draining || len(c.outbox) == 0 {
		c.mu.Unlock()
		return
	}
	c.draining = true
	for len(c.outbox) > 0 {
		batch := c.outbox
		c.outbox = nil
		c.mu.Unlock()
		e.deliver(batch)
		c.mu.Lock()
	}
	c.draining = false
	if !c.closed && c.idle() {
		e.retire(c)
	}
	c.mu.Unlock()
}

func (e *Engine) deliver(batch []outboxEntry) {
	for _, item := range batch {
		if item.deliver != nil {
			item.deliver(item.note)
			continue
		}
		e.notifier.Notify(item.note)
	}
}

// CloseConference drops every cached object and subscription record of the
// conference. No notifications are sent.
func (e *Engine) CloseConference(id ConferenceID) {
	e.mu.Lock()
	c, ok := e.conferences[id]
	delete(e.conferences, id)
	e.mu.Unlock()
	if !ok {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.store.Clear()
	c.records = make(map[ParticipantID]idSet)
	log.Info().Str("module", "syncobj").Str("conference", string(id)).Msg("conference state cleared")
}

// Conferences lists conferences that currently hold engine state.
func (e *Engine) Conferences() []ConferenceID {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]ConferenceID, 0, len(e.conferences))
	for id := range e.conferences {
		out = append(out, id)
	}
	return out
}
