package app

import (
	"sort"
	"sync"

	"github.com/dkeye/Conclave/internal/domain"
)

type ConferenceInfo struct {
	ID               domain.ConferenceID `json:"id"`
	Name             string              `json:"name"`
	ParticipantCount int                 `json:"participant_count"`
}

// ConferenceManager owns the open conferences of this process.
type ConferenceManager struct {
	mu          sync.RWMutex
	conferences map[domain.ConferenceID]*Conference
}

func NewConferenceManager() *ConferenceManager {
	return &ConferenceManager{conferences: make(map[domain.ConferenceID]*Conference)}
}

// Open creates a conference with the given configuration or returns the one
// already open.
func (m *ConferenceManager) Open(id domain.ConferenceID, name string, moderators []domain.ParticipantID) *Conference {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.conferences[id]; ok {
		return c
	}
	c := NewConference(id, name, moderators)
	m.conferences[id] = c
	return c
}

// GetOrCreate returns the open conference or opens an ephemeral one without
// configured moderators.
func (m *ConferenceManager) GetOrCreate(id domain.ConferenceID) *Conference {
	m.mu.RLock()
	c, ok := m.conferences[id]
	m.mu.RUnlock()
	if ok {
		return c
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.conferences[id]; ok {
		return c
	}
	c = NewConference(id, string(id), nil)
	c.ephemeral = true
	m.conferences[id] = c
	return c
}

func (m *ConferenceManager) Get(id domain.ConferenceID) (*Conference, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.conferences[id]
	return c, ok
}

func (m *ConferenceManager) List() []ConferenceInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ConferenceInfo, 0, len(m.conferences))
	for id, c := range m.conferences {
		out = append(out, ConferenceInfo{ID: id, Name: c.Name(), ParticipantCount: c.ParticipantCount()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Close removes the conference and reports whether it was open.
func (m *ConferenceManager) Close(id domain.ConferenceID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conferences[id]
	if !ok {
		return false
	}
	c.markClosed()
	delete(m.conferences, id)
	return true
}

// CloseIdle closes an ephemeral conference whose last participant left and
// reports whether it did.
func (m *ConferenceManager) CloseIdle(id domain.ConferenceID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conferences[id]
	if !ok || !c.retireIfIdle() {
		return false
	}
	delete(m.conferences, id)
	return true
}
