package app

import (
	"errors"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Conclave/internal/domain"
)

var (
	ErrConferenceNotFound  = errors.New("conference not found")
	ErrConferenceClosed    = errors.New("conference closed")
	ErrParticipantExists   = errors.New("participant already in conference")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrRoomNotFound        = errors.New("room not found")
	ErrRoomExists          = errors.New("room already exists")
	ErrDefaultRoom         = errors.New("default room cannot be removed")
)

// StreamState is what a participant currently produces through the SFU.
type StreamState struct {
	Audio bool `json:"audio"`
	Video bool `json:"video"`
}

// ParticipantView is a read-only copy for providers and APIs.
type ParticipantView struct {
	domain.Participant
	Room domain.RoomID `json:"room"`
}

// PollView is a read-only copy of a poll including the caller-independent
// tally.
type PollView struct {
	domain.Poll
	Tally     []int `json:"tally"`
	Responses int   `json:"responses"`
}

// Conference is a threadsafe in-memory conference: its participants, rooms,
// room assignments, polls and media stream states.
type Conference struct {
	id   domain.ConferenceID
	name string

	mu sync.RWMutex
	// ephemeral conferences were opened by a joining client and close when
	// their last participant leaves.
	ephemeral    bool
	closed       bool
	moderators   map[domain.ParticipantID]bool
	participants map[domain.ParticipantID]*domain.Participant
	rooms        map[domain.RoomID]*domain.Room
	roomOrder    []domain.RoomID
	assignment   map[domain.ParticipantID]domain.RoomID
	polls        map[domain.PollID]*domain.Poll
	pollOrder    []domain.PollID
	whiteboards  map[domain.WhiteboardID]*domain.Whiteboard
	boardOrder   []domain.WhiteboardID
	streams      map[domain.ParticipantID]StreamState
}

func NewConference(id domain.ConferenceID, name string, moderators []domain.ParticipantID) *Conference {
	c := &Conference{
		id:           id,
		name:         name,
		moderators:   make(map[domain.ParticipantID]bool, len(moderators)),
		participants: make(map[domain.ParticipantID]*domain.Participant),
		rooms:        make(map[domain.RoomID]*domain.Room),
		assignment:   make(map[domain.ParticipantID]domain.RoomID),
		polls:        make(map[domain.PollID]*domain.Poll),
		whiteboards:  make(map[domain.WhiteboardID]*domain.Whiteboard),
		streams:      make(map[domain.ParticipantID]StreamState),
	}
	for _, m := range moderators {
		c.moderators[m] = true
	}
	c.rooms[domain.DefaultRoomID] = &domain.Room{ID: domain.DefaultRoomID, DisplayName: "Lobby"}
	c.roomOrder = []domain.RoomID{domain.DefaultRoomID}
	return c
}

func (c *Conference) ID() domain.ConferenceID { return c.id }
func (c *Conference) Name() string            { return c.name }

func (c *Conference) Ephemeral() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ephemeral
}

func (c *Conference) markClosed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// retireIfIdle closes an ephemeral conference without participants.
func (c *Conference) retireIfIdle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.ephemeral || len(c.participants) > 0 {
		return false
	}
	c.closed = true
	return true
}

// AddParticipant places p in the default room. Configured moderators get the
// moderator role; without configured moderators the first participant does.
func (c *Conference) AddParticipant(p *domain.Participant) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConferenceClosed
	}
	if _, ok := c.participants[p.ID]; ok {
		return ErrParticipantExists
	}
	if c.moderators[p.ID] || (len(c.moderators) == 0 && len(c.participants) == 0) {
		p.Role = domain.RoleModerator
		c.moderators[p.ID] = true
	}
	c.participants[p.ID] = p
	c.assignment[p.ID] = domain.DefaultRoomID
	log.Info().Str("module", "app.conference").Str("conference", string(c.id)).Str("participant", string(p.ID)).Str("role", string(p.Role)).Msg("participant added")
	return nil
}

func (c *Conference) RemoveParticipant(id domain.ParticipantID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.participants, id)
	delete(c.assignment, id)
	delete(c.streams, id)
	log.Info().Str("module", "app.conference").Str("conference", string(c.id)).Str("participant", string(id)).Msg("participant removed")
}

func (c *Conference) Participant(id domain.ParticipantID) (ParticipantView, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.participants[id]
	if !ok {
		return ParticipantView{}, false
	}
	return ParticipantView{Participant: *p, Room: c.assignment[id]}, true
}

func (c *Conference) IsModerator(id domain.ParticipantID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.participants[id]
	return ok && p.IsModerator()
}

// Participants returns all participants sorted by id.
func (c *Conference) Participants() []ParticipantView {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]ParticipantView, 0, len(c.participants))
	for id, p := range c.participants {
		out = append(out, ParticipantView{Participant: *p, Room: c.assignment[id]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (c *Conference) ParticipantCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.participants)
}

func (c *Conference) Rename(id domain.ParticipantID, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.participants[id]
	if !ok {
		return ErrParticipantNotFound
	}
	return p.SetDisplayName(name)
}

func (c *Conference) SetRole(id domain.ParticipantID, role domain.Role) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.participants[id]
	if !ok {
		return ErrParticipantNotFound
	}
	p.Role = role
	c.moderators[id] = role == domain.RoleModerator
	return nil
}

// RoomOf returns the room a participant is assigned to.
func (c *Conference) RoomOf(id domain.ParticipantID) (domain.RoomID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.assignment[id]
	return r, ok
}

// MembersOfRoom lists participants assigned to room, sorted.
func (c *Conference) MembersOfRoom(room domain.RoomID) []domain.ParticipantID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []domain.ParticipantID
	for p, r := range c.assignment {
		if r == room {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (c *Conference) CreateRoom(room *domain.Room) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.rooms[room.ID]; ok {
		return ErrRoomExists
	}
	c.rooms[room.ID] = room
	c.roomOrder = append(c.roomOrder, room.ID)
	return nil
}

// RemoveRoom deletes a room and moves its members to the default room. It
// returns the moved participants.
func (c *Conference) RemoveRoom(id domain.RoomID) ([]domain.ParticipantID, error) {
	if id == domain.DefaultRoomID {
		return nil, ErrDefaultRoom
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.rooms[id]; !ok {
		return nil, ErrRoomNotFound
	}
	delete(c.rooms, id)
	for i, r := range c.roomOrder {
		if r == id {
			c.roomOrder = append(c.roomOrder[:i], c.roomOrder[i+1:]...)
			break
		}
	}
	c.removeWhiteboardsOf(id)
	var moved []domain.ParticipantID
	for p, r := range c.assignment {
		if r == id {
			c.assignment[p] = domain.DefaultRoomID
			moved = append(moved, p)
		}
	}
	sort.Slice(moved, func(i, j int) bool { return moved[i] < moved[j] })
	return moved, nil
}

func (c *Conference) HasRoom(id domain.RoomID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.rooms[id]
	return ok
}

// Rooms returns rooms in creation order.
func (c *Conference) Rooms() []domain.Room {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Room, 0, len(c.roomOrder))
	for _, id := range c.roomOrder {
		out = append(out, *c.rooms[id])
	}
	return out
}

// MoveParticipant assigns a participant to another room and returns the
// room it left.
func (c *Conference) MoveParticipant(id domain.ParticipantID, to domain.RoomID) (domain.RoomID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	from, ok := c.assignment[id]
	if !ok {
		return "", ErrParticipantNotFound
	}
	if _, ok := c.rooms[to]; !ok {
		return "", ErrRoomNotFound
	}
	c.assignment[id] = to
	return from, nil
}

func (c *Conference) AddPoll(p *domain.Poll) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.polls[p.ID] = p
	c.pollOrder = append(c.pollOrder, p.ID)
}

// UpdatePoll runs fn on the poll under the conference lock.
func (c *Conference) UpdatePoll(id domain.PollID, fn func(*domain.Poll) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.polls[id]
	if !ok {
		return domain.ErrPollNotFound
	}
	return fn(p)
}

func (c *Conference) RemovePoll(id domain.PollID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.polls[id]; !ok {
		return domain.ErrPollNotFound
	}
	delete(c.polls, id)
	for i, pid := range c.pollOrder {
		if pid == id {
			c.pollOrder = append(c.pollOrder[:i], c.pollOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (c *Conference) Poll(id domain.PollID) (PollView, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.polls[id]
	if !ok {
		return PollView{}, false
	}
	return pollView(p), true
}

// Polls returns polls in creation order.
func (c *Conference) Polls() []PollView {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]PollView, 0, len(c.pollOrder))
	for _, id := range c.pollOrder {
		out = append(out, pollView(c.polls[id]))
	}
	return out
}

func pollView(p *domain.Poll) PollView {
	cp := *p
	cp.Options = append([]string(nil), p.Options...)
	cp.Answers = nil
	return PollView{Poll: cp, Tally: p.Tally(), Responses: len(p.Answers)}
}

// AddWhiteboard stores a whiteboard in its room.
func (c *Conference) AddWhiteboard(wb *domain.Whiteboard) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.rooms[wb.Room]; !ok {
		return ErrRoomNotFound
	}
	c.whiteboards[wb.ID] = wb
	c.boardOrder = append(c.boardOrder, wb.ID)
	return nil
}

func (c *Conference) whiteboard(room domain.RoomID, id domain.WhiteboardID) (*domain.Whiteboard, bool) {
	wb, ok := c.whiteboards[id]
	if !ok || wb.Room != room {
		return nil, false
	}
	return wb, true
}

// Whiteboard returns a copy of a whiteboard of room.
func (c *Conference) Whiteboard(room domain.RoomID, id domain.WhiteboardID) (domain.Whiteboard, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	wb, ok := c.whiteboard(room, id)
	if !ok {
		return domain.Whiteboard{}, false
	}
	return wb.Clone(), true
}

// WhiteboardsOf lists the whiteboards of room in creation order.
func (c *Conference) WhiteboardsOf(room domain.RoomID) []domain.WhiteboardID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []domain.WhiteboardID
	for _, id := range c.boardOrder {
		if c.whiteboards[id].Room == room {
			out = append(out, id)
		}
	}
	return out
}

// UpdateWhiteboard runs fn on the whiteboard under the conference lock.
func (c *Conference) UpdateWhiteboard(room domain.RoomID, id domain.WhiteboardID, fn func(*domain.Whiteboard) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	wb, ok := c.whiteboard(room, id)
	if !ok {
		return domain.ErrWhiteboardNotFound
	}
	return fn(wb)
}

func (c *Conference) RemoveWhiteboard(room domain.RoomID, id domain.WhiteboardID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.whiteboard(room, id); !ok {
		return domain.ErrWhiteboardNotFound
	}
	delete(c.whiteboards, id)
	for i, b := range c.boardOrder {
		if b == id {
			c.boardOrder = append(c.boardOrder[:i], c.boardOrder[i+1:]...)
			break
		}
	}
	return nil
}

// removeWhiteboardsOf drops every whiteboard of room. Callers hold c.mu.
func (c *Conference) removeWhiteboardsOf(room domain.RoomID) {
	kept := c.boardOrder[:0]
	for _, id := range c.boardOrder {
		if c.whiteboards[id].Room == room {
			delete(c.whiteboards, id)
			continue
		}
		kept = append(kept, id)
	}
	c.boardOrder = kept
}

// SetStream records a participant's stream state and reports whether it
// changed.
func (c *Conference) SetStream(id domain.ParticipantID, s StreamState) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.participants[id]; !ok {
		return false
	}
	if c.streams[id] == s {
		return false
	}
	if s == (StreamState{}) {
		delete(c.streams, id)
	} else {
		c.streams[id] = s
	}
	return true
}

func (c *Conference) Streams() map[domain.ParticipantID]StreamState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[domain.ParticipantID]StreamState, len(c.streams))
	for id, s := range c.streams {
		out[id] = s
	}
	return out
}
