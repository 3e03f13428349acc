package domain

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
)

const (
	MaxWhiteboardNameLen = 64
	MaxCanvasObjects     = 5000
)

var (
	ErrWhiteboardNotFound     = errors.New("whiteboard not found")
	ErrWhiteboardNameEmpty    = errors.New("whiteboard name empty")
	ErrWhiteboardNameTooLong  = errors.New("whiteboard name too long")
	ErrWhiteboardFull         = errors.New("whiteboard holds too many objects")
	ErrCanvasObjectNotFound   = errors.New("canvas object not found")
	ErrCanvasObjectInvalid    = errors.New("canvas object needs an id and a type")
	ErrWhiteboardPatchEmpty   = errors.New("whiteboard patch is empty")
	ErrWhiteboardPatchOverlap = errors.New("canvas object both updated and removed")
)

type WhiteboardID string

// CanvasObject is one drawn element. Data is opaque to the server.
type CanvasObject struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Whiteboard is a shared canvas that belongs to one room.
type Whiteboard struct {
	ID      WhiteboardID   `json:"id"`
	Room    RoomID         `json:"room"`
	Name    string         `json:"name"`
	Objects []CanvasObject `json:"objects"`
	Version int            `json:"version"`
}

// WhiteboardPatch upserts objects by id and removes others.
type WhiteboardPatch struct {
	Upsert []CanvasObject `json:"upsert"`
	Remove []string       `json:"remove"`
}

func NewWhiteboard(room RoomID, name string) (*Whiteboard, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrWhiteboardNameEmpty
	}
	if len(name) > MaxWhiteboardNameLen {
		return nil, ErrWhiteboardNameTooLong
	}
	return &Whiteboard{
		ID:      WhiteboardID(uuid.NewString()),
		Room:    room,
		Name:    name,
		Objects: []CanvasObject{},
	}, nil
}

// Apply applies patch as a whole or not at all and bumps the version.
// Upserted objects keep their position when they already exist and are
// appended otherwise.
func (w *Whiteboard) Apply(patch WhiteboardPatch) error {
	if len(patch.Upsert) == 0 && len(patch.Remove) == 0 {
		return ErrWhiteboardPatchEmpty
	}
	index := make(map[string]int, len(w.Objects))
	for i, o := range w.Objects {
		index[o.ID] = i
	}
	removed := make(map[string]bool, len(patch.Remove))
	for _, id := range patch.Remove {
		if _, ok := index[id]; !ok {
			return ErrCanvasObjectNotFound
		}
		removed[id] = true
	}
	added := 0
	seen := make(map[string]bool, len(patch.Upsert))
	for _, o := range patch.Upsert {
		if o.ID == "" || o.Type == "" {
			return ErrCanvasObjectInvalid
		}
		if removed[o.ID] {
			return ErrWhiteboardPatchOverlap
		}
		if _, ok := index[o.ID]; !ok && !seen[o.ID] {
			added++
		}
		seen[o.ID] = true
	}
	if len(w.Objects)-len(removed)+added > MaxCanvasObjects {
		return ErrWhiteboardFull
	}

	for _, o := range patch.Upsert {
		o.Data = append(json.RawMessage(nil), o.Data...)
		if i, ok := index[o.ID]; ok {
			w.Objects[i] = o
			continue
		}
		index[o.ID] = len(w.Objects)
		w.Objects = append(w.Objects, o)
	}
	if len(removed) > 0 {
		kept := w.Objects[:0]
		for _, o := range w.Objects {
			if !removed[o.ID] {
				kept = append(kept, o)
			}
		}
		w.Objects = kept
	}
	w.Version++
	return nil
}

// Clone returns a deep copy.
func (w *Whiteboard) Clone() Whiteboard {
	cp := *w
	cp.Objects = make([]CanvasObject, len(w.Objects))
	for i, o := range w.Objects {
		o.Data = append(json.RawMessage(nil), o.Data...)
		cp.Objects[i] = o
	}
	return cp
}
