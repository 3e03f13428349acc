// Package domain contains conference entities and their validation, no
// transport or lifecycle logic.
package domain

import (
	"errors"

	"github.com/google/uuid"
)

const (
	MaxParticipantIDLen = 36
	MaxDisplayNameLen   = 36
)

var (
	ErrDisplayNameTooLong = errors.New("display name too long")
	ErrDisplayNameEmpty   = errors.New("display name empty")
	ErrUnknownRole        = errors.New("unknown role")
)

type (
	ConferenceID  string
	ParticipantID string
	Role          string
)

const (
	RoleModerator   Role = "moderator"
	RoleParticipant Role = "participant"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleModerator, RoleParticipant:
		return r, nil
	default:
		return "", ErrUnknownRole
	}
}

type Participant struct {
	ID          ParticipantID `json:"id"`
	DisplayName string        `json:"displayName"`
	Role        Role          `json:"role"`
}

// NewParticipant is a tiny helper to avoid ad-hoc struct literals in adapters.
// An empty id gets a random one.
func NewParticipant(id ParticipantID, displayName string) (*Participant, error) {
	if err := ValidateDisplayName(displayName); err != nil {
		return nil, err
	}
	if id == "" {
		id = ParticipantID(uuid.NewString())
	}
	if len(id) > MaxParticipantIDLen {
		id = id[:MaxParticipantIDLen]
	}
	return &Participant{ID: id, DisplayName: displayName, Role: RoleParticipant}, nil
}

func (p *Participant) SetDisplayName(name string) error {
	if err := ValidateDisplayName(name); err != nil {
		return err
	}
	p.DisplayName = name
	return nil
}

func (p *Participant) IsModerator() bool { return p.Role == RoleModerator }

func ValidateDisplayName(name string) error {
	if len(name) == 0 {
		return ErrDisplayNameEmpty
	}
	if len(name) > MaxDisplayNameLen {
		return ErrDisplayNameTooLong
	}
	return nil
}
