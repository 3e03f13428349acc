package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const MaxChatMessageLen = 2048

var (
	ErrMessageEmpty   = errors.New("message empty")
	ErrMessageTooLong = errors.New("message too long")
)

// ChatMessage is a message posted to a room channel.
type ChatMessage struct {
	ID           string        `json:"id"`
	ConferenceID ConferenceID  `json:"-"`
	Room         RoomID        `json:"room"`
	Sender       ParticipantID `json:"sender"`
	Text         string        `json:"text"`
	Timestamp    time.Time     `json:"timestamp"`
}

func NewChatMessage(conf ConferenceID, room RoomID, sender ParticipantID, text string, now time.Time) (*ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrMessageEmpty
	}
	if len(text) > MaxChatMessageLen {
		return nil, ErrMessageTooLong
	}
	return &ChatMessage{
		ID:           uuid.NewString(),
		ConferenceID: conf,
		Room:         room,
		Sender:       sender,
		Text:         text,
		Timestamp:    now.UTC(),
	}, nil
}
