package domain

import "errors"

const (
	DefaultRoomID  RoomID = "default"
	MaxRoomNameLen        = 36
)

var (
	ErrRoomNameEmpty   = errors.New("room name empty")
	ErrRoomNameTooLong = errors.New("room name too long")
)

type RoomID string

type Room struct {
	ID          RoomID `json:"id"`
	DisplayName string `json:"displayName"`
}

func NewRoom(id RoomID, displayName string) (*Room, error) {
	if len(displayName) == 0 {
		return nil, ErrRoomNameEmpty
	}
	if len(displayName) > MaxRoomNameLen {
		return nil, ErrRoomNameTooLong
	}
	return &Room{ID: id, DisplayName: displayName}, nil
}
