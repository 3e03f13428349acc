package orch

import (
	"context"
	"fmt"

	"github.com/dkeye/Conclave/internal/app"
	"github.com/dkeye/Conclave/internal/domain"
	"github.com/dkeye/Conclave/internal/providers"
)

// SendChat posts text to the sender's current room.
func (o *Orchestrator) SendChat(ctx context.Context, conf domain.ConferenceID, sender domain.ParticipantID, text string) (*domain.ChatMessage, error) {
	c, err := o.conference(conf)
	if err != nil {
		return nil, err
	}
	if err := authorize(c, sender, domain.PermChatSend); err != nil {
		return nil, err
	}
	room, ok := c.RoomOf(sender)
	if !ok {
		return nil, app.ErrParticipantNotFound
	}
	msg, err := domain.NewChatMessage(conf, room, sender, text, o.now())
	if err != nil {
		return nil, err
	}
	if err := o.Chat.Append(ctx, msg); err != nil {
		return nil, fmt.Errorf("store chat message: %w", err)
	}
	o.push(ctx, conf, providers.ChatID(room))
	return msg, nil
}
