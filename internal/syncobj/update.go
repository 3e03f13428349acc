package syncobj

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// PushUpdate refetches a subscribed object and, if its value changed, sends
// one ObjectUpdated to all of its subscribers. Objects nobody subscribes to
// are ignored.
func (e *Engine) PushUpdate(ctx context.Context, confID ConferenceID, id ObjectID) error {
	provider, ok := e.registry.Get(id.Key)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProvider, id.Key)
	}

	c := e.lookup(confID)
	if c == nil {
		return nil
	}
	note, err := e.pushUpdate(ctx, c, provider, confID, id)
	if err != nil {
		c.mu.Unlock()
		log.Warn().Err(err).
			Str("module", "syncobj").
			Str("conference", string(confID)).
			Str("object", id.String()).
			Msg("push update failed")
		return err
	}
	if note != nil {
		c.enqueue(nil, note)
	}
	e.flush(c)
	return nil
}

func (e *Engine) pushUpdate(ctx context.Context, c *conference, provider Provider, confID ConferenceID, id ObjectID) (Notification, error) {
	entry, ok := c.store.Get(id)
	if !ok {
		return nil, nil
	}
	v, err := provider.FetchValue(ctx, confID, id)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", id, err)
	}
	if Equal(v, entry.Value) {
		log.Debug().
			Str("module", "syncobj").
			Str("conference", string(confID)).
			Str("object", id.String()).
			Msg("value unchanged")
		return nil, nil
	}
	prev := entry.Value
	c.store.SetValue(id, v)
	return ObjectUpdated{
		ConferenceID:  confID,
		ObjectID:      id,
		Value:         v,
		PreviousValue: prev,
		HasPrevious:   true,
		Recipients:    entry.SubscriberList(),
	}, nil
}
