package signal

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Conclave/internal/core"
	"github.com/dkeye/Conclave/internal/syncobj"
)

var (
	errBadPayload  = errors.New("bad_payload")
	errUnknownType = errors.New("unknown_type")
	errNoMedia     = errors.New("no media connection")
)

type syncUpdatedMsg struct {
	Type    string           `json:"type"`
	Object  syncobj.ObjectID `json:"object"`
	Value   syncobj.Value    `json:"value"`
	Initial bool             `json:"initial"`
}

type syncRemovedMsg struct {
	Type    string             `json:"type"`
	Objects []syncobj.ObjectID `json:"objects"`
}

type errorMsg struct {
	Type    string `json:"type"`
	Request string `json:"request,omitempty"`
	Error   string `json:"error"`
}

// encodeNotification renders a notification as the frame sent to each of
// its recipients.
func encodeNotification(n syncobj.Notification) (core.Frame, error) {
	switch n := n.(type) {
	case syncobj.ObjectUpdated:
		return json.Marshal(syncUpdatedMsg{
			Type:    "sync_updated",
			Object:  n.ObjectID,
			Value:   n.Value,
			Initial: !n.HasPrevious,
		})
	case syncobj.SubscriptionsRemoved:
		return json.Marshal(syncRemovedMsg{Type: "sync_removed", Objects: n.Removed})
	default:
		return nil, errors.New("unsupported notification")
	}
}

func (ctl *SignalWSController) sendJSON(c core.SignalConnection, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	if err := c.TrySend(b); err != nil {
		log.Debug().Err(err).Str("module", "signal").Msg("sendJSON")
	}
}

func (ctl *SignalWSController) sendError(c core.SignalConnection, request string, err error) {
	ctl.sendJSON(c, errorMsg{Type: "error", Request: request, Error: err.Error()})
}
