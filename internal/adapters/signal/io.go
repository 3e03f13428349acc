package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	var ping <-chan time.Time
	if ctl.Options.PingPeriod > 0 {
		t := time.NewTicker(ctl.Options.PingPeriod)
		defer t.Stop()
		ping = t.C
	}
	defer c.Close()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Msg("writePump ctx done")
			return
		case <-ping:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().Err(err).Str("module", "signal").Msg("writePump ping error")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, cl *client) {
	defer cl.conn.Close()

	ws := cl.conn.conn
	if ctl.Options.ReadLimit > 0 {
		ws.SetReadLimit(ctl.Options.ReadLimit)
	}
	if ctl.Options.PingPeriod > 0 {
		pongWait := ctl.Options.PingPeriod * 10 / 9
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(pongWait))
		})
	}

	for {
		if ctx.Err() != nil {
			return
		}
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("module", "signal").Str("cid", string(cl.cid)).Msg("readPump read error")
			}
			return
		}
		ctl.handleSignal(ctx, cl, data)
	}
}

func (ctl *SignalWSController) handleSignal(ctx context.Context, cl *client, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		ctl.sendError(cl.conn, "", errBadPayload)
		return
	}

	switch env.Type {
	case "ping":
		ctl.handlePing(cl)
	case "whoami":
		ctl.handleWhoAmI(cl)
	case "rename":
		ctl.handleRename(ctx, cl, data)
	case "join_room":
		ctl.handleJoinRoom(ctx, cl, data)
	case "create_room":
		ctl.handleCreateRoom(ctx, cl, data)
	case "remove_room":
		ctl.handleRemoveRoom(ctx, cl, data)
	case "set_role":
		ctl.handleSetRole(ctx, cl, data)
	case "close_conference":
		ctl.handleCloseConference(ctx, cl)
	case "chat":
		ctl.handleChat(ctx, cl, data)
	case "poll_create":
		ctl.handlePollCreate(ctx, cl, data)
	case "poll_vote":
		ctl.handlePollVote(ctx, cl, data)
	case "poll_close":
		ctl.handlePollClose(ctx, cl, data)
	case "poll_delete":
		ctl.handlePollDelete(ctx, cl, data)
	case "whiteboard_create":
		ctl.handleWhiteboardCreate(ctx, cl, data)
	case "whiteboard_update":
		ctl.handleWhiteboardUpdate(ctx, cl, data)
	case "whiteboard_delete":
		ctl.handleWhiteboardDelete(ctx, cl, data)
	case "offer":
		ctl.handleOffer(ctx, cl, data)
	case "answer":
		ctl.handleAnswer(cl, data)
	case "candidate":
		ctl.handleCandidate(cl, data)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
		ctl.sendError(cl.conn, env.Type, errUnknownType)
	}
}

// decode unmarshals a request payload and reports a bad_payload error to
// the client on failure.
func (ctl *SignalWSController) decode(cl *client, kind string, data []byte, v any) bool {
	if err := json.Unmarshal(data, v); err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("type", kind).Msg("bad payload")
		ctl.sendError(cl.conn, kind, errBadPayload)
		return false
	}
	return true
}
