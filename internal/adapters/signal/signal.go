// Package signal is the WebSocket transport of a conference: it turns client
// messages into orchestrator calls and delivers synchronization
// notifications back to the clients.
package signal

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Conclave/internal/app/orch"
	"github.com/dkeye/Conclave/internal/core"
	"github.com/dkeye/Conclave/internal/domain"
	"github.com/dkeye/Conclave/internal/syncobj"
)

const (
	DefaultDisplayName = "Guest"
	writeWait          = 5 * time.Second
)

// WSConn is an indirection over *websocket.Conn to ease testing.
type WSConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(mt int, data []byte) error
	SetWriteDeadline(t time.Time) error
	SetReadDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(appData string) error)
	Close() error
}

type Options struct {
	SendBuffer int
	ReadLimit  int64
	PingPeriod time.Duration
	ICEServers []string
}

type SignalWSController struct {
	Orch     *orch.Orchestrator
	Notifier *WSNotifier
	Limiter  *JoinRateLimiter
	Options  Options
}

func NewSignalWSController(o *orch.Orchestrator, n *WSNotifier, l *JoinRateLimiter, opts Options) *SignalWSController {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 64
	}
	return &SignalWSController{Orch: o, Notifier: n, Limiter: l, Options: opts}
}

// WsSignalConn implements core.SignalConnection over a WebSocket.
type WsSignalConn struct {
	conn WSConn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func NewWsSignalConn(conn WSConn, buffer int) *WsSignalConn {
	return &WsSignalConn{conn: conn, send: make(chan core.Frame, buffer)}
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnectionClosed
	}
	select {
	case c.send <- f:
		return nil
	default:
		return core.ErrBackpressure
	}
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
}

// client is the per-connection state of the read loop.
type client struct {
	cid  core.ConnectionID
	sess core.MemberSession
	conn *WsSignalConn
}

func (cl *client) conference() domain.ConferenceID   { return cl.sess.Conference() }
func (cl *client) participant() domain.ParticipantID { return cl.sess.Participant() }

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and joins the conference named by the
// "conference" query parameter as the participant identified by the client
// token.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	conf := domain.ConferenceID(c.Query("conference"))
	if conf == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "conference is required"})
		return
	}
	pid := domain.ParticipantID(c.GetString("client_token"))
	if pid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing client token"})
		return
	}
	name := c.Query("name")
	if name == "" {
		name = DefaultDisplayName
	}
	if err := domain.ValidateDisplayName(name); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !ctl.Orch.Joinable(conf) {
		c.JSON(http.StatusNotFound, gin.H{"error": "conference not found"})
		return
	}
	if ctl.Limiter != nil && !ctl.Limiter.Allow(conf, pid) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many join attempts"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	ctl.Serve(ctx, ws, conf, pid, name)
}

// Serve runs a connection until the socket closes or the connection is
// canceled.
func (ctl *SignalWSController) Serve(ctx context.Context, ws WSConn, conf domain.ConferenceID, pid domain.ParticipantID, name string) {
	cid := core.ConnectionID(uuid.NewString())
	conn := NewWsSignalConn(ws, ctl.Options.SendBuffer)
	sess := core.NewMemberSession(conf, pid).UpdateSignal(conn)
	cl := &client{cid: cid, sess: sess, conn: conn}
	logger := log.With().Str("module", "signal").Str("cid", string(cid)).
		Str("conference", string(conf)).Str("participant", string(pid)).Logger()
	logger.Info().Msg("new WS connection")

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)

	replay := func(n syncobj.Notification) { ctl.Notifier.Deliver(cid, sess, n) }
	err := ctl.Orch.Connect(ctx, cid, sess, name, cancel, replay)
	if err != nil {
		ctl.sendError(conn, "join", err)
		if _, bound := ctl.Orch.Registry.GetSession(cid); !bound {
			cancel()
			conn.Close()
			return
		}
	}
	ctl.handleWhoAmI(cl)

	go func() {
		ctl.readPump(ctx, cl)
		cancel()
		ctl.Orch.Disconnect(context.Background(), cid)
		logger.Info().Msg("WS connection closed")
	}()
}
