package orch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Conclave/internal/app"
	"github.com/dkeye/Conclave/internal/core"
	"github.com/dkeye/Conclave/internal/domain"
	"github.com/dkeye/Conclave/internal/providers"
	"github.com/dkeye/Conclave/internal/syncobj"
)

const conf = domain.ConferenceID("standup")

type memoryChat struct {
	mu      sync.Mutex
	msgs    []domain.ChatMessage
	deleted []domain.ConferenceID
}

func (m *memoryChat) Append(_ context.Context, msg *domain.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, *msg)
	return nil
}

func (m *memoryChat) Recent(_ context.Context, c domain.ConferenceID, room domain.RoomID, limit int) ([]domain.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ChatMessage
	for _, msg := range m.msgs {
		if msg.ConferenceID == c && msg.Room == room {
			out = append(out, msg)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *memoryChat) DeleteConference(_ context.Context, c domain.ConferenceID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, c)
	return nil
}

type recorder struct {
	mu    sync.Mutex
	notes []syncobj.Notification
}

func (r *recorder) Notify(n syncobj.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = nil
}

// updates returns the ObjectUpdated notifications addressed to p.
func (r *recorder) updates(p domain.ParticipantID) []syncobj.ObjectUpdated {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []syncobj.ObjectUpdated
	for _, n := range r.notes {
		u, ok := n.(syncobj.ObjectUpdated)
		if !ok {
			continue
		}
		for _, rcpt := range u.Recipients {
			if rcpt == syncobj.ParticipantID(p) {
				out = append(out, u)
			}
		}
	}
	return out
}

func (r *recorder) updatedIDs(p domain.ParticipantID) []string {
	var out []string
	for _, u := range r.updates(p) {
		out = append(out, u.ObjectID.String())
	}
	return out
}

func (r *recorder) removed(p domain.ParticipantID) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, n := range r.notes {
		if rm, ok := n.(syncobj.SubscriptionsRemoved); ok && rm.ParticipantID == syncobj.ParticipantID(p) {
			for _, id := range rm.Removed {
				out = append(out, id.String())
			}
		}
	}
	return out
}

type fixture struct {
	orch *Orchestrator
	rec  *recorder
	chat *memoryChat
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cm := app.NewConferenceManager()
	chat := &memoryChat{}
	rec := &recorder{}
	reg := syncobj.NewRegistry(providers.All(cm, chat, 50)...)
	o := &Orchestrator{
		Conferences: cm,
		Registry:    app.NewRegistry(),
		Engine:      syncobj.NewEngine(reg, rec),
		Chat:        chat,
		Now:         func() time.Time { return time.Unix(1700000000, 0) },
	}
	o.OpenConference(conf, "Standup", []domain.ParticipantID{"mod"})
	return &fixture{orch: o, rec: rec, chat: chat}
}

func (f *fixture) connect(t *testing.T, cid core.ConnectionID, pid domain.ParticipantID) []syncobj.ObjectUpdated {
	t.Helper()
	return connectTo(t, f.orch, conf, cid, pid)
}

func connectTo(t *testing.T, o *Orchestrator, c domain.ConferenceID, cid core.ConnectionID, pid domain.ParticipantID) []syncobj.ObjectUpdated {
	t.Helper()
	var replay []syncobj.ObjectUpdated
	sess := core.NewMemberSession(c, pid)
	err := o.Connect(context.Background(), cid, sess, string(pid), func() {}, func(n syncobj.Notification) {
		replay = append(replay, n.(syncobj.ObjectUpdated))
	})
	require.NoError(t, err)
	return replay
}

func TestConnect_FirstConnectionSubscribes(t *testing.T) {
	f := newFixture(t)
	f.connect(t, "c-mod", "mod")

	assert.ElementsMatch(t, []string{
		"participants", "permissions:mod", "rooms", "mediaStreams", "chat:default",
	}, f.rec.updatedIDs("mod"))

	v, err := f.orch.WhoAmI(conf, "mod")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleModerator, v.Role)
	assert.Equal(t, domain.DefaultRoomID, v.Room)
}

func TestConnect_OthersSeeNewParticipant(t *testing.T) {
	f := newFixture(t)
	f.connect(t, "c-mod", "mod")
	f.rec.reset()

	f.connect(t, "c-alice", "alice")

	var got *syncobj.ObjectUpdated
	for _, u := range f.rec.updates("mod") {
		if u.ObjectID == providers.ParticipantsID() {
			got = &u
		}
	}
	require.NotNil(t, got)
	assert.True(t, got.HasPrevious)
	assert.Len(t, got.Value.(providers.ParticipantsValue).Participants, 2)
	assert.NotContains(t, f.rec.updatedIDs("mod"), "permissions:alice")
}

func TestConnect_SecondConnectionReplays(t *testing.T) {
	f := newFixture(t)
	f.connect(t, "c1", "alice")
	f.rec.reset()

	replay := f.connect(t, "c2", "alice")
	assert.Empty(t, f.rec.updates("alice"))
	ids := make([]string, 0, len(replay))
	for _, u := range replay {
		ids = append(ids, u.ObjectID.String())
		assert.False(t, u.HasPrevious)
	}
	assert.ElementsMatch(t, []string{
		"participants", "permissions:alice", "rooms", "mediaStreams", "chat:default",
	}, ids)
}

func TestConnect_InvalidName(t *testing.T) {
	f := newFixture(t)
	sess := core.NewMemberSession(conf, "alice")
	err := f.orch.Connect(context.Background(), "c1", sess, "", func() {}, nil)
	assert.ErrorIs(t, err, domain.ErrDisplayNameEmpty)
	assert.Zero(t, f.orch.Registry.ConnectionCount(conf, "alice"))
}

func TestDisconnect_OnlyLastConnectionLeaves(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.connect(t, "c-mod", "mod")
	f.connect(t, "c1", "alice")
	f.connect(t, "c2", "alice")

	f.orch.Disconnect(ctx, "c1")
	_, err := f.orch.WhoAmI(conf, "alice")
	require.NoError(t, err)

	f.rec.reset()
	f.orch.Disconnect(ctx, "c2")
	_, err = f.orch.WhoAmI(conf, "alice")
	assert.ErrorIs(t, err, app.ErrParticipantNotFound)
	assert.Empty(t, f.orch.Engine.Subscriptions(syncobj.ConferenceID(conf), "alice"))
	assert.Contains(t, f.rec.updatedIDs("mod"), "participants")
	assert.Empty(t, f.rec.updates("alice"))

	f.orch.Disconnect(ctx, "c2")
}

func TestMoveRoom_SwapsChat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.connect(t, "c-mod", "mod")
	f.connect(t, "c-alice", "alice")

	room, err := f.orch.CreateRoom(ctx, conf, "mod", "Breakout")
	require.NoError(t, err)
	_, err = f.orch.CreateRoom(ctx, conf, "alice", "Nope")
	assert.ErrorIs(t, err, ErrForbidden)

	err = f.orch.MoveRoom(ctx, conf, "alice", "mod", room)
	assert.ErrorIs(t, err, ErrForbidden)

	f.rec.reset()
	require.NoError(t, f.orch.MoveRoom(ctx, conf, "alice", "alice", room))
	assert.Equal(t, []string{"chat:default"}, f.rec.removed("alice"))
	assert.Contains(t, f.rec.updatedIDs("alice"), "chat:"+string(room))
	assert.Contains(t, f.rec.updatedIDs("mod"), "rooms")

	f.rec.reset()
	require.NoError(t, f.orch.RemoveRoom(ctx, conf, "mod", room))
	assert.Equal(t, []string{"chat:" + string(room)}, f.rec.removed("alice"))
	assert.Contains(t, f.rec.updatedIDs("alice"), "chat:default")
}

func TestSendChat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.connect(t, "c-mod", "mod")
	f.connect(t, "c-alice", "alice")
	f.rec.reset()

	msg, err := f.orch.SendChat(ctx, conf, "alice", "  hello  ")
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Text)
	require.Len(t, f.chat.msgs, 1)

	for _, p := range []domain.ParticipantID{"mod", "alice"} {
		ups := f.rec.updates(p)
		require.Len(t, ups, 1)
		assert.Equal(t, providers.ChatID(domain.DefaultRoomID), ups[0].ObjectID)
		assert.Len(t, ups[0].Value.(providers.ChatValue).Messages, 1)
	}

	_, err = f.orch.SendChat(ctx, conf, "alice", "   ")
	assert.ErrorIs(t, err, domain.ErrMessageEmpty)
}

func TestPolls_Lifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.connect(t, "c-mod", "mod")
	f.connect(t, "c-alice", "alice")

	_, err := f.orch.CreatePoll(ctx, conf, "alice", "Q?", []string{"a", "b"}, false)
	assert.ErrorIs(t, err, ErrForbidden)

	f.rec.reset()
	id, err := f.orch.CreatePoll(ctx, conf, "mod", "Q?", []string{"a", "b"}, false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"poll:" + string(id), "pollResults:" + string(id)}, f.rec.updatedIDs("mod"))
	assert.Equal(t, []string{"poll:" + string(id)}, f.rec.updatedIDs("alice"))

	f.rec.reset()
	require.NoError(t, f.orch.Vote(ctx, conf, "alice", id, 1))
	assert.Equal(t, []string{"poll:" + string(id)}, f.rec.updatedIDs("alice"))
	assert.Contains(t, f.rec.updatedIDs("mod"), "pollResults:"+string(id))
	assert.ErrorIs(t, f.orch.Vote(ctx, conf, "alice", id, 0), domain.ErrAnswerCannotBeChanged)

	f.rec.reset()
	require.NoError(t, f.orch.ClosePoll(ctx, conf, "mod", id, true))
	assert.Contains(t, f.rec.updatedIDs("alice"), "pollResults:"+string(id))
	assert.ErrorIs(t, f.orch.Vote(ctx, conf, "mod", id, 0), domain.ErrPollClosed)

	f.rec.reset()
	require.NoError(t, f.orch.DeletePoll(ctx, conf, "mod", id))
	assert.ElementsMatch(t, []string{"poll:" + string(id), "pollResults:" + string(id)}, f.rec.removed("alice"))
}

func TestSetRole_ChangesVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.connect(t, "c-mod", "mod")
	f.connect(t, "c-alice", "alice")
	id, err := f.orch.CreatePoll(ctx, conf, "mod", "Q?", []string{"a", "b"}, true)
	require.NoError(t, err)

	assert.ErrorIs(t, f.orch.SetRole(ctx, conf, "alice", "alice", domain.RoleModerator), ErrForbidden)

	f.rec.reset()
	require.NoError(t, f.orch.SetRole(ctx, conf, "mod", "alice", domain.RoleModerator))
	ids := f.rec.updatedIDs("alice")
	assert.Contains(t, ids, "pollResults:"+string(id))
	assert.Contains(t, ids, "permissions:alice")
	assert.NotContains(t, f.rec.updatedIDs("mod"), "permissions:alice")
}

func TestCloseConference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	canceled := 0
	for _, pid := range []domain.ParticipantID{"mod", "alice"} {
		sess := core.NewMemberSession(conf, pid)
		err := f.orch.Connect(ctx, core.ConnectionID("c-"+pid), sess, string(pid), func() { canceled++ }, nil)
		require.NoError(t, err)
	}

	assert.ErrorIs(t, f.orch.CloseConferenceAs(ctx, conf, "alice"), ErrForbidden)
	require.NoError(t, f.orch.CloseConferenceAs(ctx, conf, "mod"))

	assert.Equal(t, 2, canceled)
	assert.Equal(t, []domain.ConferenceID{conf}, f.chat.deleted)
	_, ok := f.orch.Snapshot(conf)
	assert.False(t, ok)
	_, ok = f.orch.Conferences.Get(conf)
	assert.False(t, ok)

	f.orch.Disconnect(ctx, "c-alice")
	f.orch.Disconnect(ctx, "c-mod")
	_, ok = f.orch.Snapshot(conf)
	assert.False(t, ok)

	assert.ErrorIs(t, f.orch.CloseConference(ctx, conf), app.ErrConferenceNotFound)

	sess := core.NewMemberSession(conf, "alice")
	err := f.orch.Connect(ctx, "c-again", sess, "alice", func() {}, nil)
	assert.ErrorIs(t, err, app.ErrConferenceNotFound)
	assert.Zero(t, f.orch.Registry.ConnectionCount(conf, "alice"))
	assert.False(t, f.orch.Joinable(conf))
}

func TestConnect_UnknownConferenceRejected(t *testing.T) {
	f := newFixture(t)
	sess := core.NewMemberSession("elsewhere", "alice")

	err := f.orch.Connect(context.Background(), "c1", sess, "alice", func() {}, nil)

	assert.ErrorIs(t, err, app.ErrConferenceNotFound)
	assert.False(t, f.orch.Joinable("elsewhere"))
	_, ok := f.orch.Conferences.Get("elsewhere")
	assert.False(t, ok)
	assert.Empty(t, f.rec.updates("alice"))
}

func TestConnect_AutoCreatedConferenceClosesWhenEmpty(t *testing.T) {
	f := newFixture(t)
	f.orch.AutoCreate = true
	ctx := context.Background()

	connectTo(t, f.orch, "adhoc", "c1", "alice")
	connectTo(t, f.orch, "adhoc", "c2", "bob")
	c, ok := f.orch.Conferences.Get("adhoc")
	require.True(t, ok)
	assert.True(t, c.Ephemeral())
	assert.True(t, c.IsModerator("alice"))

	f.orch.Disconnect(ctx, "c1")
	_, ok = f.orch.Conferences.Get("adhoc")
	assert.True(t, ok)

	f.orch.Disconnect(ctx, "c2")
	_, ok = f.orch.Conferences.Get("adhoc")
	assert.False(t, ok)
	_, ok = f.orch.Snapshot("adhoc")
	assert.False(t, ok)
	assert.Equal(t, []domain.ConferenceID{"adhoc"}, f.chat.deleted)

	// Operator conferences stay open when empty.
	f.connect(t, "c3", "alice")
	f.orch.Disconnect(ctx, "c3")
	_, ok = f.orch.Conferences.Get(conf)
	assert.True(t, ok)
}

func TestAdminRequests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.connect(t, "c-alice", "alice")

	require.NoError(t, f.orch.Recompute(ctx, conf, "alice"))
	require.NoError(t, f.orch.UpdateObject(ctx, conf, "participants"))
	assert.ErrorIs(t, f.orch.UpdateObject(ctx, conf, "bogus"), syncobj.ErrUnknownProvider)

	snap, ok := f.orch.Snapshot(conf)
	require.True(t, ok)
	assert.Len(t, snap.Subscriptions["alice"], 5)
}

func TestWhiteboards_FollowRoomMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.connect(t, "c-mod", "mod")
	f.connect(t, "c-alice", "alice")
	f.connect(t, "c-bob", "bob")
	room, err := f.orch.CreateRoom(ctx, conf, "mod", "Breakout")
	require.NoError(t, err)
	require.NoError(t, f.orch.MoveRoom(ctx, conf, "bob", "bob", room))

	_, err = f.orch.CreateWhiteboard(ctx, conf, "alice", "", "Mine")
	assert.ErrorIs(t, err, ErrForbidden)

	f.rec.reset()
	id, err := f.orch.CreateWhiteboard(ctx, conf, "mod", "", "Plan")
	require.NoError(t, err)
	board := providers.WhiteboardID(domain.DefaultRoomID, id).String()
	assert.Contains(t, f.rec.updatedIDs("mod"), board)
	assert.Contains(t, f.rec.updatedIDs("alice"), board)
	assert.NotContains(t, f.rec.updatedIDs("bob"), board)

	f.rec.reset()
	patch := domain.WhiteboardPatch{Upsert: []domain.CanvasObject{{ID: "s1", Type: "stroke"}}}
	require.NoError(t, f.orch.UpdateWhiteboard(ctx, conf, "alice", "", id, patch))
	ups := f.rec.updates("mod")
	require.Len(t, ups, 1)
	assert.Equal(t, board, ups[0].ObjectID.String())
	wb := ups[0].Value.(domain.Whiteboard)
	assert.Equal(t, 1, wb.Version)
	assert.Len(t, wb.Objects, 1)
	assert.Empty(t, f.rec.updates("bob"))

	err = f.orch.UpdateWhiteboard(ctx, conf, "bob", domain.DefaultRoomID, id, patch)
	assert.ErrorIs(t, err, ErrForbidden)
	err = f.orch.UpdateWhiteboard(ctx, conf, "alice", "", "missing", patch)
	assert.ErrorIs(t, err, domain.ErrWhiteboardNotFound)

	assert.ErrorIs(t, f.orch.DeleteWhiteboard(ctx, conf, "alice", "", id), ErrForbidden)
	f.rec.reset()
	require.NoError(t, f.orch.DeleteWhiteboard(ctx, conf, "mod", "", id))
	assert.Equal(t, []string{board}, f.rec.removed("alice"))
	assert.Equal(t, []string{board}, f.rec.removed("mod"))
}

func TestWhiteboards_DroppedWithRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.connect(t, "c-mod", "mod")
	f.connect(t, "c-alice", "alice")
	room, err := f.orch.CreateRoom(ctx, conf, "mod", "Breakout")
	require.NoError(t, err)
	require.NoError(t, f.orch.MoveRoom(ctx, conf, "alice", "alice", room))

	id, err := f.orch.CreateWhiteboard(ctx, conf, "mod", room, "Plan")
	require.NoError(t, err)
	board := providers.WhiteboardID(room, id).String()
	assert.Contains(t, f.rec.updatedIDs("alice"), board)
	assert.NotContains(t, f.rec.updatedIDs("mod"), board)

	f.rec.reset()
	require.NoError(t, f.orch.RemoveRoom(ctx, conf, "mod", room))
	assert.ElementsMatch(t, []string{"chat:" + string(room), board}, f.rec.removed("alice"))
}
