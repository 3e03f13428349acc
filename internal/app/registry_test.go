package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Conclave/internal/core"
)

func TestRegistry_ConnectionCounting(t *testing.T) {
	r := NewRegistry()
	alice := core.NewMemberSession("c1", "alice")

	assert.True(t, r.Bind("x1", alice, nil))
	assert.False(t, r.Bind("x2", alice, nil))
	assert.True(t, r.Bind("y1", core.NewMemberSession("c1", "bob"), nil))
	assert.True(t, r.Bind("z1", core.NewMemberSession("c2", "alice"), nil))
	assert.Equal(t, 2, r.ConnectionCount("c1", "alice"))

	snaps := r.SessionsOf("c1", "alice")
	require.Len(t, snaps, 2)
	assert.Equal(t, core.ConnectionID("x1"), snaps[0].CID)
	assert.Len(t, r.MembersOfConference("c1"), 3)

	_, last, ok := r.Unbind("x1")
	require.True(t, ok)
	assert.False(t, last)
	sess, last, ok := r.Unbind("x2")
	require.True(t, ok)
	assert.True(t, last)
	assert.Same(t, alice, sess)

	_, _, ok = r.Unbind("x2")
	assert.False(t, ok)
}

func TestRegistry_Cancel(t *testing.T) {
	r := NewRegistry()
	called := false
	r.Bind("x1", core.NewMemberSession("c1", "alice"), func() { called = true })
	assert.True(t, r.Cancel("x1"))
	assert.True(t, called)
	assert.False(t, r.Cancel("nope"))

	_, ok := r.GetSession("x1")
	assert.True(t, ok)
}
