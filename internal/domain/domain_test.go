package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewParticipant(t *testing.T) {
	p, err := NewParticipant("", "alice")
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, RoleParticipant, p.Role)
	assert.False(t, p.IsModerator())

	_, err = NewParticipant("x", "")
	assert.ErrorIs(t, err, ErrDisplayNameEmpty)
	_, err = NewParticipant("x", strings.Repeat("a", MaxDisplayNameLen+1))
	assert.ErrorIs(t, err, ErrDisplayNameTooLong)

	require.NoError(t, p.SetDisplayName("bob"))
	assert.Equal(t, "bob", p.DisplayName)
	assert.Error(t, p.SetDisplayName(""))
	assert.Equal(t, "bob", p.DisplayName)
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("moderator")
	require.NoError(t, err)
	assert.Equal(t, RoleModerator, r)
	_, err = ParseRole("admin")
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestNewChatMessage(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("x", 3600))
	m, err := NewChatMessage("c", DefaultRoomID, "p", "  hi  ", now)
	require.NoError(t, err)
	assert.Equal(t, "hi", m.Text)
	assert.Equal(t, time.UTC, m.Timestamp.Location())

	_, err = NewChatMessage("c", DefaultRoomID, "p", "   ", now)
	assert.ErrorIs(t, err, ErrMessageEmpty)
	_, err = NewChatMessage("c", DefaultRoomID, "p", strings.Repeat("x", MaxChatMessageLen+1), now)
	assert.ErrorIs(t, err, ErrMessageTooLong)
}

func TestPoll_Vote(t *testing.T) {
	_, err := NewPoll("q", []string{"only", " "}, false)
	require.ErrorIs(t, err, ErrPollTooFewOptions)

	p, err := NewPoll("Lunch?", []string{"pizza", "sushi"}, false)
	require.NoError(t, err)

	require.NoError(t, p.Vote("a", 0))
	require.NoError(t, p.Vote("a", 0))
	assert.ErrorIs(t, p.Vote("a", 1), ErrAnswerCannotBeChanged)
	assert.ErrorIs(t, p.Vote("b", 2), ErrInvalidAnswer)
	require.NoError(t, p.Vote("b", 1))
	assert.Equal(t, []int{1, 1}, p.Tally())

	p.Open = false
	assert.ErrorIs(t, p.Vote("c", 0), ErrPollClosed)
}

func TestPoll_AllowChange(t *testing.T) {
	p, err := NewPoll("q", []string{"a", "b"}, true)
	require.NoError(t, err)
	require.NoError(t, p.Vote("a", 0))
	require.NoError(t, p.Vote("a", 1))
	assert.Equal(t, []int{0, 1}, p.Tally())
}
