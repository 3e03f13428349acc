package domain

import (
	"encoding/json"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWhiteboard(t *testing.T) {
	wb, err := NewWhiteboard(DefaultRoomID, "  Sketch ")
	require.NoError(t, err)
	assert.NotEmpty(t, wb.ID)
	assert.Equal(t, "Sketch", wb.Name)
	assert.NotNil(t, wb.Objects)
	assert.Zero(t, wb.Version)

	_, err = NewWhiteboard(DefaultRoomID, " ")
	assert.ErrorIs(t, err, ErrWhiteboardNameEmpty)
	_, err = NewWhiteboard(DefaultRoomID, strings.Repeat("w", MaxWhiteboardNameLen+1))
	assert.ErrorIs(t, err, ErrWhiteboardNameTooLong)
}

func TestWhiteboard_Apply(t *testing.T) {
	wb, err := NewWhiteboard(DefaultRoomID, "Sketch")
	require.NoError(t, err)

	require.NoError(t, wb.Apply(WhiteboardPatch{Upsert: []CanvasObject{
		{ID: "a", Type: "line", Data: json.RawMessage(`{"w":1}`)},
		{ID: "b", Type: "rect"},
	}}))
	assert.Equal(t, 1, wb.Version)

	require.NoError(t, wb.Apply(WhiteboardPatch{
		Upsert: []CanvasObject{{ID: "a", Type: "line", Data: json.RawMessage(`{"w":2}`)}, {ID: "c", Type: "text"}},
		Remove: []string{"b"},
	}))
	require.Len(t, wb.Objects, 2)
	assert.Equal(t, "a", wb.Objects[0].ID)
	assert.JSONEq(t, `{"w":2}`, string(wb.Objects[0].Data))
	assert.Equal(t, "c", wb.Objects[1].ID)
	assert.Equal(t, 2, wb.Version)
}

func TestWhiteboard_ApplyRejectsWithoutChange(t *testing.T) {
	wb, err := NewWhiteboard(DefaultRoomID, "Sketch")
	require.NoError(t, err)
	require.NoError(t, wb.Apply(WhiteboardPatch{Upsert: []CanvasObject{{ID: "a", Type: "line"}}}))

	cases := map[string]struct {
		patch WhiteboardPatch
		err   error
	}{
		"empty":         {WhiteboardPatch{}, ErrWhiteboardPatchEmpty},
		"missing":       {WhiteboardPatch{Upsert: []CanvasObject{{ID: "x", Type: "line"}}, Remove: []string{"nope"}}, ErrCanvasObjectNotFound},
		"no type":       {WhiteboardPatch{Upsert: []CanvasObject{{ID: "x"}}}, ErrCanvasObjectInvalid},
		"both":          {WhiteboardPatch{Upsert: []CanvasObject{{ID: "a", Type: "line"}}, Remove: []string{"a"}}, ErrWhiteboardPatchOverlap},
		"invalid later": {WhiteboardPatch{Upsert: []CanvasObject{{ID: "y", Type: "line"}, {ID: ""}}}, ErrCanvasObjectInvalid},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, wb.Apply(tc.patch), tc.err)
			require.Len(t, wb.Objects, 1)
			assert.Equal(t, "a", wb.Objects[0].ID)
			assert.Equal(t, 1, wb.Version)
		})
	}
}

func TestWhiteboard_ApplyLimit(t *testing.T) {
	wb, err := NewWhiteboard(DefaultRoomID, "Sketch")
	require.NoError(t, err)
	objs := make([]CanvasObject, MaxCanvasObjects)
	for i := range objs {
		objs[i] = CanvasObject{ID: "o" + strconv.Itoa(i), Type: "dot"}
	}
	require.NoError(t, wb.Apply(WhiteboardPatch{Upsert: objs}))
	assert.ErrorIs(t, wb.Apply(WhiteboardPatch{Upsert: []CanvasObject{{ID: "extra", Type: "dot"}}}), ErrWhiteboardFull)
	assert.NoError(t, wb.Apply(WhiteboardPatch{
		Upsert: []CanvasObject{{ID: "extra", Type: "dot"}},
		Remove: []string{objs[0].ID},
	}))
}

func TestWhiteboard_CloneIsDeep(t *testing.T) {
	wb, err := NewWhiteboard(DefaultRoomID, "Sketch")
	require.NoError(t, err)
	require.NoError(t, wb.Apply(WhiteboardPatch{Upsert: []CanvasObject{{ID: "a", Type: "line", Data: json.RawMessage(`[1]`)}}}))

	cp := wb.Clone()
	cp.Objects[0].Data[1] = '2'
	cp.Objects[0].Type = "rect"
	assert.Equal(t, `[1]`, string(wb.Objects[0].Data))
	assert.Equal(t, "line", wb.Objects[0].Type)
}
