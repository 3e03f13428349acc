package syncobj

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseObjectID(t *testing.T) {
	tests := []struct {
		in      string
		want    ObjectID
		wantErr bool
	}{
		{in: "participants", want: ObjectID{Key: "participants"}},
		{in: "chat:room-1", want: ObjectID{Key: "chat", Param: "room-1"}},
		{in: "poll:a:b", want: ObjectID{Key: "poll", Param: "a:b"}},
		{in: "", wantErr: true},
		{in: ":x", wantErr: true},
		{in: "chat:", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseObjectID(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrMalformedID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, got.String())
		})
	}
}

func TestObjectID_Equality(t *testing.T) {
	assert.Equal(t, WithParam("chat", "r"), ObjectID{Key: "chat", Param: "r"})
	assert.NotEqual(t, WithParam("chat", "r"), NewObjectID("chat"))
}

func TestObjectID_JSON(t *testing.T) {
	b, err := json.Marshal(map[string]ObjectID{"id": WithParam("chat", "r1")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"chat:r1"}`, string(b))

	var out struct {
		ID ObjectID `json:"id"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"id":"poll:7"}`), &out))
	assert.Equal(t, WithParam("poll", "7"), out.ID)
}

type paramProvider struct{ *fakeProvider }

func (paramProvider) ValidateParam(param string) error {
	if param == "" {
		return errors.New("parameter required")
	}
	return nil
}

func TestRegistry_Parse(t *testing.T) {
	chat := paramProvider{newFakeProvider("chat")}
	reg := NewRegistry(newFakeProvider("rooms"), chat)

	id, err := reg.Parse("chat:r1")
	require.NoError(t, err)
	assert.Equal(t, WithParam("chat", "r1"), id)

	_, err = reg.Parse("chat")
	require.ErrorIs(t, err, ErrInvalidParam)

	_, err = reg.Parse("whiteboard:1")
	require.ErrorIs(t, err, ErrUnknownProvider)

	_, err = reg.Parse("rooms:")
	require.ErrorIs(t, err, ErrMalformedID)
}

func TestRegistry_StableOrder(t *testing.T) {
	reg := NewRegistry(newFakeProvider("b"), newFakeProvider("a"), newFakeProvider("c"))

	var keys []string
	for _, p := range reg.Providers() {
		keys = append(keys, p.Key())
	}
	assert.Equal(t, []string{"b", "a", "c"}, keys)
}

func TestRegistry_FailsFast(t *testing.T) {
	assert.Panics(t, func() { NewRegistry(newFakeProvider("a"), newFakeProvider("a")) })
	assert.Panics(t, func() { NewRegistry(newFakeProvider("")) })
	assert.Panics(t, func() { NewRegistry().MustGet("a") })
}

func TestRegistry_ProvidersIsACopy(t *testing.T) {
	reg := NewRegistry(newFakeProvider("a"))
	ps := reg.Providers()
	ps[0] = newFakeProvider("z")

	p, ok := reg.Get("a")
	require.True(t, ok)
	_, err := p.AvailableObjects(context.Background(), conf, p1)
	assert.NoError(t, err)
	assert.Equal(t, "a", reg.Providers()[0].Key())
}
