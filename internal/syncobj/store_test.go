package syncobj

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectStore_Lifecycle(t *testing.T) {
	s := NewObjectStore()
	id := NewObjectID("rooms")

	_, ok := s.Get(id)
	assert.False(t, ok)
	assert.False(t, s.AddSubscriber(id, p1), "cannot subscribe to an absent object")

	fetches := 0
	fetch := func() (Value, error) {
		fetches++
		return "v1", nil
	}
	v, isNew, err := s.Ensure(id, fetch)
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.Equal(t, "v1", v)
	require.True(t, s.AddSubscriber(id, p1))
	require.True(t, s.AddSubscriber(id, p2))

	v, isNew, err = s.Ensure(id, fetch)
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, "v1", v)
	assert.Equal(t, 1, fetches)

	require.True(t, s.SetValue(id, "v2"))
	obj, ok := s.Get(id)
	require.True(t, ok)
	assert.Equal(t, "v2", obj.Value)
	assert.Equal(t, []ParticipantID{p1, p2}, obj.SubscriberList())

	assert.False(t, s.RemoveSubscriber(id, p1))
	assert.True(t, s.RemoveSubscriber(id, p2))
	_, ok = s.Get(id)
	assert.False(t, ok)
	assert.False(t, s.SetValue(id, "v3"))
	assert.Zero(t, s.Len())
}

func TestObjectStore_EnsureFetchError(t *testing.T) {
	s := NewObjectStore()
	id := NewObjectID("rooms")

	_, _, err := s.Ensure(id, func() (Value, error) { return nil, errProviderDown })

	require.ErrorIs(t, err, errProviderDown)
	assert.Zero(t, s.Len())
}

func TestObjectStore_Clear(t *testing.T) {
	s := NewObjectStore()
	for _, id := range []ObjectID{NewObjectID("b"), WithParam("a", "1")} {
		_, _, err := s.Ensure(id, func() (Value, error) { return 1, nil })
		require.NoError(t, err)
		s.AddSubscriber(id, p1)
	}
	assert.Equal(t, []ObjectID{WithParam("a", "1"), NewObjectID("b")}, s.IDs())

	s.Clear()

	assert.Zero(t, s.Len())
}

func TestEqual(t *testing.T) {
	type poll struct {
		Question string
		Votes    map[string]int
	}
	assert.True(t, Equal("a", "a"))
	assert.False(t, Equal("a", "b"))
	assert.True(t, Equal(nil, nil))
	assert.True(t, Equal(
		poll{Question: "q", Votes: map[string]int{"x": 1, "y": 2}},
		poll{Question: "q", Votes: map[string]int{"y": 2, "x": 1}},
	))
	assert.False(t, Equal([]int{1, 2}, []int{2, 1}))
	assert.False(t, Equal(make(chan int), make(chan int)))
	ch := make(chan int)
	assert.True(t, Equal(ch, ch))
}

func TestEqual_UnencodableValueEqualsItself(t *testing.T) {
	type sample struct {
		Label string
		Level float64
	}
	assert.True(t, Equal(math.NaN(), math.NaN()))
	assert.True(t, Equal(sample{"a", math.NaN()}, sample{"a", math.NaN()}))
	assert.False(t, Equal(sample{"a", math.NaN()}, sample{"b", math.NaN()}))
	assert.False(t, Equal(math.NaN(), 1.0))
}

func TestUpdate_UnencodableValue_SendsOnce(t *testing.T) {
	e, prov, rec := setup(t)
	prov.allow(p1, obj1)
	join(t, e, p1)
	rec.reset()

	prov.set(obj1, math.NaN())
	require.NoError(t, e.PushUpdate(context.Background(), conf, obj1))
	require.NoError(t, e.PushUpdate(context.Background(), conf, obj1))

	assert.Len(t, rec.take(), 1)
}
