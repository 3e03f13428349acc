package syncobj

import (
	"context"
	"fmt"
)

// Value is an opaque provider payload. It must be JSON-serializable; two
// values are equal iff their canonical JSON encodings are equal.
type Value = any

// Provider owns one class of synchronized objects.
// AvailableObjects must not have side effects; it is called on every
// recompute.
type Provider interface {
	Key() string
	AvailableObjects(ctx context.Context, conference ConferenceID, participant ParticipantID) ([]ObjectID, error)
	FetchValue(ctx context.Context, conference ConferenceID, id ObjectID) (Value, error)
}

// ParamValidator is implemented by providers that restrict the parameter
// part of their ids.
type ParamValidator interface {
	ValidateParam(param string) error
}

// Registry maps provider keys to providers. It is built once at startup and
// read-only afterwards.
type Registry struct {
	byKey map[string]Provider
	order []Provider
}

// NewRegistry panics on an empty or duplicate key.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{
		byKey: make(map[string]Provider, len(providers)),
		order: make([]Provider, 0, len(providers)),
	}
	for _, p := range providers {
		key := p.Key()
		if key == "" {
			panic("syncobj: provider with empty key")
		}
		if _, dup := r.byKey[key]; dup {
			panic(fmt.Sprintf("syncobj: duplicate provider key %q", key))
		}
		r.byKey[key] = p
		r.order = append(r.order, p)
	}
	return r
}

func (r *Registry) Get(key string) (Provider, bool) {
	p, ok := r.byKey[key]
	return p, ok
}

// MustGet is for ids that already passed through Parse or came from a
// provider; a miss is a programming error.
func (r *Registry) MustGet(key string) Provider {
	p, ok := r.byKey[key]
	if !ok {
		panic(fmt.Sprintf("syncobj: %v: %q", ErrUnknownProvider, key))
	}
	return p
}

// Providers returns providers in registration order.
func (r *Registry) Providers() []Provider {
	out := make([]Provider, len(r.order))
	copy(out, r.order)
	return out
}

// Parse parses the external id form and checks it against the registered
// providers.
func (r *Registry) Parse(s string) (ObjectID, error) {
	id, err := ParseObjectID(s)
	if err != nil {
		return ObjectID{}, err
	}
	if err := r.Validate(id); err != nil {
		return ObjectID{}, err
	}
	return id, nil
}

func (r *Registry) Validate(id ObjectID) error {
	p, ok := r.byKey[id.Key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProvider, id.Key)
	}
	if v, ok := p.(ParamValidator); ok {
		if err := v.ValidateParam(id.Param); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidParam, id, err)
		}
	}
	return nil
}
