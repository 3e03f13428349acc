// Package syncobj distributes conference-scoped synchronized objects to the
// participants currently authorized to see them.
//
// Each conference owns an ObjectStore (cached value + subscriber set per
// object) and a subscription record per participant. Both views of the
// subscription relation are mutated together under the conference's lock;
// different conferences never share a lock.
package syncobj

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformedID     = errors.New("malformed synchronized object id")
	ErrUnknownProvider = errors.New("unknown provider key")
	ErrInvalidParam    = errors.New("invalid synchronized object parameter")
)

const paramSeparator = ":"

type (
	ConferenceID  string
	ParticipantID string
)

// ObjectID identifies a synchronized object: a provider key plus an optional
// parameter. The zero Param means "no parameter".
type ObjectID struct {
	Key   string
	Param string
}

// NewObjectID is a helper for ids without a parameter.
func NewObjectID(key string) ObjectID { return ObjectID{Key: key} }

// WithParam returns the id of key parameterized by param.
func WithParam(key, param string) ObjectID { return ObjectID{Key: key, Param: param} }

func (id ObjectID) HasParam() bool { return id.Param != "" }

// String returns the external form: "key" or "key:param".
func (id ObjectID) String() string {
	if id.Param == "" {
		return id.Key
	}
	return id.Key + paramSeparator + id.Param
}

// ParseObjectID parses the external form without checking the key against a
// registry. Use Registry.Parse for request-time input.
func ParseObjectID(s string) (ObjectID, error) {
	key, param, hasParam := strings.Cut(s, paramSeparator)
	if key == "" {
		return ObjectID{}, fmt.Errorf("%w: %q: empty key", ErrMalformedID, s)
	}
	if hasParam && param == "" {
		return ObjectID{}, fmt.Errorf("%w: %q: empty parameter", ErrMalformedID, s)
	}
	return ObjectID{Key: key, Param: param}, nil
}

func (id ObjectID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *ObjectID) UnmarshalText(b []byte) error {
	parsed, err := ParseObjectID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
