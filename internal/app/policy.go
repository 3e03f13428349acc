package app

import "github.com/dkeye/Conclave/internal/core"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropMessage
	KickConnection
)

// Policy decides what happens to a connection whose outbound queue is full.
type Policy interface {
	OnBackPressure(sess core.MemberSession) BackpressureAction
}

// SimplePolicy disconnects slow consumers. Updates are never dropped
// silently; a reconnecting client gets every value again on join.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(core.MemberSession) BackpressureAction {
	return KickConnection
}
