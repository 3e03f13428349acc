package providers

import (
	"context"
	"fmt"

	"github.com/dkeye/Conclave/internal/domain"
	"github.com/dkeye/Conclave/internal/syncobj"
)

// Permissions publishes to each participant its own role and permissions.
// The parameter is the participant id; nobody else can see it.
type Permissions struct {
	requiredParam
	conferences ConferenceLookup
}

func (*Permissions) Key() string { return KeyPermissions }

func (p *Permissions) AvailableObjects(_ context.Context, conf syncobj.ConferenceID, participant syncobj.ParticipantID) ([]syncobj.ObjectID, error) {
	if !isMember(p.conferences, conf, participant) {
		return nil, nil
	}
	return []syncobj.ObjectID{PermissionsID(domain.ParticipantID(participant))}, nil
}

func (p *Permissions) FetchValue(_ context.Context, conf syncobj.ConferenceID, id syncobj.ObjectID) (syncobj.Value, error) {
	c, err := lookup(p.conferences, conf)
	if err != nil {
		return nil, err
	}
	view, ok := c.Participant(domain.ParticipantID(id.Param))
	if !ok {
		return nil, fmt.Errorf("permissions of %s: participant not in conference", id.Param)
	}
	return PermissionsValue{Role: view.Role, Permissions: domain.PermissionsOf(view.Role)}, nil
}

type PermissionsValue struct {
	Role        domain.Role         `json:"role"`
	Permissions []domain.Permission `json:"permissions"`
}
