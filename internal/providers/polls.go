package providers

import (
	"context"
	"fmt"

	"github.com/dkeye/Conclave/internal/domain"
	"github.com/dkeye/Conclave/internal/syncobj"
)

// Polls publishes each poll's question and state to every participant.
type Polls struct {
	requiredParam
	conferences ConferenceLookup
}

func (*Polls) Key() string { return KeyPoll }

func (p *Polls) AvailableObjects(_ context.Context, conf syncobj.ConferenceID, participant syncobj.ParticipantID) ([]syncobj.ObjectID, error) {
	c, ok := p.conferences.Get(domain.ConferenceID(conf))
	if !ok {
		return nil, nil
	}
	if _, ok := c.Participant(domain.ParticipantID(participant)); !ok {
		return nil, nil
	}
	polls := c.Polls()
	out := make([]syncobj.ObjectID, 0, len(polls))
	for _, poll := range polls {
		out = append(out, PollID(poll.ID))
	}
	return out, nil
}

func (p *Polls) FetchValue(_ context.Context, conf syncobj.ConferenceID, id syncobj.ObjectID) (syncobj.Value, error) {
	c, err := lookup(p.conferences, conf)
	if err != nil {
		return nil, err
	}
	poll, ok := c.Poll(domain.PollID(id.Param))
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, domain.ErrPollNotFound)
	}
	return PollValue{
		ID:               poll.ID,
		Question:         poll.Question,
		Options:          poll.Options,
		Open:             poll.Open,
		ResultsPublished: poll.ResultsPublished,
		Responses:        poll.Responses,
	}, nil
}

type PollValue struct {
	ID               domain.PollID `json:"id"`
	Question         string        `json:"question"`
	Options          []string      `json:"options"`
	Open             bool          `json:"open"`
	ResultsPublished bool          `json:"resultsPublished"`
	Responses        int           `json:"responses"`
}

// PollResults publishes tallies. Moderators always see them; everybody else
// once the results are published.
type PollResults struct {
	requiredParam
	conferences ConferenceLookup
}

func (*PollResults) Key() string { return KeyPollResults }

func (p *PollResults) AvailableObjects(_ context.Context, conf syncobj.ConferenceID, participant syncobj.ParticipantID) ([]syncobj.ObjectID, error) {
	c, ok := p.conferences.Get(domain.ConferenceID(conf))
	if !ok {
		return nil, nil
	}
	view, ok := c.Participant(domain.ParticipantID(participant))
	if !ok {
		return nil, nil
	}
	seesAll := view.Role.Has(domain.PermPollSeeResults)
	var out []syncobj.ObjectID
	for _, poll := range c.Polls() {
		if seesAll || poll.ResultsPublished {
			out = append(out, PollResultsID(poll.ID))
		}
	}
	return out, nil
}

func (p *PollResults) FetchValue(_ context.Context, conf syncobj.ConferenceID, id syncobj.ObjectID) (syncobj.Value, error) {
	c, err := lookup(p.conferences, conf)
	if err != nil {
		return nil, err
	}
	poll, ok := c.Poll(domain.PollID(id.Param))
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, domain.ErrPollNotFound)
	}
	return PollResultsValue{ID: poll.ID, Tally: poll.Tally, Responses: poll.Responses}, nil
}

type PollResultsValue struct {
	ID        domain.PollID `json:"id"`
	Tally     []int         `json:"tally"`
	Responses int           `json:"responses"`
}
