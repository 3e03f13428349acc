package orch

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Conclave/internal/domain"
	"github.com/dkeye/Conclave/internal/providers"
)

// CreatePoll opens a poll. Every participant gains its object, moderators
// also its results.
func (o *Orchestrator) CreatePoll(ctx context.Context, conf domain.ConferenceID, actor domain.ParticipantID, question string, options []string, allowChange bool) (domain.PollID, error) {
	c, err := o.conference(conf)
	if err != nil {
		return "", err
	}
	if err := authorize(c, actor, domain.PermPollManage); err != nil {
		return "", err
	}
	poll, err := domain.NewPoll(question, options, allowChange)
	if err != nil {
		return "", err
	}
	c.AddPoll(poll)
	o.recomputeAll(ctx, c)
	log.Info().Str("module", "orch").Str("conference", string(conf)).Str("poll", string(poll.ID)).Msg("poll created")
	return poll.ID, nil
}

func (o *Orchestrator) Vote(ctx context.Context, conf domain.ConferenceID, voter domain.ParticipantID, id domain.PollID, option int) error {
	c, err := o.conference(conf)
	if err != nil {
		return err
	}
	if err := authorize(c, voter, domain.PermPollVote); err != nil {
		return err
	}
	err = c.UpdatePoll(id, func(p *domain.Poll) error {
		return p.Vote(voter, option)
	})
	if err != nil {
		return err
	}
	o.push(ctx, conf, providers.PollID(id), providers.PollResultsID(id))
	return nil
}

// ClosePoll stops voting. With publish set the results become visible to
// everyone.
func (o *Orchestrator) ClosePoll(ctx context.Context, conf domain.ConferenceID, actor domain.ParticipantID, id domain.PollID, publish bool) error {
	c, err := o.conference(conf)
	if err != nil {
		return err
	}
	if err := authorize(c, actor, domain.PermPollManage); err != nil {
		return err
	}
	published := false
	err = c.UpdatePoll(id, func(p *domain.Poll) error {
		p.Open = false
		if publish && !p.ResultsPublished {
			p.ResultsPublished = true
			published = true
		}
		return nil
	})
	if err != nil {
		return err
	}
	o.push(ctx, conf, providers.PollID(id), providers.PollResultsID(id))
	if published {
		o.recomputeAll(ctx, c)
	}
	return nil
}

// DeletePoll removes a poll and its objects from every participant.
func (o *Orchestrator) DeletePoll(ctx context.Context, conf domain.ConferenceID, actor domain.ParticipantID, id domain.PollID) error {
	c, err := o.conference(conf)
	if err != nil {
		return err
	}
	if err := authorize(c, actor, domain.PermPollManage); err != nil {
		return err
	}
	if err := c.RemovePoll(id); err != nil {
		return err
	}
	o.recomputeAll(ctx, c)
	return nil
}
