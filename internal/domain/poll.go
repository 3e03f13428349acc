package domain

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrPollNotFound          = errors.New("poll not found")
	ErrPollClosed            = errors.New("poll closed")
	ErrInvalidAnswer         = errors.New("invalid answer")
	ErrAnswerCannotBeChanged = errors.New("answer already submitted and cannot be changed")
	ErrPollQuestionEmpty     = errors.New("poll question empty")
	ErrPollTooFewOptions     = errors.New("poll needs at least two options")
)

type PollID string

// Poll is a single-choice poll. Results stay hidden from non-moderators
// until they are published.
type Poll struct {
	ID               PollID                `json:"id"`
	Question         string                `json:"question"`
	Options          []string              `json:"options"`
	Open             bool                  `json:"open"`
	ResultsPublished bool                  `json:"resultsPublished"`
	AllowChange      bool                  `json:"allowChange"`
	Answers          map[ParticipantID]int `json:"-"`
}

func NewPoll(question string, options []string, allowChange bool) (*Poll, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrPollQuestionEmpty
	}
	clean := make([]string, 0, len(options))
	for _, o := range options {
		if o = strings.TrimSpace(o); o != "" {
			clean = append(clean, o)
		}
	}
	if len(clean) < 2 {
		return nil, ErrPollTooFewOptions
	}
	return &Poll{
		ID:          PollID(uuid.NewString()),
		Question:    question,
		Options:     clean,
		Open:        true,
		AllowChange: allowChange,
		Answers:     make(map[ParticipantID]int),
	}, nil
}

func (p *Poll) Vote(participant ParticipantID, option int) error {
	if !p.Open {
		return ErrPollClosed
	}
	if option < 0 || option >= len(p.Options) {
		return ErrInvalidAnswer
	}
	if prev, ok := p.Answers[participant]; ok && !p.AllowChange && prev != option {
		return ErrAnswerCannotBeChanged
	}
	p.Answers[participant] = option
	return nil
}

// Tally counts answers per option index.
func (p *Poll) Tally() []int {
	out := make([]int, len(p.Options))
	for _, opt := range p.Answers {
		out[opt]++
	}
	return out
}
