package signal

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/dkeye/Conclave/internal/domain"
)

type joinKey struct {
	conference  domain.ConferenceID
	participant domain.ParticipantID
}

// JoinRateLimiter bounds how often one participant may open a connection
// to a conference: limit joins per interval, refilled evenly.
type JoinRateLimiter struct {
	mu       sync.Mutex
	limiters map[joinKey]*rate.Limiter
	every    rate.Limit
	burst    int
	now      func() time.Time
}

// NewJoinRateLimiter returns a limiter; a non-positive limit disables it.
func NewJoinRateLimiter(limit int, interval time.Duration) *JoinRateLimiter {
	rl := &JoinRateLimiter{
		limiters: make(map[joinKey]*rate.Limiter),
		burst:    limit,
		now:      time.Now,
	}
	if limit > 0 && interval > 0 {
		rl.every = rate.Every(interval / time.Duration(limit))
	} else {
		rl.every = rate.Inf
	}
	return rl
}

func (rl *JoinRateLimiter) Allow(conf domain.ConferenceID, p domain.ParticipantID) bool {
	if rl.burst <= 0 {
		return true
	}
	key := joinKey{conf, p}
	rl.mu.Lock()
	lim, ok := rl.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rl.every, rl.burst)
		rl.limiters[key] = lim
	}
	rl.mu.Unlock()
	return lim.AllowN(rl.now(), 1)
}

// Prune drops limiters that have refilled completely; they behave exactly
// like fresh ones. It returns the number dropped.
func (rl *JoinRateLimiter) Prune() int {
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()
	n := 0
	for key, lim := range rl.limiters {
		if lim.TokensAt(now) >= float64(rl.burst) {
			delete(rl.limiters, key)
			n++
		}
	}
	return n
}

// Run prunes every interval until ctx is done.
func (rl *JoinRateLimiter) Run(ctx context.Context, interval time.Duration) {
	if rl.burst <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := rl.Prune(); n > 0 {
				log.Debug().Str("module", "signal").Int("pruned", n).Msg("join limiters pruned")
			}
		}
	}
}

func (rl *JoinRateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}
