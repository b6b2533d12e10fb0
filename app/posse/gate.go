package posse

import (
	"time"

	"github.com/lysyi3m/feed-posse/app/cache"
)

// Gate rate limits whole runs on the timestamp of the last successful post.
type Gate struct {
	minInterval time.Duration
}

func NewGate(minInterval time.Duration) *Gate {
	return &Gate{minInterval: minInterval}
}

func (g *Gate) NextRunAt(state cache.RunState) time.Time {
	return time.UnixMilli(state.Timestamp).Add(g.minInterval)
}

func (g *Gate) Allows(state cache.RunState, now time.Time) bool {
	return !now.Before(g.NextRunAt(state))
}
