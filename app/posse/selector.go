package posse

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/lysyi3m/feed-posse/app/cache"
	"github.com/lysyi3m/feed-posse/app/failure"
)

type Strategy string

const (
	StrategyOldest Strategy = "oldest"
	StrategyNewest Strategy = "newest"
	StrategyLatest Strategy = "latest"
	StrategyRandom Strategy = "random"
)

func ParseStrategy(value string) (Strategy, error) {
	switch strategy := Strategy(strings.ToLower(strings.TrimSpace(value))); strategy {
	case StrategyOldest, StrategyNewest, StrategyLatest, StrategyRandom:
		return strategy, nil
	default:
		return "", failure.New(failure.KindConfig, "invalid item selection strategy",
			fmt.Errorf("unknown value %q, expected one of oldest, newest, latest, random", value))
	}
}

type Selector struct {
	strategy Strategy
	intN     func(n int) int
}

// NewSelector accepts the strategies ParseStrategy yields and rejects any
// other value with a config error.
func NewSelector(strategy Strategy) (*Selector, error) {
	parsed, err := ParseStrategy(string(strategy))
	if err != nil {
		return nil, err
	}
	if parsed != strategy {
		return nil, failure.New(failure.KindConfig, "invalid item selection strategy",
			fmt.Errorf("strategy %q is not normalized, expected %q", strategy, parsed))
	}

	return &Selector{
		strategy: strategy,
		intN:     rand.IntN,
	}, nil
}

// Run picks the entry to publish, or nil when nothing is eligible.
func (s *Selector) Run(eligible map[string]*cache.Entry) *cache.Entry {
	candidates := Candidates(eligible)
	if len(candidates) == 0 {
		return nil
	}

	switch s.strategy {
	case StrategyOldest:
		return candidates[len(candidates)-1]
	case StrategyNewest, StrategyLatest:
		return candidates[0]
	case StrategyRandom:
		return candidates[s.intN(len(candidates))]
	default:
		return nil
	}
}

// Candidates keeps the least posted entries and orders them most recent first.
// Undated entries sort last, ties are broken by url.
func Candidates(eligible map[string]*cache.Entry) []*cache.Entry {
	if len(eligible) == 0 {
		return nil
	}

	minPostCount := -1
	for _, entry := range eligible {
		if minPostCount == -1 || entry.PostCount() < minPostCount {
			minPostCount = entry.PostCount()
		}
	}

	candidates := make([]*cache.Entry, 0, len(eligible))
	for _, entry := range eligible {
		if entry.PostCount() == minPostCount {
			candidates = append(candidates, entry)
		}
	}

	slices.SortFunc(candidates, func(a, b *cache.Entry) int {
		aTime, aOK := a.Item.PublishedAt()
		bTime, bOK := b.Item.PublishedAt()
		switch {
		case aOK && !bOK:
			return -1
		case !aOK && bOK:
			return 1
		case aOK && bOK && !aTime.Equal(bTime):
			return bTime.Compare(aTime)
		}
		return strings.Compare(a.Item.URL, b.Item.URL)
	})

	return candidates
}
