package posse

import (
	"log/slog"
	"time"

	"github.com/lysyi3m/feed-posse/app/cache"
	"github.com/lysyi3m/feed-posse/app/feed"
)

type Policy struct {
	PostsPerItem            int
	MinDelayBetweenSameItem time.Duration
}

// Reconciler merges feed items into the cache and decides which entries may
// be posted in this run.
type Reconciler struct {
	policy Policy
}

func NewReconciler(policy Policy) *Reconciler {
	return &Reconciler{policy: policy}
}

// Run merges items into c in place and returns the eligible entries keyed by
// url. With ignoreFirstRun every new item is recorded as already handled.
func (r *Reconciler) Run(c cache.Cache, items []feed.Item, ignoreFirstRun bool, now time.Time) map[string]*cache.Entry {
	eligible := make(map[string]*cache.Entry)
	newCount := 0

	for _, item := range items {
		entry, ok := c[item.URL]
		if ok {
			entry.Item = item
			// Legacy caches may hold toots without a timestamp
			if entry.LastTootTimestamp == nil && len(entry.Toots) > 0 {
				ms := now.UnixMilli()
				entry.LastTootTimestamp = &ms
			}
		} else {
			entry = &cache.Entry{Item: item, Toots: []string{}}
			c[item.URL] = entry
			newCount++

			if ignoreFirstRun {
				entry.RecordPost(cache.FirstRunSentinel, now)
				continue
			}
		}

		if r.Eligible(entry, now) {
			eligible[item.URL] = entry
		}
	}

	slog.Debug("Feed reconciled",
		"items", len(items),
		"new", newCount,
		"eligible", len(eligible),
		"ignore_first_run", ignoreFirstRun)

	return eligible
}

func (r *Reconciler) Eligible(entry *cache.Entry, now time.Time) bool {
	neverPosted := len(entry.Toots) == 0 || entry.LastTootTimestamp == nil
	if neverPosted {
		return true
	}

	underQuota := r.policy.PostsPerItem > len(entry.Toots)
	return underQuota && staleEnough(entry.LastTootTimestamp, r.policy.MinDelayBetweenSameItem, now)
}

// staleEnough reports whether the delay since the last post has fully elapsed.
func staleEnough(lastTootTimestamp *int64, delay time.Duration, now time.Time) bool {
	if lastTootTimestamp == nil {
		return true
	}
	return now.After(time.UnixMilli(*lastTootTimestamp).Add(delay))
}
