package posse

import (
	"testing"
	"time"

	"github.com/lysyi3m/feed-posse/app/cache"
	"github.com/lysyi3m/feed-posse/app/feed"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func ms(t time.Time) *int64 {
	v := t.UnixMilli()
	return &v
}

func TestReconcilerMergePreservesPostHistory(t *testing.T) {
	reconciler := NewReconciler(Policy{PostsPerItem: 1, MinDelayBetweenSameItem: time.Hour})
	last := ms(testNow.Add(-time.Hour))
	c := cache.Cache{
		"https://example.com/1": {
			Item:              feed.Item{URL: "https://example.com/1", Title: "Old title"},
			Toots:             []string{"https://social.example/@me/1"},
			LastTootTimestamp: last,
		},
	}
	item := feed.Item{URL: "https://example.com/1", Title: "New title", ContentText: "New content"}

	// Merging the same item twice must not touch the managed fields
	for i := 0; i < 2; i++ {
		reconciler.Run(c, []feed.Item{item}, false, testNow)
	}

	entry := c["https://example.com/1"]
	if entry.Item.Title != "New title" || entry.Item.ContentText != "New content" {
		t.Errorf("Expected item fields to be refreshed, got %+v", entry.Item)
	}
	if len(entry.Toots) != 1 || entry.Toots[0] != "https://social.example/@me/1" {
		t.Errorf("Expected toots to be preserved, got %v", entry.Toots)
	}
	if entry.LastTootTimestamp == nil || *entry.LastTootTimestamp != *last {
		t.Errorf("Expected lastTootTimestamp to be preserved, got %v", entry.LastTootTimestamp)
	}
}

func TestReconcilerNewItemAlwaysEligible(t *testing.T) {
	reconciler := NewReconciler(Policy{PostsPerItem: 0, MinDelayBetweenSameItem: 1000 * time.Hour})
	c := cache.Cache{}

	eligible := reconciler.Run(c, []feed.Item{{URL: "https://example.com/new"}}, false, testNow)

	if _, ok := eligible["https://example.com/new"]; !ok {
		t.Error("Expected never posted item to be eligible")
	}
	if len(c["https://example.com/new"].Toots) != 0 {
		t.Error("Expected new entry to start without toots")
	}
}

func TestReconcilerIgnoreFirstRun(t *testing.T) {
	reconciler := NewReconciler(Policy{PostsPerItem: 3})
	c := cache.Cache{}
	items := []feed.Item{{URL: "https://example.com/1"}, {URL: "https://example.com/2"}}

	eligible := reconciler.Run(c, items, true, testNow)

	if len(eligible) != 0 {
		t.Errorf("Expected no eligible items on ignored first run, got %d", len(eligible))
	}
	for _, item := range items {
		entry := c[item.URL]
		if len(entry.Toots) != 1 || entry.Toots[0] != cache.FirstRunSentinel {
			t.Errorf("Expected sentinel toot for %s, got %v", item.URL, entry.Toots)
		}
		if entry.LastTootTimestamp == nil || *entry.LastTootTimestamp != testNow.UnixMilli() {
			t.Errorf("Expected timestamp now for %s, got %v", item.URL, entry.LastTootTimestamp)
		}
	}
}

func TestReconcilerBackfillsLegacyTimestamp(t *testing.T) {
	reconciler := NewReconciler(Policy{PostsPerItem: 2, MinDelayBetweenSameItem: time.Hour})
	c := cache.Cache{
		"https://example.com/1": {
			Item:  feed.Item{URL: "https://example.com/1"},
			Toots: []string{"https://social.example/@me/1"},
		},
	}

	eligible := reconciler.Run(c, []feed.Item{{URL: "https://example.com/1"}}, false, testNow)

	entry := c["https://example.com/1"]
	if entry.LastTootTimestamp == nil || *entry.LastTootTimestamp != testNow.UnixMilli() {
		t.Errorf("Expected backfilled timestamp, got %v", entry.LastTootTimestamp)
	}
	if len(eligible) != 0 {
		t.Error("Expected backfilled entry to wait for the same item delay")
	}
}

func TestReconcilerEligible(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		entry  cache.Entry
		want   bool
	}{
		{
			name:   "never posted",
			policy: Policy{PostsPerItem: 1, MinDelayBetweenSameItem: time.Hour},
			entry:  cache.Entry{Toots: []string{}},
			want:   true,
		},
		{
			name:   "toots without timestamp count as never posted",
			policy: Policy{PostsPerItem: 0},
			entry:  cache.Entry{Toots: []string{"a"}},
			want:   true,
		},
		{
			name:   "quota reached regardless of elapsed time",
			policy: Policy{PostsPerItem: 1, MinDelayBetweenSameItem: time.Minute},
			entry:  cache.Entry{Toots: []string{"a"}, LastTootTimestamp: ms(testNow.Add(-365 * 24 * time.Hour))},
			want:   false,
		},
		{
			name:   "under quota and stale",
			policy: Policy{PostsPerItem: 3, MinDelayBetweenSameItem: time.Hour},
			entry:  cache.Entry{Toots: []string{"a"}, LastTootTimestamp: ms(testNow.Add(-2 * time.Hour))},
			want:   true,
		},
		{
			name:   "under quota but posted recently",
			policy: Policy{PostsPerItem: 3, MinDelayBetweenSameItem: time.Hour},
			entry:  cache.Entry{Toots: []string{"a"}, LastTootTimestamp: ms(testNow.Add(-30 * time.Minute))},
			want:   false,
		},
		{
			name:   "delay elapsed exactly is not stale yet",
			policy: Policy{PostsPerItem: 3, MinDelayBetweenSameItem: time.Hour},
			entry:  cache.Entry{Toots: []string{"a"}, LastTootTimestamp: ms(testNow.Add(-time.Hour))},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reconciler := NewReconciler(tt.policy)
			entry := tt.entry
			if got := reconciler.Eligible(&entry, testNow); got != tt.want {
				t.Errorf("Expected eligible=%v, got %v", tt.want, got)
			}
		})
	}
}

func TestStaleEnoughComparator(t *testing.T) {
	last := testNow.Add(-time.Hour)

	if !staleEnough(nil, time.Hour, testNow) {
		t.Error("Expected missing timestamp to be stale")
	}
	if !staleEnough(ms(last), 59*time.Minute, testNow) {
		t.Error("Expected post older than the delay to be stale")
	}
	if staleEnough(ms(last), 61*time.Minute, testNow) {
		t.Error("Expected post younger than the delay not to be stale")
	}
}
