package cache

import (
	"encoding/json"
	"time"

	"github.com/lysyi3m/feed-posse/app/feed"
)

// FirstRunSentinel marks an item recorded during a first-run bootstrap
// instead of a real post URL.
const FirstRunSentinel = "first-run-ignored"

const (
	keyToots             = "toots"
	keyLastTootTimestamp = "lastTootTimestamp"
)

// Entry is the cached state of one feed item: the latest feed snapshot plus
// the posts the bot made for it.
type Entry struct {
	Item              feed.Item
	Toots             []string
	LastTootTimestamp *int64 // epoch milliseconds
}

// Cache maps item url to entry. Keys are never removed.
type Cache map[string]*Entry

// RunState records the last successful post of any item.
type RunState struct {
	Timestamp int64 `json:"timestamp"` // epoch milliseconds
}

func (e *Entry) PostCount() int {
	return len(e.Toots)
}

// RecordPost appends a post URL (or the first-run sentinel) and stamps the entry.
func (e *Entry) RecordPost(postURL string, now time.Time) {
	e.Toots = append(e.Toots, postURL)
	ms := now.UnixMilli()
	e.LastTootTimestamp = &ms
}

func (e *Entry) LastPostAt() (time.Time, bool) {
	if e.LastTootTimestamp == nil {
		return time.Time{}, false
	}
	return time.UnixMilli(*e.LastTootTimestamp), true
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var managed struct {
		Toots             []string `json:"toots"`
		LastTootTimestamp *int64   `json:"lastTootTimestamp"`
	}
	if err := json.Unmarshal(data, &managed); err != nil {
		return err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	delete(fields, keyToots)
	delete(fields, keyLastTootTimestamp)

	itemData, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	var item feed.Item
	if err := json.Unmarshal(itemData, &item); err != nil {
		return err
	}

	e.Item = item
	e.Toots = managed.Toots
	e.LastTootTimestamp = managed.LastTootTimestamp
	return nil
}

func (e Entry) MarshalJSON() ([]byte, error) {
	itemData, err := json.Marshal(e.Item)
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(itemData, &fields); err != nil {
		return nil, err
	}

	toots := e.Toots
	if toots == nil {
		toots = []string{}
	}
	if fields[keyToots], err = json.Marshal(toots); err != nil {
		return nil, err
	}
	if e.LastTootTimestamp != nil {
		if fields[keyLastTootTimestamp], err = json.Marshal(*e.LastTootTimestamp); err != nil {
			return nil, err
		}
	}

	return json.Marshal(fields)
}
