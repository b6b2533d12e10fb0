package tasks

import (
	"fmt"
	"sync"
	"time"
)

type Status string

const (
	StatusTooSoon      Status = "too_soon"
	StatusNothingToDo  Status = "nothing_to_do"
	StatusBootstrapped Status = "bootstrapped"
	StatusPosted       Status = "posted"
)

// Result describes what a run did. ItemURL and PostURL are only set for
// StatusPosted; NextRunAt only for StatusTooSoon.
type Result struct {
	Status     Status    `json:"status"`
	At         time.Time `json:"at"`
	Items      int       `json:"items"`
	Eligible   int       `json:"eligible"`
	ItemURL    string    `json:"item_url,omitempty"`
	PostURL    string    `json:"post_url,omitempty"`
	MediaCount int       `json:"media_count,omitempty"`
	NextRunAt  time.Time `json:"next_run_at,omitzero"`
}

func (r Result) Message() string {
	switch r.Status {
	case StatusPosted:
		return r.PostURL
	case StatusTooSoon:
		return fmt.Sprintf("Too soon since the last post, next run at %s", r.NextRunAt.UTC().Format(time.RFC3339))
	case StatusBootstrapped:
		return fmt.Sprintf("First run ignored, %d items cached without posting", r.Items)
	default:
		return "Nothing to do"
	}
}

// RunStatus is a snapshot of the most recent runs, served by the status API.
type RunStatus struct {
	Runs        int       `json:"runs"`
	Failures    int       `json:"failures"`
	LastRunAt   time.Time `json:"last_run_at,omitzero"`
	LastResult  *Result   `json:"last_result,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
	LastPostURL string    `json:"last_post_url,omitempty"`
	LastPostAt  time.Time `json:"last_post_at,omitzero"`
}

type Tracker struct {
	mu     sync.RWMutex
	status RunStatus
}

func NewTracker() *Tracker {
	return &Tracker{}
}

func (t *Tracker) Record(result Result, err error, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status.Runs++
	t.status.LastRunAt = at

	if err != nil {
		t.status.Failures++
		t.status.LastError = err.Error()
		t.status.LastResult = nil
		return
	}

	t.status.LastError = ""
	t.status.LastResult = &result
	if result.Status == StatusPosted {
		t.status.LastPostURL = result.PostURL
		t.status.LastPostAt = result.At
	}
}

func (t *Tracker) Snapshot() RunStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	status := t.status
	if status.LastResult != nil {
		last := *status.LastResult
		status.LastResult = &last
	}
	return status
}
