package posse

import (
	"testing"
	"time"

	"github.com/lysyi3m/feed-posse/app/cache"
)

func TestGateAllows(t *testing.T) {
	last := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	state := cache.RunState{Timestamp: last.UnixMilli()}
	gate := NewGate(30 * time.Minute)

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"too soon", last.Add(10 * time.Minute), false},
		{"just before", last.Add(30*time.Minute - time.Millisecond), false},
		{"exactly at interval", last.Add(30 * time.Minute), true},
		{"later", last.Add(2 * time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := gate.Allows(state, tt.now); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestGateAllowsWithoutState(t *testing.T) {
	gate := NewGate(24 * time.Hour)
	if !gate.Allows(cache.RunState{}, time.Now()) {
		t.Error("Expected a run to be allowed when no post was ever made")
	}
}
