package tasks

import (
	"context"

	"github.com/lysyi3m/feed-posse/app/feed"
)

// TaskSchedulerInterface is what serve mode needs from the scheduler.
//
//	scheduler := NewScheduler(posse, checkInterval)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.Trigger()
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	Trigger() error
}

// Publisher turns one feed item into a published status.
type Publisher interface {
	Run(ctx context.Context, item feed.Item, feedLanguage string) (string, error)
}

// FeedSource fetches the raw feed document.
type FeedSource interface {
	Run(ctx context.Context, url string) ([]byte, error)
}
