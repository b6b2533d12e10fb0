package api

import (
	"github.com/lysyi3m/feed-posse/app/cache"
	"github.com/lysyi3m/feed-posse/app/database"
	"github.com/lysyi3m/feed-posse/app/metrics"
	"github.com/lysyi3m/feed-posse/app/tasks"
)

type Handler struct {
	store     *cache.Store
	tracker   *tasks.Tracker
	history   database.PostRepository
	scheduler tasks.TaskSchedulerInterface
	metrics   *metrics.Metrics
	version   string
}

type postResponse struct {
	ItemURL    string `json:"item_url"`
	PostURL    string `json:"post_url"`
	Title      string `json:"title"`
	MediaCount int    `json:"media_count"`
	PostedAt   string `json:"posted_at"`
}
