package cfg

import (
	"time"

	"github.com/lysyi3m/feed-posse/app/posse"
)

type Cfg struct {
	// Feed and publishing target
	FeedURL          string
	MastodonInstance string
	MastodonToken    string
	InstanceType     string

	// Posting policy
	GlobalDelay    time.Duration
	SameItemDelay  time.Duration
	PostsPerItem   int
	Strategy       posse.Strategy
	IgnoreFirstRun bool

	// Post content
	Visibility      string
	DefaultLanguage string
	TestMode        bool

	// State files
	CacheDir           string
	CacheFile          string
	CacheTimestampFile string
	HistoryDB          string

	// Serve mode
	Serve         bool
	CheckInterval time.Duration
	Port          string
	APIAccessKey  string

	// Application metadata
	MaxParallelUploads int
	UserAgent          string
	Debug              bool
	Version            string
}
