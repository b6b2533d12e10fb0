package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/feed-posse/app/cache"
	"github.com/lysyi3m/feed-posse/app/database"
	"github.com/lysyi3m/feed-posse/app/failure"
	"github.com/lysyi3m/feed-posse/app/feed"
	"github.com/lysyi3m/feed-posse/app/metrics"
	"github.com/lysyi3m/feed-posse/app/posse"
)

type PosseConfig struct {
	FeedURL        string
	IgnoreFirstRun bool
	GlobalDelay    time.Duration
	Policy         posse.Policy
	Strategy       posse.Strategy
}

// PosseDeps are the collaborators of a run. History, Metrics and Tracker are
// optional; Now defaults to time.Now.
type PosseDeps struct {
	Store     *cache.Store
	Source    FeedSource
	Parser    *feed.Parser
	Publisher Publisher
	History   database.PostRepository
	Metrics   *metrics.Metrics
	Tracker   *Tracker
	Now       func() time.Time
}

// Posse performs one complete run: gate, fetch, reconcile, select, publish
// and persist.
type Posse struct {
	feedURL        string
	ignoreFirstRun bool

	store      *cache.Store
	source     FeedSource
	parser     *feed.Parser
	publisher  Publisher
	gate       *posse.Gate
	reconciler *posse.Reconciler
	selector   *posse.Selector

	history database.PostRepository
	metrics *metrics.Metrics
	tracker *Tracker
	now     func() time.Time
}

func NewPosse(config PosseConfig, deps PosseDeps) (*Posse, error) {
	selector, err := posse.NewSelector(config.Strategy)
	if err != nil {
		return nil, err
	}

	now := deps.Now
	if now == nil {
		now = time.Now
	}

	parser := deps.Parser
	if parser == nil {
		parser = feed.NewParser()
	}

	return &Posse{
		feedURL:        config.FeedURL,
		ignoreFirstRun: config.IgnoreFirstRun,
		store:          deps.Store,
		source:         deps.Source,
		parser:         parser,
		publisher:      deps.Publisher,
		gate:           posse.NewGate(config.GlobalDelay),
		reconciler:     posse.NewReconciler(config.Policy),
		selector:       selector,
		history:        deps.History,
		metrics:        deps.Metrics,
		tracker:        deps.Tracker,
		now:            now,
	}, nil
}

// Run executes one run. Files are written only on a successful post or on a
// first run bootstrap; any error leaves both files as they were.
func (p *Posse) Run(ctx context.Context) (Result, error) {
	startedAt := time.Now()
	now := p.now()

	result, err := p.run(ctx, now)
	p.observe(result, err, now, time.Since(startedAt))

	return result, err
}

func (p *Posse) run(ctx context.Context, now time.Time) (Result, error) {
	state, err := p.store.LoadState()
	if err != nil {
		return Result{}, failure.New(failure.KindStorage, "failed to load run state", err)
	}

	if !p.gate.Allows(state, now) {
		next := p.gate.NextRunAt(state)
		slog.Info("Too soon since last post", "last_post_at", time.UnixMilli(state.Timestamp).UTC(), "next_run_at", next.UTC())
		return Result{Status: StatusTooSoon, At: now, NextRunAt: next}, nil
	}

	data, err := p.source.Run(ctx, p.feedURL)
	if err != nil {
		return Result{}, failure.WithURL(failure.KindFetch, "failed to fetch feed", p.feedURL, err)
	}

	parsed, err := p.parser.Run(data)
	if err != nil {
		return Result{}, failure.WithURL(failure.KindFetch, "failed to parse feed", p.feedURL, err)
	}

	c, exists, err := p.store.LoadCache()
	if err != nil {
		return Result{}, failure.New(failure.KindStorage, "failed to load cache", err)
	}

	bootstrap := !exists && p.ignoreFirstRun
	eligible := p.reconciler.Run(c, parsed.Items, bootstrap, now)

	if bootstrap {
		if err := p.store.SaveCache(c); err != nil {
			return Result{}, failure.New(failure.KindStorage, "failed to write cache", err)
		}
		slog.Info("First run ignored", "items", len(parsed.Items), "path", p.store.CachePath())
		return Result{Status: StatusBootstrapped, At: now, Items: len(parsed.Items)}, nil
	}

	entry := p.selector.Run(eligible)
	if entry == nil {
		slog.Info("Nothing to do", "items", len(parsed.Items))
		return Result{Status: StatusNothingToDo, At: now, Items: len(parsed.Items)}, nil
	}

	slog.Info("Item selected",
		"url", entry.Item.URL,
		"title", entry.Item.Title,
		"eligible", len(eligible),
		"previous_posts", entry.PostCount())

	postURL, err := p.publisher.Run(ctx, entry.Item, parsed.Language)
	if err != nil {
		return Result{}, err
	}

	entry.RecordPost(postURL, now)

	if err := p.store.SaveCache(c); err != nil {
		return Result{}, failure.New(failure.KindStorage, "failed to write cache", err)
	}
	if err := p.store.SaveState(cache.RunState{Timestamp: now.UnixMilli()}); err != nil {
		return Result{}, failure.New(failure.KindStorage, "failed to write run state", err)
	}

	result := Result{
		Status:     StatusPosted,
		At:         now,
		Items:      len(parsed.Items),
		Eligible:   len(eligible),
		ItemURL:    entry.Item.URL,
		PostURL:    postURL,
		MediaCount: len(entry.Item.ImageAttachments()),
	}
	p.recordHistory(entry.Item, result)

	return result, nil
}

func (p *Posse) recordHistory(item feed.Item, result Result) {
	if p.history == nil {
		return
	}

	_, err := p.history.RecordPost(database.PostRecord{
		ItemURL:    result.ItemURL,
		PostURL:    result.PostURL,
		Title:      item.Title,
		MediaCount: result.MediaCount,
		PostedAt:   result.At,
	})
	if err != nil {
		slog.Warn("Failed to record post history", "post_url", result.PostURL, "error", err)
	}
}

func (p *Posse) observe(result Result, err error, now time.Time, duration time.Duration) {
	if p.tracker != nil {
		p.tracker.Record(result, err, now)
	}

	if p.metrics == nil {
		return
	}

	if err != nil {
		p.metrics.ObserveFailure(string(failure.KindOf(err)))
		p.metrics.ObserveRun("error", now, duration)
		return
	}

	p.metrics.ObserveRun(string(result.Status), now, duration)
	if result.Status == StatusPosted {
		p.metrics.ObservePost(now, result.MediaCount)
	}
}

type PosseTask struct {
	Task
	posse *Posse
}

func NewPosseTask(p *Posse) *PosseTask {
	return &PosseTask{
		Task:  NewTask(TaskTypePosse),
		posse: p,
	}
}

func (t *PosseTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	result, err := t.posse.Run(ctx)
	if err != nil {
		return fmt.Errorf("failed to run posse: %w", err)
	}

	slog.Info("Task completed",
		"type", string(t.Type),
		"id", t.ID,
		"duration", t.GetDuration(),
		"status", string(result.Status),
		"post_url", result.PostURL)

	return nil
}
