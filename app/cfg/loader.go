package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"gopkg.in/yaml.v3"

	"github.com/lysyi3m/feed-posse/app/failure"
	"github.com/lysyi3m/feed-posse/app/posse"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	ConfigFile string `long:"config" env:"POSSE_CONFIG" description:"YAML file with option values (flags and environment take precedence)"`

	// Feed and publishing target
	FeedURL          string `long:"feed-url" env:"FEED_URL" description:"JSON feed URL (required)"`
	MastodonInstance string `long:"mastodon-instance" env:"MASTODON_INSTANCE" description:"Instance base URL, e.g. https://mastodon.social (required)"`
	MastodonToken    string `long:"mastodon-token" env:"MASTODON_TOKEN" description:"Access token with write:statuses and write:media scopes (required)"`
	InstanceType     string `long:"instance-type" env:"INSTANCE_TYPE" default:"mastodon" choice:"mastodon" choice:"pixelfed" description:"Server software of the instance"`

	// Posting policy
	GlobalDelay    int    `long:"global-delay" env:"GLOBAL_DELAY_TOOTS" default:"0" description:"Minimum minutes between two runs that post"`
	SameItemDelay  int    `long:"same-item-delay" env:"MINUTES_BETWEEN_TOOTS_FOR_SAME_ITEM" default:"10080" description:"Minimum minutes between two posts of the same item"`
	PostsPerItem   int    `long:"posts-per-item" env:"MAX_TOOTS_PER_ITEM" default:"1" description:"Maximum number of posts for a single item"`
	Strategy       string `long:"strategy" env:"ITEM_SELECTION" default:"random" description:"Item selection strategy: oldest, newest, latest or random"`
	IgnoreFirstRun bool   `long:"ignore-first-run" env:"IGNORE_FIRST_RUN" description:"Record current feed items without posting when there is no cache yet"`

	// Post content
	Visibility      string `long:"visibility" env:"TOOT_VISIBILITY" default:"public" choice:"public" choice:"unlisted" choice:"private" choice:"direct" description:"Post visibility"`
	DefaultLanguage string `long:"language" env:"DEFAULT_LANGUAGE" default:"en" description:"Post language when neither the item nor the feed declare one"`
	TestMode        bool   `long:"test-mode" env:"TEST_MODE" description:"Replace @ with $ in posts to avoid mentioning real accounts"`

	// State files
	CacheDir           string `long:"cache-dir" env:"CACHE_DIRECTORY" default:"cache" description:"Directory of the cache files"`
	CacheFile          string `long:"cache-file" env:"CACHE_FILE" default:"posse-cache.json" description:"Item cache file name"`
	CacheTimestampFile string `long:"cache-timestamp-file" env:"CACHE_TIMESTAMP_FILE" default:"posse-timestamp.json" description:"Run state file name"`
	HistoryDB          string `long:"history-db" env:"HISTORY_DB" description:"SQLite database recording every post (optional)"`

	// Serve mode
	Serve         bool   `long:"serve" env:"SERVE" description:"Keep running and check the feed periodically"`
	CheckInterval int    `long:"check-interval" env:"CHECK_INTERVAL" default:"5" description:"Minutes between two checks in serve mode"`
	Port          string `long:"port" env:"PORT" default:"8080" description:"HTTP status server port in serve mode"`
	APIAccessKey  string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Application metadata
	MaxParallelUploads int    `long:"max-parallel-uploads" env:"MAX_PARALLEL_UPLOADS" default:"4" description:"Maximum concurrent attachment uploads"`
	UserAgent          string `long:"user-agent" env:"USER_AGENT" description:"User agent string for HTTP requests"`
	Debug              bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// Load parses args (without the program name). It returns nil, nil when help
// was requested.
func Load(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, failure.New(failure.KindConfig, "failed to parse configuration", err)
	}

	if raw.ConfigFile != "" {
		fileArgs, err := argsFromFile(parser, raw.ConfigFile)
		if err != nil {
			return nil, failure.New(failure.KindConfig, "failed to load "+raw.ConfigFile, err)
		}

		// Later arguments win, so explicit flags override the file
		raw = rawCfg{}
		parser = flags.NewParser(&raw, flags.PassDoubleDash)
		if _, err := parser.ParseArgs(append(fileArgs, args...)); err != nil {
			return nil, failure.New(failure.KindConfig, "failed to parse configuration", err)
		}
	}

	return build(raw)
}

// argsFromFile converts the YAML file into command line arguments, skipping
// options already given on the command line or in the environment.
func argsFromFile(parser *flags.Parser, path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var values map[string]string
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	var args []string
	for name, value := range values {
		option := parser.FindOptionByLongName(name)
		if option == nil || name == "config" {
			return nil, fmt.Errorf("unknown option %q", name)
		}
		if option.IsSet() {
			continue
		}
		if _, ok := os.LookupEnv(option.EnvDefaultKey); ok && option.EnvDefaultKey != "" {
			continue
		}

		if _, isBool := option.Value().(bool); isBool {
			if strings.EqualFold(value, "true") {
				args = append(args, "--"+name)
			}
			continue
		}
		args = append(args, "--"+name+"="+value)
	}

	return args, nil
}

func build(raw rawCfg) (*Cfg, error) {
	requiredFields := []struct{ name, value string }{
		{"feed-url", raw.FeedURL},
		{"mastodon-instance", raw.MastodonInstance},
		{"mastodon-token", raw.MastodonToken},
	}
	for _, field := range requiredFields {
		if strings.TrimSpace(field.value) == "" {
			return nil, failure.New(failure.KindConfig, "missing required option",
				fmt.Errorf("%s is required", field.name))
		}
	}

	for name, value := range map[string]string{"feed-url": raw.FeedURL, "mastodon-instance": raw.MastodonInstance} {
		if err := validateURL(value); err != nil {
			return nil, failure.New(failure.KindConfig, "invalid "+name, err)
		}
	}

	nonNegativeFields := map[string]int{
		"global-delay":         raw.GlobalDelay,
		"same-item-delay":      raw.SameItemDelay,
		"posts-per-item":       raw.PostsPerItem,
		"max-parallel-uploads": raw.MaxParallelUploads,
	}
	for name, value := range nonNegativeFields {
		if value < 0 {
			return nil, failure.New(failure.KindConfig, "invalid "+name, errors.New("must be non-negative"))
		}
	}
	if raw.Serve && raw.CheckInterval <= 0 {
		return nil, failure.New(failure.KindConfig, "invalid check-interval", errors.New("must be positive in serve mode"))
	}

	strategy, err := posse.ParseStrategy(raw.Strategy)
	if err != nil {
		return nil, err
	}

	version := GetVersion()

	return &Cfg{
		FeedURL:            raw.FeedURL,
		MastodonInstance:   strings.TrimRight(raw.MastodonInstance, "/"),
		MastodonToken:      raw.MastodonToken,
		InstanceType:       raw.InstanceType,
		GlobalDelay:        time.Duration(raw.GlobalDelay) * time.Minute,
		SameItemDelay:      time.Duration(raw.SameItemDelay) * time.Minute,
		PostsPerItem:       raw.PostsPerItem,
		Strategy:           strategy,
		IgnoreFirstRun:     raw.IgnoreFirstRun,
		Visibility:         raw.Visibility,
		DefaultLanguage:    raw.DefaultLanguage,
		TestMode:           raw.TestMode,
		CacheDir:           raw.CacheDir,
		CacheFile:          raw.CacheFile,
		CacheTimestampFile: raw.CacheTimestampFile,
		HistoryDB:          raw.HistoryDB,
		Serve:              raw.Serve,
		CheckInterval:      time.Duration(raw.CheckInterval) * time.Minute,
		Port:               raw.Port,
		APIAccessKey:       raw.APIAccessKey,
		MaxParallelUploads: raw.MaxParallelUploads,
		UserAgent:          cmp.Or(raw.UserAgent, "feed-posse/"+version),
		Debug:              raw.Debug,
		Version:            version,
	}, nil
}

func validateURL(value string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%q is not an http(s) URL", value)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%q has no host", value)
	}
	return nil
}
