package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/danielolaszy/kanban/internal/cache"
	"github.com/danielolaszy/kanban/internal/config"
	"github.com/danielolaszy/kanban/internal/cycletime"
	"github.com/danielolaszy/kanban/internal/github"
	"github.com/danielolaszy/kanban/internal/jira"
	"github.com/danielolaszy/kanban/internal/logging"
	"github.com/danielolaszy/kanban/internal/metrics"
	"github.com/danielolaszy/kanban/internal/report"
	"github.com/danielolaszy/kanban/internal/tracker"
	"github.com/danielolaszy/kanban/internal/trello"
	"github.com/danielolaszy/kanban/pkg/models"
	"github.com/spf13/cobra"
)

const cacheFile = "fetches.db"

// now is replaced in tests.
var now = time.Now

// newProvider builds the tracker client named on the command line.
var newProvider = func(name string, cfg *config.Config) (tracker.Provider, error) {
	switch strings.ToLower(name) {
	case "jira":
		return jira.NewClient(cfg)
	case "github":
		return github.NewClient(cfg)
	case "trello":
		return trello.NewClient(cfg)
	default:
		return nil, fmt.Errorf("unknown tracker %q, expected jira, github or trello", name)
	}
}

// session is everything a report command needs once issues are loaded.
type session struct {
	cfg      *config.Config
	set      metrics.Set
	reporter *report.Reporter
}

// load resolves the command line into a range and a provider, fetches and
// classifies the issues of every project and prepares the reporter.
func load(cmd *cobra.Command) (*session, error) {
	flags := cmd.Flags()

	configFile, err := flags.GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	output, err := flags.GetString("output")
	if err != nil {
		return nil, err
	}
	format, err := report.ParseFormat(output)
	if err != nil {
		return nil, err
	}

	projects, err := flags.GetStringArray("project")
	if err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		return nil, fmt.Errorf("at least one project must be specified using --project")
	}

	historyAge, err := flags.GetInt("history-age")
	if err != nil {
		return nil, err
	}
	historyFrom, err := flags.GetString("history-from")
	if err != nil {
		return nil, err
	}
	rng, err := resolveRange(now(), historyFrom, historyAge)
	if err != nil {
		return nil, err
	}

	trackerName, err := flags.GetString("tracker")
	if err != nil {
		return nil, err
	}
	provider, err := newProvider(trackerName, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s client: %w", trackerName, err)
	}

	noCache, err := flags.GetBool("no-cache")
	if err != nil {
		return nil, err
	}
	if !noCache {
		store, err := openCache(cmd, cfg)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		provider = tracker.WithCache(provider, store)
	}

	logging.Info("loading issues",
		"tracker", provider.Name(),
		"projects", projects,
		"range", rng.String())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	set, err := tracker.Load(ctx, provider, projects, rng, cycletime.NewConfig(cfg.Kanban.InProgressStates...))
	if err != nil {
		return nil, err
	}

	return &session{
		cfg:      cfg,
		set:      set,
		reporter: report.New(cmd.OutOrStdout(), format, set),
	}, nil
}

// openCache opens the fetch cache, honouring the cache flags over the
// configuration, and drops expired entries.
func openCache(cmd *cobra.Command, cfg *config.Config) (*cache.Store, error) {
	dir, err := cmd.Flags().GetString("cache-dir")
	if err != nil {
		return nil, err
	}
	if dir == "" {
		dir = cfg.Kanban.CacheDir
	}

	ttl := cfg.Kanban.CacheAge
	days, err := cmd.Flags().GetInt("cache-age")
	if err != nil {
		return nil, err
	}
	if days >= 0 {
		ttl = time.Duration(days) * 24 * time.Hour
	}

	store, err := cache.Open(filepath.Join(dir, cacheFile), ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to open fetch cache: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if purged, err := store.Purge(ctx); err != nil {
		logging.Warn("failed to purge fetch cache", "path", store.Path(), "error", err)
	} else if purged > 0 {
		logging.Debug("purged expired cache entries", "path", store.Path(), "count", purged)
	}
	return store, nil
}

// resolveRange returns the reporting window ending with the current UTC day.
// It starts at from when given, else age days earlier. Day boundaries keep
// the window, and so the cache key, stable over a day.
func resolveRange(now time.Time, from string, age int) (models.Range, error) {
	to := now.UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)

	if from != "" {
		start, err := time.Parse(time.DateOnly, from)
		if err != nil {
			return models.Range{}, fmt.Errorf("invalid --history-from %q, expected YYYY-MM-DD: %w", from, err)
		}
		return models.NewRange(start, to)
	}

	if age <= 0 {
		return models.Range{}, fmt.Errorf("--history-age must be positive, got %d", age)
	}
	return models.NewRange(to.AddDate(0, 0, -age), to)
}
