// Package revision looks up when the poll data file last changed in its
// source repository, via the GitHub commits API. The lookup is strictly
// best-effort: any failure degrades to an "unknown" result so the dashboard
// keeps working when GitHub is unreachable.
package revision

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"pollpulse/internal/config"
)

// Result describes the latest known change to the data file. Known is false
// when the lookup failed or is disabled; CommitDate and SHA are only
// meaningful when Known is true.
type Result struct {
	CommitDate time.Time
	SHA        string
	Known      bool
	CheckedAt  time.Time
}

// commitEntry matches the fields we need from the GitHub commits listing.
type commitEntry struct {
	SHA    string `json:"sha"`
	Commit struct {
		Committer struct {
			Date time.Time `json:"date"`
		} `json:"committer"`
	} `json:"commit"`
}

// Checker caches last-updated lookups with a TTL and collapses concurrent
// refreshes into a single upstream request. Failures are cached like
// successes so an unreachable GitHub is asked again only after the TTL.
type Checker struct {
	cfg    config.RevisionConfig
	client *http.Client
	clock  clockwork.Clock
	logger *slog.Logger
	group  singleflight.Group

	mu     sync.RWMutex
	cached Result
	expiry time.Time
	primed bool
}

// NewChecker creates a Checker for the given revision configuration.
func NewChecker(cfg config.RevisionConfig, clock clockwork.Clock, logger *slog.Logger) *Checker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = config.GitHubAPIBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.RevisionTimeout
	}
	return &Checker{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		clock:  clock,
		logger: logger.With(slog.String("component", "revision_checker")),
	}
}

// LastUpdated returns the cached result, refreshing it from GitHub when the
// TTL has lapsed. It never returns an error: a failed refresh yields a
// Result with Known=false.
func (c *Checker) LastUpdated(ctx context.Context) Result {
	if !c.cfg.Enabled {
		return Result{CheckedAt: c.clock.Now()}
	}
	if r, ok := c.cachedResult(); ok {
		return r
	}
	v, _, _ := c.group.Do("last-updated", func() (interface{}, error) {
		// Another caller may have refreshed while we waited for the flight.
		if r, ok := c.cachedResult(); ok {
			return r, nil
		}
		return c.refresh(ctx), nil
	})
	return v.(Result)
}

func (c *Checker) cachedResult() (Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.primed || c.clock.Now().After(c.expiry) {
		return Result{}, false
	}
	return c.cached, true
}

func (c *Checker) refresh(ctx context.Context) Result {
	now := c.clock.Now()
	result := Result{CheckedAt: now}

	if entry, err := c.fetchLatestCommit(ctx); err != nil {
		c.logger.Warn("revision lookup failed, reporting unknown",
			slog.String("file", c.cfg.FilePath),
			slog.String("error", err.Error()))
	} else {
		result.CommitDate = entry.Commit.Committer.Date
		result.SHA = entry.SHA
		result.Known = true
		c.logger.Debug("revision lookup succeeded",
			slog.String("file", c.cfg.FilePath),
			slog.String("sha", entry.SHA),
			slog.Time("commit_date", entry.Commit.Committer.Date))
	}

	c.mu.Lock()
	c.cached = result
	c.expiry = now.Add(c.cacheTTL())
	c.primed = true
	c.mu.Unlock()

	return result
}

func (c *Checker) fetchLatestCommit(ctx context.Context) (*commitEntry, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/commits?path=%s&per_page=1",
		c.cfg.APIBaseURL, c.cfg.Owner, c.cfg.Repo, url.QueryEscape(c.cfg.FilePath))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch commits: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub API returned status: %d", resp.StatusCode)
	}

	var commits []commitEntry
	if err := json.NewDecoder(resp.Body).Decode(&commits); err != nil {
		return nil, fmt.Errorf("parse commits: %w", err)
	}
	if len(commits) == 0 {
		return nil, fmt.Errorf("no commits found for path %q", c.cfg.FilePath)
	}
	return &commits[0], nil
}

func (c *Checker) cacheTTL() time.Duration {
	if c.cfg.CacheTTL > 0 {
		return c.cfg.CacheTTL
	}
	return config.RevisionCacheDuration
}
