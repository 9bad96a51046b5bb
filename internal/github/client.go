// Package github provides functionality for reading issue histories from the
// GitHub API.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/danielolaszy/kanban/internal/config"
	"github.com/danielolaszy/kanban/internal/logging"
	"github.com/danielolaszy/kanban/internal/tracker"
	"github.com/danielolaszy/kanban/pkg/models"
	"github.com/google/go-github/v41/github"
	"golang.org/x/oauth2"
)

// StatusLabelPrefix marks labels that carry an issue's workflow state,
// e.g. "status: In Progress".
const StatusLabelPrefix = "status:"

const (
	openState   = "Open"
	closedState = "Closed"
)

// Client encapsulates the GitHub API client.
type Client struct {
	client      *github.Client
	concurrency int
	limiter     *tracker.Limiter
	log         *slog.Logger
}

// NewClient creates a GitHub API client for the configured domain,
// authenticated with the configured token.
func NewClient(cfg *config.Config) (*Client, error) {
	if err := config.ValidateGitHubConfig(cfg); err != nil {
		return nil, err
	}

	apiURL := APIURL(cfg.GitHub.Domain)
	logging.Info("github configuration",
		"domain", cfg.GitHub.Domain,
		"api_url", apiURL,
		"token", logging.MaskSensitive(cfg.GitHub.Token))

	// Create the oauth2 client
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: cfg.GitHub.Token},
	)
	tc := oauth2.NewClient(context.Background(), ts)

	client, err := newClient(tc, apiURL)
	if err != nil {
		return nil, err
	}
	client.concurrency = cfg.Kanban.Concurrency
	client.limiter = tracker.NewLimiter(cfg.Kanban.RequestsPerSecond, cfg.Kanban.Concurrency)
	return client, nil
}

func newClient(httpClient *http.Client, apiURL string) (*Client, error) {
	parsedURL, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid github api url: %w", err)
	}

	client := github.NewClient(httpClient)
	client.BaseURL = parsedURL
	client.UploadURL = parsedURL

	return &Client{
		client:      client,
		concurrency: 1,
		log:         logging.For("github"),
	}, nil
}

// APIURL returns the REST endpoint for a GitHub domain. Domains other than
// github.com are treated as GitHub Enterprise installations.
func APIURL(domain string) string {
	if domain == "" || domain == "github.com" {
		return "https://api.github.com/"
	}
	return fmt.Sprintf("https://%s/api/v3/", domain)
}

// Name identifies the tracker in cache keys and logs.
func (c *Client) Name() string {
	return "github"
}

// FetchIssues returns the issues of an "owner/repo" repository closed within
// the range, with histories rebuilt from their label and state events. Pull
// requests are skipped.
func (c *Client) FetchIssues(ctx context.Context, repository string, rng models.Range) ([]models.RawIssue, error) {
	owner, repo, err := splitRepository(repository)
	if err != nil {
		return nil, err
	}

	if _, resp, err := c.client.Repositories.Get(ctx, owner, repo); err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", tracker.ErrProjectNotFound, repository)
		}
		return nil, fmt.Errorf("failed to look up github repository %s: %w", repository, err)
	}

	// Issues closed in the range were necessarily updated after its start
	opts := &github.IssueListByRepoOptions{
		State: "closed",
		Since: rng.From,
		ListOptions: github.ListOptions{
			PerPage: 100,
		},
	}

	var closed []*github.Issue
	for {
		issues, resp, err := c.client.Issues.ListByRepo(ctx, owner, repo, opts)
		if err != nil {
			logging.Error("failed to fetch closed github issues", "repository", repository, "error", err)
			return nil, fmt.Errorf("failed to fetch GitHub closed issues: %w", err)
		}

		for _, issue := range issues {
			// Skip pull requests (they're also returned by the Issues API)
			if issue.IsPullRequest() {
				continue
			}
			if !rng.Contains(issue.GetClosedAt()) {
				continue
			}
			closed = append(closed, issue)
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	result := make([]models.RawIssue, len(closed))
	err = tracker.ForEach(ctx, closed, c.concurrency, c.limiter, func(ctx context.Context, i int, issue *github.Issue) error {
		events, err := c.issueEvents(ctx, owner, repo, issue.GetNumber())
		if err != nil {
			return err
		}
		result[i] = models.RawIssue{
			ID:      fmt.Sprintf("%s#%d", repository, issue.GetNumber()),
			Project: repository,
			Created: issue.GetCreatedAt(),
			Events:  EventsToChanges(events),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.log.Debug("found issues in range", "repository", repository, "range", rng.String(), "count", len(result))
	return result, nil
}

func (c *Client) issueEvents(ctx context.Context, owner, repo string, number int) ([]*github.IssueEvent, error) {
	opts := &github.ListOptions{PerPage: 100}

	var all []*github.IssueEvent
	for {
		events, resp, err := c.client.Issues.ListIssueEvents(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch events for %s/%s#%d: %w", owner, repo, number, err)
		}
		all = append(all, events...)

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

// EventsToChanges rebuilds a state history from issue events. An issue starts
// Open, moves to the state named by each status label it receives, to Closed
// when closed and back to Open when reopened.
func EventsToChanges(events []*github.IssueEvent) []models.ChangeEvent {
	var changes []models.ChangeEvent
	current := openState

	for _, event := range events {
		var deltas []models.FieldDelta

		switch event.GetEvent() {
		case "labeled":
			state, ok := statusFromLabel(event.GetLabel().GetName())
			if !ok || state == current {
				continue
			}
			deltas = append(deltas, models.StateDelta(current, state))
			current = state
		case "closed":
			deltas = append(deltas,
				models.StateDelta(current, closedState),
				models.FieldDelta{Field: models.ResolvedField, Old: "", New: closedState})
			current = closedState
		case "reopened":
			deltas = append(deltas, models.StateDelta(current, openState))
			current = openState
		default:
			continue
		}

		changes = append(changes, models.ChangeEvent{
			Timestamp: event.GetCreatedAt(),
			Deltas:    deltas,
		})
	}

	return changes
}

func statusFromLabel(label string) (string, bool) {
	if len(label) < len(StatusLabelPrefix) || !strings.EqualFold(label[:len(StatusLabelPrefix)], StatusLabelPrefix) {
		return "", false
	}
	state := strings.TrimSpace(label[len(StatusLabelPrefix):])
	return state, state != ""
}

func splitRepository(repository string) (string, string, error) {
	parts := strings.Split(repository, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository format: %s, expected format: owner/repo", repository)
	}
	return parts[0], parts[1], nil
}
