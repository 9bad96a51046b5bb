// Package jira fetches resolved issues and their status history from JIRA.
package jira

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	jira "github.com/andygrunwald/go-jira"
	"github.com/danielolaszy/kanban/internal/config"
	"github.com/danielolaszy/kanban/internal/logging"
	"github.com/danielolaszy/kanban/internal/tracker"
	"github.com/danielolaszy/kanban/pkg/models"
)

// changelogTimeLayout is the timestamp format of changelog histories.
const changelogTimeLayout = "2006-01-02T15:04:05.000-0700"

const defaultPageSize = 100

// Client handles interactions with the JIRA API
type Client struct {
	client   *jira.Client
	pageSize int
	log      *slog.Logger
}

// NewClient creates a new JIRA client from the JIRA section of the configuration.
func NewClient(cfg *config.Config) (*Client, error) {
	if err := config.ValidateJiraConfig(cfg); err != nil {
		return nil, err
	}

	// Create JIRA authentication transport
	tp := jira.BasicAuthTransport{
		Username: cfg.Jira.Username,
		Password: cfg.Jira.Token,
	}

	logging.Debug("jira configuration",
		"url", cfg.Jira.BaseURL,
		"username", cfg.Jira.Username,
		"token", logging.MaskSensitive(cfg.Jira.Token))

	return newClient(tp.Client(), cfg.Jira.BaseURL)
}

func newClient(httpClient *http.Client, baseURL string) (*Client, error) {
	client, err := jira.NewClient(httpClient, baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create jira client: %w", err)
	}
	return &Client{
		client:   client,
		pageSize: defaultPageSize,
		log:      logging.For("jira"),
	}, nil
}

// Name identifies the tracker in cache keys and logs.
func (c *Client) Name() string {
	return "jira"
}

// FetchIssues returns every issue of the project resolved within the range,
// with its status changelog.
func (c *Client) FetchIssues(ctx context.Context, project string, rng models.Range) ([]models.RawIssue, error) {
	if c.client == nil {
		return nil, fmt.Errorf("JIRA client not initialized")
	}

	_, resp, err := c.client.Project.GetWithContext(ctx, project)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", tracker.ErrProjectNotFound, project)
		}
		return nil, fmt.Errorf("failed to look up jira project %s: %w", project, err)
	}

	jql := ResolvedJQL(project, rng)
	opts := &jira.SearchOptions{
		MaxResults: c.pageSize,
		Expand:     "changelog",
		Fields:     []string{"created", "resolutiondate", "status"},
	}

	var result []models.RawIssue
	for {
		issues, resp, err := c.client.Issue.SearchWithContext(ctx, jql, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to search jira issues: %w", err)
		}

		for _, issue := range issues {
			result = append(result, toRawIssue(project, issue))
		}

		opts.StartAt += len(issues)
		if len(issues) == 0 || resp == nil || opts.StartAt >= resp.Total {
			break
		}
	}

	c.log.Debug("found issues in range", "project", project, "range", rng.String(), "count", len(result))
	return result, nil
}

// ResolvedJQL selects the issues of a project resolved within the half-open
// range.
func ResolvedJQL(project string, rng models.Range) string {
	return fmt.Sprintf(`project = "%s" AND resolved >= "%s" AND resolved < "%s" ORDER BY resolved ASC`,
		jqlEscaper.Replace(project),
		rng.From.Format(time.DateOnly),
		rng.To.Format(time.DateOnly))
}

var jqlEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// toRawIssue keeps the status and resolution changes of the issue's changelog.
func toRawIssue(project string, issue jira.Issue) models.RawIssue {
	raw := models.RawIssue{ID: issue.Key, Project: project}
	if issue.Fields != nil {
		raw.Created = time.Time(issue.Fields.Created)
	}

	resolutionLogged := false
	if issue.Changelog != nil {
		for _, history := range issue.Changelog.Histories {
			created, err := time.Parse(changelogTimeLayout, history.Created)
			if err != nil {
				logging.Warn("skipping changelog entry with bad timestamp",
					"issue", issue.Key, "created", history.Created, "error", err)
				continue
			}

			event := models.ChangeEvent{Timestamp: created}
			for _, item := range history.Items {
				switch strings.ToLower(item.Field) {
				case "status":
					event.Deltas = append(event.Deltas, models.StateDelta(item.FromString, item.ToString))
				case "resolution":
					resolutionLogged = true
					event.Deltas = append(event.Deltas, models.FieldDelta{
						Field: models.ResolvedField,
						Old:   item.FromString,
						New:   item.ToString,
					})
				}
			}
			if len(event.Deltas) > 0 {
				raw.Events = append(raw.Events, event)
			}
		}
	}

	if !resolutionLogged && issue.Fields != nil {
		if resolved := time.Time(issue.Fields.Resolutiondate); !resolved.IsZero() {
			raw.Events = append(raw.Events, models.ChangeEvent{
				Timestamp: resolved,
				Deltas:    []models.FieldDelta{{Field: models.ResolvedField, New: "Resolved"}},
			})
		}
	}

	return raw
}
