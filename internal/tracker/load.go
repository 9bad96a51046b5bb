package tracker

import (
	"context"
	"errors"
	"fmt"

	"github.com/danielolaszy/kanban/internal/cycletime"
	"github.com/danielolaszy/kanban/internal/logging"
	"github.com/danielolaszy/kanban/internal/metrics"
	"github.com/danielolaszy/kanban/pkg/models"
)

// Load fetches every project in order, classifies the issues and aggregates
// them into one set for the range. Issues that cannot be classified are
// logged and skipped.
func Load(ctx context.Context, provider Provider, projects []string, rng models.Range, cfg cycletime.Config) (metrics.Set, error) {
	perProject := make([]metrics.ProjectIssues, 0, len(projects))
	for _, project := range projects {
		raw, err := provider.FetchIssues(ctx, project, rng)
		if err != nil {
			return metrics.Set{}, fmt.Errorf("failed to fetch %s issues for %s: %w", provider.Name(), project, err)
		}
		logging.Info("fetched issues",
			"tracker", provider.Name(),
			"project", project,
			"range", rng.String(),
			"count", len(raw))

		classified := make([]cycletime.Issue, 0, len(raw))
		for _, r := range raw {
			issue, err := cycletime.New(r, cfg)
			if errors.Is(err, cycletime.ErrInvalidIssue) {
				logging.Warn("rejecting issue", "issue", r.ID, "error", err)
				continue
			}
			if err != nil {
				return metrics.Set{}, err
			}
			logging.Debug("classified issue", "issue", issue.String())
			classified = append(classified, issue)
		}
		perProject = append(perProject, metrics.ProjectIssues{Project: project, Issues: classified})
	}

	set := metrics.Aggregate(rng, perProject...)
	logging.Info("issues with cycle times", "count", set.Len(), "projects", projects)
	return set, nil
}
