// Package metrics aggregates classified issues and computes Kanban flow
// statistics over them.
package metrics

import (
	"github.com/danielolaszy/kanban/internal/cycletime"
	"github.com/danielolaszy/kanban/internal/logging"
	"github.com/danielolaszy/kanban/pkg/models"
)

// ProjectIssues holds the classified issues fetched for one project.
type ProjectIssues struct {
	Project string
	Issues  []cycletime.Issue
}

// Set is the working set statistics are computed over.
type Set struct {
	Projects []string          `json:"projects"`
	Range    models.Range      `json:"range"`
	Issues   []cycletime.Issue `json:"issues"`
}

// Len returns the number of issues in the set.
func (s Set) Len() int {
	return len(s.Issues)
}

// Aggregate concatenates the issues of every project, in the given project
// order, dropping issues without any state transition. Issues that never
// passed through an in-progress state are kept with a zero cycle time.
func Aggregate(rng models.Range, projects ...ProjectIssues) Set {
	set := Set{Range: rng}
	for _, p := range projects {
		set.Projects = append(set.Projects, p.Project)
		kept := 0
		for _, issue := range p.Issues {
			if !issue.HasCycleTime() {
				logging.Warn("no state transitions found, skipping issue",
					"issue", issue.ID,
					"project", p.Project)
				continue
			}
			if !issue.Worked() {
				logging.Warn("no in-progress transition found, cycle time is zero",
					"issue", issue.ID,
					"project", p.Project,
					"changes", len(issue.StateChanges))
			}
			set.Issues = append(set.Issues, issue)
			kept++
		}
		logging.Debug("aggregated project issues",
			"project", p.Project,
			"fetched", len(p.Issues),
			"with_cycle_time", kept)
	}
	return set
}
