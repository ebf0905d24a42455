package generate

import (
	"context"
	"fmt"
	"sync"

	"github.com/planeseed/planeseed/internal/llm"
	"github.com/planeseed/planeseed/internal/seed"
)

var priorities = []string{"none", "low", "medium", "high", "urgent"}

const issueSystem = "You only output JSON, never explanations."

// Issues generates work items for every project concurrently and writes
// issues.json. The model fills in title and description; everything
// positional (assignees, cycle, state, module) is randomized locally as
// indices the backfill maps onto whatever the server actually has.
func (g *Generator) Issues(ctx context.Context, projects []seed.Project, cycles []seed.Cycle, modules []seed.Module) ([]seed.Issue, error) {
	perProject := make([][]seed.Issue, len(projects))
	var mu sync.Mutex

	cyclesPer := countByProject(cycles, func(c seed.Cycle) string { return c.ProjectName })
	modulesPer := countByProject(modules, func(m seed.Module) string { return m.ProjectName })

	err := g.workerPool(ctx, len(projects), func(ctx context.Context, i int) error {
		project := projects[i]
		issues, err := g.projectIssues(ctx, project, cyclesPer[project.Name], modulesPer[project.Name])
		if err != nil {
			return err
		}
		mu.Lock()
		perProject[i] = issues
		mu.Unlock()
		g.log.WithField("project", project.Name).Infof("Generated %d issues", len(issues))
		return nil
	})
	if err != nil {
		return nil, err
	}

	var all []seed.Issue
	for _, issues := range perProject {
		all = append(all, issues...)
	}
	if err := seed.Save(g.dir.Issues(), all); err != nil {
		return nil, err
	}
	return all, nil
}

func (g *Generator) projectIssues(ctx context.Context, project seed.Project, cycleCount, moduleCount int) ([]seed.Issue, error) {
	count := g.cfg.Generate.IssuesPerProject
	issues := make([]seed.Issue, 0, count)
	used := map[string]bool{}

	for batch := 0; len(issues) < count; batch++ {
		want := count - len(issues)
		if max := g.cfg.Workers.BatchSize; want > max {
			want = max
		}

		prompt := fmt.Sprintf(`You are an API that outputs exactly one JSON array (no explanation, no markdown, no extra text).
Generate %d realistic work items for this software project. Each array element must be:
{"name": "SHORT TITLE HERE", "description_html": "<p class=\"editor-paragraph-block\">DESCRIPTION</p>"}
Give only unique names and one-paragraph HTML descriptions appropriate for the project.
%s

Project Information:
- Name: %q
- Description: %q

Return exactly the completed JSON array. No surrounding text.`,
			want, avoidList("titles", usedKeys(used)), project.Name, project.Description)

		var batchItems []struct {
			Name            string `json:"name"`
			DescriptionHTML string `json:"description_html"`
		}
		err := g.completeJSON(ctx, issueSystem, prompt, func(text string) error {
			return llm.ExtractArray(text, &batchItems)
		})
		if err != nil {
			return nil, fmt.Errorf("generate issues for %s: %w", project.Name, err)
		}
		if len(batchItems) == 0 && batch > 2 {
			return nil, fmt.Errorf("generate issues for %s: model produced nothing usable", project.Name)
		}

		for _, item := range batchItems {
			if item.Name == "" || used[item.Name] || len(issues) >= count {
				continue
			}
			used[item.Name] = true
			issues = append(issues, g.decorateIssue(project, item.Name, item.DescriptionHTML, cycleCount, moduleCount))
		}
	}
	return issues, nil
}

// decorateIssue fills the locally randomized fields of a generated issue.
func (g *Generator) decorateIssue(project seed.Project, name, descriptionHTML string, cycleCount, moduleCount int) seed.Issue {
	issue := seed.Issue{
		ProjectName:       project.Name,
		ProjectIdentifier: project.Identifier,
		WorkspaceSlug:     project.WorkspaceSlug,
		Name:              name,
		DescriptionHTML:   descriptionHTML,
		AssigneeCount:     g.between(1, 3),
		Priority:          priorities[g.intn(len(priorities))],
	}
	if cycleCount > 0 {
		idx := g.intn(cycleCount)
		issue.CycleIndex = &idx
	}
	if moduleCount > 0 {
		idx := g.intn(moduleCount)
		issue.ModuleIndex = &idx
	}
	// States are only known at backfill time; five is the deployment default.
	state := g.intn(5)
	issue.StateIndex = &state
	if g.chance(0.4) {
		point := g.between(1, 8)
		issue.EstimatePoint = &point
	}
	return issue
}

func countByProject[T any](items []T, key func(T) string) map[string]int {
	counts := map[string]int{}
	for _, item := range items {
		counts[key(item)]++
	}
	return counts
}
