package generate

import (
	"context"
	"fmt"
	"time"

	"github.com/planeseed/planeseed/internal/llm"
	"github.com/planeseed/planeseed/internal/seed"
)

const cycleSystem = "You are a precise JSON generator. Output only valid JSON."

// Cycles generates sprint cycles for every project and writes cycles.json.
// The model names them; start and end dates are laid out locally as
// consecutive two-week sprints so they never overlap.
func (g *Generator) Cycles(ctx context.Context, projects []seed.Project) ([]seed.Cycle, error) {
	var all []seed.Cycle

	for _, project := range projects {
		count := g.cfg.Generate.CyclesPerProject

		prompt := fmt.Sprintf(`You are a JSON generator. Output EXACTLY %d unique cycle objects in a JSON array (no extra text).
Each object must be: {"name": "...", "description": "..."}
Cycles are sprints for the project below. Use realistic sprint names a team would actually use
(for example "Sprint 12 - Auth Hardening" or "Q3 Stability Push"), each with a one-line description.

Project Information:
- Name: %q
- Description: %q

Return ONLY valid JSON (a single JSON array).`, count, project.Name, project.Description)

		var proposals []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		}
		err := g.completeJSON(ctx, cycleSystem, prompt, func(text string) error {
			return llm.ExtractArray(text, &proposals)
		})
		if err != nil {
			return nil, fmt.Errorf("generate cycles for %s: %w", project.Name, err)
		}

		start := time.Now().AddDate(0, 0, -14*len(proposals)/2)
		for i, p := range proposals {
			if p.Name == "" || i >= count {
				continue
			}
			cycleStart := start.AddDate(0, 0, 14*i)
			all = append(all, seed.Cycle{
				ProjectName:       project.Name,
				ProjectIdentifier: project.Identifier,
				WorkspaceSlug:     project.WorkspaceSlug,
				Name:              p.Name,
				Description:       p.Description,
				StartDate:         cycleStart.Format("2006-01-02"),
				EndDate:           cycleStart.AddDate(0, 0, 13).Format("2006-01-02"),
			})
		}
		g.log.WithField("project", project.Name).Infof("Generated %d cycles", count)
	}

	if err := seed.Save(g.dir.Cycles(), all); err != nil {
		return nil, err
	}
	return all, nil
}
