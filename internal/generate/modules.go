package generate

import (
	"context"
	"fmt"

	"github.com/planeseed/planeseed/internal/llm"
	"github.com/planeseed/planeseed/internal/seed"
)

var moduleStatuses = []string{"backlog", "planned", "in-progress", "paused", "completed", "cancelled"}

const moduleSystem = "You generate realistic project modules in JSON format. Output only valid JSON arrays."

// Modules generates feature modules for every project and writes
// modules.json. Status and member counts are randomized locally.
func (g *Generator) Modules(ctx context.Context, projects []seed.Project) ([]seed.Module, error) {
	var all []seed.Module

	for _, project := range projects {
		count := g.cfg.Generate.ModulesPerProject

		prompt := fmt.Sprintf(`Generate %d realistic feature modules for this software project.
A module is a large area of work, like "Payment Processing" or "Search Infrastructure".
Each must have a unique name and a one-line description of its scope.

Project Information:
- Name: %q
- Description: %q

Return exactly this JSON structure (no extra text):
[{"name": "...", "description": "..."}]`, count, project.Name, project.Description)

		var proposals []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		}
		err := g.completeJSON(ctx, moduleSystem, prompt, func(text string) error {
			return llm.ExtractArray(text, &proposals)
		})
		if err != nil {
			return nil, fmt.Errorf("generate modules for %s: %w", project.Name, err)
		}

		for i, p := range proposals {
			if p.Name == "" || i >= count {
				continue
			}
			all = append(all, seed.Module{
				ProjectName:       project.Name,
				ProjectIdentifier: project.Identifier,
				WorkspaceSlug:     project.WorkspaceSlug,
				Name:              p.Name,
				Description:       p.Description,
				Status:            moduleStatuses[g.intn(len(moduleStatuses))],
				MemberCount:       g.between(3, 8),
			})
		}
		g.log.WithField("project", project.Name).Infof("Generated %d modules", count)
	}

	if err := seed.Save(g.dir.Modules(), all); err != nil {
		return nil, err
	}
	return all, nil
}
