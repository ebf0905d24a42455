package generate

import (
	"context"
	"fmt"

	"github.com/planeseed/planeseed/internal/llm"
	"github.com/planeseed/planeseed/internal/seed"
)

const viewSystem = "You generate realistic project management view configurations in JSON format. Output only valid JSON arrays."

// Views generates saved views for every project and writes views.json.
// Filter payloads are built locally from a small menu; the model only
// contributes names and descriptions.
func (g *Generator) Views(ctx context.Context, projects []seed.Project) ([]seed.View, error) {
	var all []seed.View

	for _, project := range projects {
		count := g.cfg.Generate.ViewsPerProject

		prompt := fmt.Sprintf(`Generate %d realistic saved views a team would create for this software project.
Views are saved filters like "Urgent Bugs" or "This Sprint's Work".
Each must have a unique name and a one-line description.

Project Information:
- Name: %q
- Description: %q

Return exactly this JSON structure (no extra text):
[{"name": "...", "description": "..."}]`, count, project.Name, project.Description)

		var proposals []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		}
		err := g.completeJSON(ctx, viewSystem, prompt, func(text string) error {
			return llm.ExtractArray(text, &proposals)
		})
		if err != nil {
			return nil, fmt.Errorf("generate views for %s: %w", project.Name, err)
		}

		for i, p := range proposals {
			if p.Name == "" || i >= count {
				continue
			}
			all = append(all, seed.View{
				ProjectName:       project.Name,
				ProjectIdentifier: project.Identifier,
				WorkspaceSlug:     project.WorkspaceSlug,
				Name:              p.Name,
				Description:       p.Description,
				Filters:           g.randomFilters(),
				DisplayFilters:    map[string]any{"group_by": "state", "order_by": "-created_at"},
			})
		}
		g.log.WithField("project", project.Name).Infof("Generated %d views", count)
	}

	if err := seed.Save(g.dir.Views(), all); err != nil {
		return nil, err
	}
	return all, nil
}

func (g *Generator) randomFilters() map[string]any {
	switch g.intn(3) {
	case 0:
		return map[string]any{"priority": []string{"urgent", "high"}}
	case 1:
		return map[string]any{"state_group": []string{"started"}}
	default:
		return map[string]any{"priority": []string{"medium", "low"}}
	}
}
