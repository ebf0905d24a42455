package generate

import (
	"context"
	"fmt"

	"github.com/planeseed/planeseed/internal/llm"
	"github.com/planeseed/planeseed/internal/seed"
)

var orgSizes = []string{"Just myself", "2-10", "11-50", "51-200", "201-500", "500+"}

const workspaceSystem = "You are a tech company employee naming real companies. Output only valid JSON."

// Workspaces generates the configured number of workspaces and writes
// workspace.json. Slugs are always re-derived locally so they stay
// URL-safe whatever the model returns.
func (g *Generator) Workspaces(ctx context.Context) ([]seed.Workspace, error) {
	count := g.cfg.Generate.Workspaces
	workspaces := make([]seed.Workspace, 0, count)
	used := map[string]bool{}
	rejects := 0

	for len(workspaces) < count {
		prompt := fmt.Sprintf(`Generate a realistic tech company workspace for a project management tool.
The name must sound like a real company, not AI-generated.
Return only a JSON object with keys: name, slug and organization_size which can have values as: %v.
%s`, orgSizes, avoidList("names", usedKeys(used)))

		var ws seed.Workspace
		err := g.completeJSON(ctx, workspaceSystem, prompt, func(text string) error {
			return llm.ExtractObject(text, &ws)
		})
		if err != nil {
			return nil, fmt.Errorf("generate workspace: %w", err)
		}

		ws.Slug = slugify(ws.Name)
		if ws.Slug == "" || used[ws.Slug] {
			rejects++
			if rejects > 2 {
				return nil, fmt.Errorf("generate workspace: model produced nothing usable")
			}
			continue
		}
		rejects = 0
		if !validOrgSize(ws.OrganizationSize) {
			ws.OrganizationSize = orgSizes[g.intn(len(orgSizes))]
		}
		used[ws.Slug] = true
		workspaces = append(workspaces, ws)
		g.log.WithField("workspace", ws.Slug).Info("Generated workspace")
	}

	if err := seed.Save(g.dir.Workspaces(), workspaces); err != nil {
		return nil, err
	}
	return workspaces, nil
}

func validOrgSize(s string) bool {
	for _, v := range orgSizes {
		if s == v {
			return true
		}
	}
	return false
}

func usedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func avoidList(what string, used []string) string {
	if len(used) == 0 {
		return ""
	}
	if len(used) > 15 {
		used = used[len(used)-15:]
	}
	return fmt.Sprintf("AVOID these already used %s: %v", what, used)
}
