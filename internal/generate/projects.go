package generate

import (
	"context"
	"fmt"

	"github.com/planeseed/planeseed/internal/llm"
	"github.com/planeseed/planeseed/internal/seed"
)

var coverImages = []string{
	"https://images.unsplash.com/photo-1542202229-7d93c33f5d07?auto=format&fit=crop&q=80&ixlib=rb-4.0.3&w=870",
	"https://images.unsplash.com/photo-1507525428034-b723cf961d3e?auto=format&fit=crop&q=80&ixlib=rb-4.0.3&w=870",
	"https://images.unsplash.com/photo-1488521787991-ed7bbaae773c?auto=format&fit=crop&q=80&ixlib=rb-4.0.3&w=870",
}

var projectEmojis = []string{"🚀", "🌟", "🔥", "🎯", "🧠", "💡", "🌱", "🎨", "📦", "🔧"}

// Team categories cycled through so a workspace's projects read like a real
// engineering org rather than six variations on one theme.
var engineeringTeams = []string{
	"Backend Engineering",
	"Frontend Engineering",
	"Mobile Engineering",
	"Platform Engineering",
	"Data Engineering",
	"DevOps/Infrastructure",
	"Security Engineering",
	"QA/Testing",
	"Machine Learning",
	"API/Integrations",
}

const projectSystem = "You are a tech company employee naming real engineering teams. Use authentic, professional naming conventions that real companies use. Output only valid JSON."

// Projects generates projects for every workspace and writes projects.json.
// Names and identifiers are deduplicated across the whole run.
func (g *Generator) Projects(ctx context.Context, workspaces []seed.Workspace) ([]seed.Project, error) {
	var projects []seed.Project
	usedNames := map[string]bool{}
	usedIdentifiers := map[string]bool{}

	for _, ws := range workspaces {
		rejects := 0
		for i := 0; i < g.cfg.Generate.ProjectsPerWorkspace; i++ {
			team := engineeringTeams[i%len(engineeringTeams)]

			prompt := fmt.Sprintf(`You work at a real tech company. Generate a realistic engineering team/project name.

Team type focus: %s

Examples of good names:
- Backend Engineering, API Services, Core Platform
- Frontend Web, Mobile iOS, React Components
- Data Pipeline, Analytics Platform, ML Models
- DevOps Infrastructure, Cloud Platform, Site Reliability

Requirements:
- Must sound like a real engineering team name (not AI-generated)
- Use natural, industry-standard terminology
- Keep it concise and professional
- %s

Return ONLY valid JSON: {"name": "Team Name", "description": "Brief one-line description of what this team builds/maintains"}`,
				team, avoidList("names", usedKeys(usedNames)))

			var proposal struct {
				Name        string `json:"name"`
				Description string `json:"description"`
			}
			err := g.completeJSON(ctx, projectSystem, prompt, func(text string) error {
				return llm.ExtractObject(text, &proposal)
			})
			if err != nil {
				return nil, fmt.Errorf("generate project for %s: %w", ws.Slug, err)
			}
			if proposal.Name == "" || usedNames[proposal.Name] {
				rejects++
				if rejects > 2 {
					return nil, fmt.Errorf("generate project for %s: model produced nothing usable", ws.Slug)
				}
				i--
				continue
			}
			rejects = 0

			identifier := deriveIdentifier(proposal.Name)
			for usedIdentifiers[identifier] {
				identifier = fmt.Sprintf("%s%d", deriveIdentifier(proposal.Name), g.intn(90)+10)
			}
			usedNames[proposal.Name] = true
			usedIdentifiers[identifier] = true

			projects = append(projects, seed.Project{
				Name:          proposal.Name,
				Identifier:    identifier,
				Description:   proposal.Description,
				CoverImage:    coverImages[g.intn(len(coverImages))],
				CoverImageURL: coverImages[g.intn(len(coverImages))],
				LogoProps: map[string]any{
					"in_use": "emoji",
					"emoji":  map[string]any{"value": projectEmojis[g.intn(len(projectEmojis))]},
				},
				Network:       2, // public within the workspace
				WorkspaceSlug: ws.Slug,
			})
			g.log.WithField("project", proposal.Name).Info("Generated project")
		}
	}

	if err := seed.Save(g.dir.Projects(), projects); err != nil {
		return nil, err
	}
	return projects, nil
}
