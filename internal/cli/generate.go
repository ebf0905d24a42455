package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/planeseed/planeseed/internal/generate"
	"github.com/planeseed/planeseed/internal/llm"
	"github.com/planeseed/planeseed/internal/ratelimit"
	"github.com/planeseed/planeseed/internal/seed"
)

var generateOnly string

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate seed data files with a language model",
	Long: `Generates workspaces, users, projects, cycles, modules, views, issues and
comments as JSON seed files. Requires ANTHROPIC_API_KEY.

By default every entity is generated in dependency order; --only restricts
the run to one entity, assuming its inputs were generated earlier.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&generateOnly, "only", "",
		"Generate a single entity: workspaces|users|projects|cycles|modules|views|issues|comments")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, creds, dir, err := setup()
	if err != nil {
		return err
	}
	if err := creds.RequireLLM(); err != nil {
		return err
	}
	if err := dir.Ensure(); err != nil {
		return err
	}

	budget, err := ratelimit.NewBudget(cfg.LLM.RatePerSec)
	if err != nil {
		return err
	}
	client := llm.NewClient(creds.AnthropicAPIKey, budget, llm.WithModel(cfg.LLM.Model))
	gen := generate.New(client, cfg, dir, newRNG())

	ctx := cmd.Context()
	if generateOnly == "" {
		return gen.All(ctx)
	}

	switch generateOnly {
	case "workspaces":
		_, err = gen.Workspaces(ctx)
	case "users":
		_, err = gen.Users(ctx)
	case "projects":
		var workspaces []seed.Workspace
		if err := seed.Load(dir.Workspaces(), &workspaces); err != nil {
			return err
		}
		_, err = gen.Projects(ctx, workspaces)
	case "cycles":
		projects, loadErr := loadProjects(dir)
		if loadErr != nil {
			return loadErr
		}
		_, err = gen.Cycles(ctx, projects)
	case "modules":
		projects, loadErr := loadProjects(dir)
		if loadErr != nil {
			return loadErr
		}
		_, err = gen.Modules(ctx, projects)
	case "views":
		projects, loadErr := loadProjects(dir)
		if loadErr != nil {
			return loadErr
		}
		_, err = gen.Views(ctx, projects)
	case "issues":
		projects, loadErr := loadProjects(dir)
		if loadErr != nil {
			return loadErr
		}
		var cycles []seed.Cycle
		if err := seed.Load(dir.Cycles(), &cycles); err != nil {
			return err
		}
		var modules []seed.Module
		if err := seed.Load(dir.Modules(), &modules); err != nil {
			return err
		}
		_, err = gen.Issues(ctx, projects, cycles, modules)
	case "comments":
		var issues []seed.Issue
		if err := seed.Load(dir.Issues(), &issues); err != nil {
			return err
		}
		_, err = gen.Comments(ctx, issues)
	default:
		return fmt.Errorf("unknown entity %q", generateOnly)
	}
	return err
}

func loadProjects(dir seed.Dir) ([]seed.Project, error) {
	var projects []seed.Project
	if err := seed.Load(dir.Projects(), &projects); err != nil {
		return nil, err
	}
	return projects, nil
}
