package config

import (
	"os"
)

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: "1",
		API: APIConfig{
			BaseURL:    "http://localhost:8000",
			WebURL:     "http://localhost:3000",
			RatePerSec: 5,
			PoolSize:   4,
		},
		LLM: LLMConfig{
			Model:       "claude-3-5-sonnet-20241022",
			RatePerSec:  5,
			MaxAttempts: 3,
			MaxTokens:   4096,
			Temperature: 0.7,
		},
		Seed: SeedConfig{
			Dir: "seed_data",
		},
		Workers: WorkersConfig{
			Count:     6,
			BatchSize: 25,
		},
		Generate: GenerateConfig{
			Workspaces:           1,
			ProjectsPerWorkspace: 6,
			IssuesPerProject:     50,
			CyclesPerProject:     4,
			ModulesPerProject:    4,
			ViewsPerProject:      3,
			CommentsPerIssue:     1,
			Users:                50,
		},
		Assign: AssignConfig{
			CyclesPerIssue:    Bounds{Min: 2, Max: 4},
			IssuesPerModule:   Bounds{Min: 1, Max: 3},
			ProjectsPerMember: Bounds{Min: 2, Max: 6},
			MembersPerProject: Bounds{Min: 3, Max: 8},
		},
		Ledger: LedgerConfig{
			Enabled: true,
			Path:    "seed_data/ledger.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// WriteDefault writes the default global configuration to a file
func WriteDefault(path string) error {
	content := `# Planeseed Global Configuration
version: "1"

# Target deployment
api:
  base_url: http://localhost:8000
  web_url: http://localhost:3000
  rate_per_sec: 5
  pool_size: 4

# Generation model
llm:
  model: claude-3-5-sonnet-20241022
  rate_per_sec: 5
  max_attempts: 3
  max_tokens: 4096
  temperature: 0.7

# Seed files
seed:
  dir: seed_data

# Backfill worker pool
workers:
  count: 6
  batch_size: 25

# Generation volumes
generate:
  workspaces: 1
  projects_per_workspace: 6
  issues_per_project: 50
  cycles_per_project: 4
  modules_per_project: 4
  views_per_project: 3
  comments_per_issue: 1
  users: 50

# Assignment cardinality bounds
assign:
  cycles_per_issue: {min: 2, max: 4}
  issues_per_module: {min: 1, max: 3}
  projects_per_member: {min: 2, max: 6}
  members_per_project: {min: 3, max: 8}

# Idempotency ledger
ledger:
  enabled: true
  path: seed_data/ledger.db

# Logging
log:
  level: info
  format: text
`
	return os.WriteFile(path, []byte(content), 0644)
}
