package config

// Config represents the full seeder configuration
type Config struct {
	Version string `yaml:"version" mapstructure:"version"`

	// Target API configuration
	API APIConfig `yaml:"api" mapstructure:"api"`

	// LLM generation configuration
	LLM LLMConfig `yaml:"llm" mapstructure:"llm"`

	// Seed file location
	Seed SeedConfig `yaml:"seed" mapstructure:"seed"`

	// Backfill worker pool configuration
	Workers WorkersConfig `yaml:"workers" mapstructure:"workers"`

	// Generation volumes
	Generate GenerateConfig `yaml:"generate" mapstructure:"generate"`

	// Assignment cardinality bounds
	Assign AssignConfig `yaml:"assign" mapstructure:"assign"`

	// Idempotency ledger
	Ledger LedgerConfig `yaml:"ledger" mapstructure:"ledger"`

	// Logging
	Log LogConfig `yaml:"log" mapstructure:"log"`
}

// APIConfig points at the target deployment
type APIConfig struct {
	BaseURL    string  `yaml:"base_url" mapstructure:"base_url"`
	WebURL     string  `yaml:"web_url" mapstructure:"web_url"`
	RatePerSec float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	PoolSize   int     `yaml:"pool_size" mapstructure:"pool_size"`
}

// LLMConfig configures the generation model
type LLMConfig struct {
	Model       string  `yaml:"model" mapstructure:"model"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	MaxAttempts int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
}

// SeedConfig locates the generated seed files
type SeedConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// WorkersConfig sizes the backfill worker pool
type WorkersConfig struct {
	Count     int `yaml:"count" mapstructure:"count"`
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size"`
}

// GenerateConfig sets how much of everything to generate
type GenerateConfig struct {
	Workspaces           int `yaml:"workspaces" mapstructure:"workspaces"`
	ProjectsPerWorkspace int `yaml:"projects_per_workspace" mapstructure:"projects_per_workspace"`
	IssuesPerProject     int `yaml:"issues_per_project" mapstructure:"issues_per_project"`
	CyclesPerProject     int `yaml:"cycles_per_project" mapstructure:"cycles_per_project"`
	ModulesPerProject    int `yaml:"modules_per_project" mapstructure:"modules_per_project"`
	ViewsPerProject      int `yaml:"views_per_project" mapstructure:"views_per_project"`
	CommentsPerIssue     int `yaml:"comments_per_issue" mapstructure:"comments_per_issue"`
	Users                int `yaml:"users" mapstructure:"users"`
}

// Bounds is a closed cardinality interval
type Bounds struct {
	Min int `yaml:"min" mapstructure:"min"`
	Max int `yaml:"max" mapstructure:"max"`
}

// AssignConfig bounds the relation builders
type AssignConfig struct {
	CyclesPerIssue    Bounds `yaml:"cycles_per_issue" mapstructure:"cycles_per_issue"`
	IssuesPerModule   Bounds `yaml:"issues_per_module" mapstructure:"issues_per_module"`
	ProjectsPerMember Bounds `yaml:"projects_per_member" mapstructure:"projects_per_member"`
	MembersPerProject Bounds `yaml:"members_per_project" mapstructure:"members_per_project"`
}

// LedgerConfig configures the idempotency ledger
type LedgerConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// LogConfig configures log output
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}
