// Package seed defines the JSON seed-file formats shared by the generation
// and backfill phases, and the helpers that read and write them. Seed files
// reference projects and issues by human-readable names; IDs only exist on
// the server and are resolved at backfill time.
package seed

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Dir is the directory the seed files live in.
type Dir string

// Seed file names are fixed so the generate and backfill phases can find
// each other's output without coordination.
func (d Dir) Workspaces() string { return filepath.Join(string(d), "workspace.json") }
func (d Dir) Users() string      { return filepath.Join(string(d), "users.json") }
func (d Dir) Projects() string   { return filepath.Join(string(d), "projects.json") }
func (d Dir) Issues() string     { return filepath.Join(string(d), "issues.json") }
func (d Dir) Cycles() string     { return filepath.Join(string(d), "cycles.json") }
func (d Dir) Modules() string    { return filepath.Join(string(d), "modules.json") }
func (d Dir) Views() string      { return filepath.Join(string(d), "views.json") }
func (d Dir) Comments() string   { return filepath.Join(string(d), "comments.json") }

// Results returns the path a backfill run flushes its results buffer to.
func (d Dir) Results(name string) string {
	return filepath.Join(string(d), fmt.Sprintf("%s_results.json", name))
}

// Ensure creates the seed directory.
func (d Dir) Ensure() error {
	return os.MkdirAll(string(d), 0755)
}

// Workspace is a generated workspace.
type Workspace struct {
	Name             string `json:"name"`
	Slug             string `json:"slug"`
	OrganizationSize string `json:"organization_size"`
}

// User is a generated account. Profile details are randomized at backfill
// time; only the credentials and name are generated up front.
type User struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Project is a generated project. LogoProps passes through to the API
// untouched, hence the loose typing.
type Project struct {
	Name          string         `json:"name"`
	Identifier    string         `json:"identifier"`
	Description   string         `json:"description"`
	CoverImage    string         `json:"cover_image"`
	CoverImageURL string         `json:"cover_image_url"`
	LogoProps     map[string]any `json:"logo_props"`
	Network       int            `json:"network"`
	WorkspaceSlug string         `json:"workspace_slug"`
}

// Issue is a generated work item. Cycle/state/module are carried as indices
// into whatever the target project has; the backfill resolves them.
type Issue struct {
	ProjectName       string `json:"project_name"`
	ProjectIdentifier string `json:"project_identifier"`
	WorkspaceSlug     string `json:"workspace_slug"`
	Name              string `json:"name"`
	DescriptionHTML   string `json:"description_html"`
	AssigneeCount     int    `json:"assignee_count"`
	CycleIndex        *int   `json:"cycle_index"`
	StateIndex        *int   `json:"state_index"`
	ModuleIndex       *int   `json:"module_index"`
	EstimatePoint     *int   `json:"estimate_point"`
	Priority          string `json:"priority"`
	StartDate         string `json:"start_date,omitempty"`
	TargetDate        string `json:"target_date,omitempty"`
}

// Cycle is a generated iteration.
type Cycle struct {
	ProjectName       string `json:"project_name"`
	ProjectIdentifier string `json:"project_identifier"`
	WorkspaceSlug     string `json:"workspace_slug"`
	Name              string `json:"name"`
	Description       string `json:"description"`
	StartDate         string `json:"start_date,omitempty"`
	EndDate           string `json:"end_date,omitempty"`
}

// Module is a generated module.
type Module struct {
	ProjectName       string `json:"project_name"`
	ProjectIdentifier string `json:"project_identifier"`
	WorkspaceSlug     string `json:"workspace_slug"`
	Name              string `json:"name"`
	Description       string `json:"description"`
	Status            string `json:"status,omitempty"`
	MemberCount       int    `json:"member_count"`
}

// View is a generated saved view. Filters are model-shaped free-form JSON.
type View struct {
	ProjectName       string         `json:"project_name"`
	ProjectIdentifier string         `json:"project_identifier"`
	WorkspaceSlug     string         `json:"workspace_slug"`
	Name              string         `json:"name"`
	Description       string         `json:"description"`
	Filters           map[string]any `json:"filters,omitempty"`
	DisplayFilters    map[string]any `json:"display_filters,omitempty"`
}

// Comment is a generated issue comment, referencing its issue by name.
type Comment struct {
	IssueName   string `json:"issue_name"`
	ProjectSlug string `json:"project_slug"`
	CommentHTML string `json:"comment_html"`
}

// Load reads a JSON seed file into v. A missing file is an error: backfill
// phases require their input to exist.
func Load(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return nil
}

// Save writes v as indented JSON, creating the directory if needed.
func Save(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal seed data: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write seed file: %w", err)
	}
	return nil
}
