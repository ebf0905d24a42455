package generate

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/planeseed/planeseed/internal/config"
	"github.com/planeseed/planeseed/internal/llm"
	"github.com/planeseed/planeseed/internal/seed"
)

// scriptedCompleter replays canned replies in order and records the requests
// it saw, so tests can assert on retry behavior and temperatures.
type scriptedCompleter struct {
	replies  []string
	requests []llm.Request
}

func (s *scriptedCompleter) Complete(ctx context.Context, req llm.Request) (string, error) {
	s.requests = append(s.requests, req)
	if len(s.replies) == 0 {
		return "", context.DeadlineExceeded
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return reply, nil
}

func newTestGenerator(t *testing.T, c Completer) *Generator {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Generate = config.GenerateConfig{
		Workspaces:           1,
		ProjectsPerWorkspace: 2,
		IssuesPerProject:     3,
		CyclesPerProject:     2,
		ModulesPerProject:    2,
		ViewsPerProject:      2,
		CommentsPerIssue:     1,
		Users:                3,
	}
	cfg.Workers.Count = 1
	cfg.LLM.MaxAttempts = 3
	return New(c, cfg, seed.Dir(t.TempDir()), rand.New(rand.NewSource(42)))
}

func TestWorkspacesDerivesSlugLocally(t *testing.T) {
	c := &scriptedCompleter{replies: []string{
		`{"name": "Vertex Labs", "slug": "WHATEVER THE MODEL SAYS", "organization_size": "11-50"}`,
	}}
	g := newTestGenerator(t, c)

	workspaces, err := g.Workspaces(context.Background())
	require.NoError(t, err)
	require.Len(t, workspaces, 1)
	require.Equal(t, "vertex-labs", workspaces[0].Slug)
	require.Equal(t, "11-50", workspaces[0].OrganizationSize)

	// The seed file must exist and round-trip.
	var loaded []seed.Workspace
	require.NoError(t, seed.Load(g.dir.Workspaces(), &loaded))
	require.Equal(t, workspaces, loaded)
}

func TestCompleteJSONRetriesMalformedWithHigherTemperature(t *testing.T) {
	c := &scriptedCompleter{replies: []string{
		"Sure! Here is your workspace: it is called Vertex.",
		"```json\n{\"name\": \"Vertex Labs\", \"organization_size\": \"11-50\"}\n```",
	}}
	g := newTestGenerator(t, c)

	workspaces, err := g.Workspaces(context.Background())
	require.NoError(t, err)
	require.Len(t, workspaces, 1)

	require.Len(t, c.requests, 2)
	require.Greater(t, c.requests[1].Temperature, c.requests[0].Temperature,
		"retry after malformed output must raise the temperature")
}

func TestCompleteJSONGivesUpAfterMaxAttempts(t *testing.T) {
	c := &scriptedCompleter{replies: []string{"nope", "still nope", "nope again", "unused"}}
	g := newTestGenerator(t, c)

	_, err := g.Workspaces(context.Background())
	require.Error(t, err)

	var malformed *llm.MalformedOutputError
	require.ErrorAs(t, err, &malformed)
	require.Len(t, c.requests, 3)
}

func TestProjectsDeduplicatesIdentifiers(t *testing.T) {
	// Both proposals derive the identifier "CP"; the second must get a suffix.
	c := &scriptedCompleter{replies: []string{
		`{"name": "Core Platform", "description": "Owns the platform."}`,
		`{"name": "Cloud Pipeline", "description": "Owns data flow."}`,
	}}
	g := newTestGenerator(t, c)

	projects, err := g.Projects(context.Background(), []seed.Workspace{{Name: "Acme", Slug: "acme"}})
	require.NoError(t, err)
	require.Len(t, projects, 2)
	require.Equal(t, "CP", projects[0].Identifier)
	require.NotEqual(t, projects[0].Identifier, projects[1].Identifier)
	require.Equal(t, "acme", projects[0].WorkspaceSlug)
	require.NotEmpty(t, projects[0].LogoProps)
}

func TestWorkspacesGiveUpOnUnusableNames(t *testing.T) {
	// Every reply slugifies to nothing; the regeneration loop must stop
	// instead of billing forever.
	c := &scriptedCompleter{replies: []string{
		`{"name": "!!!", "organization_size": "11-50"}`,
		`{"name": "!!!", "organization_size": "11-50"}`,
		`{"name": "!!!", "organization_size": "11-50"}`,
		`{"name": "!!!", "organization_size": "11-50"}`,
	}}
	g := newTestGenerator(t, c)

	_, err := g.Workspaces(context.Background())
	require.Error(t, err)
	require.Len(t, c.requests, 3, "three consecutive rejects must end the run")
}

func TestProjectsGiveUpOnRepeatedNames(t *testing.T) {
	c := &scriptedCompleter{replies: []string{
		`{"name": "Core Platform", "description": "Owns the platform."}`,
		`{"name": "Core Platform", "description": "again"}`,
		`{"name": "Core Platform", "description": "again"}`,
		`{"name": "Core Platform", "description": "again"}`,
		`{"name": "Core Platform", "description": "again"}`,
	}}
	g := newTestGenerator(t, c)

	_, err := g.Projects(context.Background(), []seed.Workspace{{Name: "Acme", Slug: "acme"}})
	require.Error(t, err)
	require.Len(t, c.requests, 4, "one accepted name, then three repeats")
}

func TestIssuesFillsCountAcrossBatches(t *testing.T) {
	c := &scriptedCompleter{replies: []string{
		`[{"name": "Fix login timeout", "description_html": "<p class=\"editor-paragraph-block\">a</p>"},
		  {"name": "Fix login timeout", "description_html": "<p class=\"editor-paragraph-block\">dup</p>"}]`,
		`[{"name": "Add audit log", "description_html": "<p class=\"editor-paragraph-block\">b</p>"},
		  {"name": "Speed up CI", "description_html": "<p class=\"editor-paragraph-block\">c</p>"}]`,
	}}
	g := newTestGenerator(t, c)

	project := seed.Project{Name: "Core Platform", Identifier: "CP", WorkspaceSlug: "acme"}
	cycles := []seed.Cycle{{ProjectName: "Core Platform"}, {ProjectName: "Core Platform"}}

	issues, err := g.Issues(context.Background(), []seed.Project{project}, cycles, nil)
	require.NoError(t, err)
	require.Len(t, issues, 3, "duplicate titles must be dropped, count must still be reached")

	for _, issue := range issues {
		require.Equal(t, "Core Platform", issue.ProjectName)
		require.GreaterOrEqual(t, issue.AssigneeCount, 1)
		require.LessOrEqual(t, issue.AssigneeCount, 3)
		require.Contains(t, priorities, issue.Priority)
		require.NotNil(t, issue.CycleIndex)
		require.Less(t, *issue.CycleIndex, 2)
		require.Nil(t, issue.ModuleIndex, "no modules were generated for this project")
	}
}

func TestUsersDerivesUniqueEmails(t *testing.T) {
	c := &scriptedCompleter{replies: []string{
		`[{"first_name": "Priya", "last_name": "Sharma"},
		  {"first_name": "Priya", "last_name": "Sharma"},
		  {"first_name": "Dan", "last_name": "Kim"},
		  {"first_name": "Maria", "last_name": "Lopez"}]`,
	}}
	g := newTestGenerator(t, c)

	users, err := g.Users(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 3)

	seen := map[string]bool{}
	for _, u := range users {
		require.NotEmpty(t, u.Email)
		require.NotEmpty(t, u.Password)
		require.False(t, seen[u.Email], "emails must be unique")
		seen[u.Email] = true
	}
	require.Equal(t, "priya.sharma@example.com", users[0].Email)
}

func TestCyclesLayOutSequentialDates(t *testing.T) {
	c := &scriptedCompleter{replies: []string{
		`[{"name": "Sprint 1", "description": "a"}, {"name": "Sprint 2", "description": "b"}]`,
	}}
	g := newTestGenerator(t, c)

	project := seed.Project{Name: "Core Platform", Identifier: "CP", WorkspaceSlug: "acme"}
	cycles, err := g.Cycles(context.Background(), []seed.Project{project})
	require.NoError(t, err)
	require.Len(t, cycles, 2)
	require.Less(t, cycles[0].StartDate, cycles[1].StartDate)
	require.Less(t, cycles[0].StartDate, cycles[0].EndDate)
}

func TestSlugify(t *testing.T) {
	require.Equal(t, "vertex-labs", slugify("Vertex Labs"))
	require.Equal(t, "acme-2-0", slugify("  Acme 2.0! "))
	require.Equal(t, "", slugify("!!!"))
}

func TestDeriveIdentifier(t *testing.T) {
	require.Equal(t, "CP", deriveIdentifier("Core Platform"))
	require.Equal(t, "SRE", deriveIdentifier("site reliability engineering"))
	require.Equal(t, "MOBI", deriveIdentifier("mobile"))
	require.Equal(t, "PROJ", deriveIdentifier("123"))
}
