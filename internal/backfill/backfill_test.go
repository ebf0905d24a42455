package backfill

import (
	"context"
	"math/rand"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/planeseed/planeseed/internal/config"
	"github.com/planeseed/planeseed/internal/ledger"
	"github.com/planeseed/planeseed/internal/plane"
	"github.com/planeseed/planeseed/internal/planetest"
	"github.com/planeseed/planeseed/internal/ratelimit"
	"github.com/planeseed/planeseed/internal/seed"
)

func newTestBackfiller(t *testing.T, fake *planetest.Server, store ledger.Store) (*Backfiller, seed.Dir) {
	t.Helper()

	srv := httptest.NewServer(fake.Handler())
	t.Cleanup(srv.Close)

	budget, err := ratelimit.NewBudget(1000)
	require.NoError(t, err)

	client := plane.NewClient(plane.Config{
		BaseURL:  srv.URL,
		Email:    planetest.AdminEmail,
		Password: planetest.AdminPassword,
		PoolSize: 2,
	}, budget)
	require.NoError(t, client.Login(context.Background()))

	cfg := config.DefaultConfig()
	cfg.Workers.Count = 2

	dir := seed.Dir(t.TempDir())
	return New(client, cfg, dir, store, rand.New(rand.NewSource(7))), dir
}

func TestWorkspacesPass(t *testing.T) {
	fake := planetest.NewServer()
	b, dir := newTestBackfiller(t, fake, nil)

	require.NoError(t, seed.Save(dir.Workspaces(), []seed.Workspace{
		{Name: "Acme", Slug: "acme", OrganizationSize: "11-50"},
		{Name: "Globex", Slug: "globex", OrganizationSize: "51-200"},
	}))

	require.NoError(t, b.Workspaces(context.Background()))
	require.Equal(t, 2, fake.WorkspaceCount())

	// A second run hits duplicate slugs; those are skips, not failures.
	require.NoError(t, b.Workspaces(context.Background()))
	require.Equal(t, 2, fake.WorkspaceCount())

	var results []Result
	require.NoError(t, seed.Load(dir.Results("workspaces"), &results))
	require.Len(t, results, 2)
	for _, r := range results {
		require.Equal(t, "exists", r.Status)
	}
}

func TestWorkspacesLedgerSkipsWithoutRequest(t *testing.T) {
	fake := planetest.NewServer()
	store, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	b, dir := newTestBackfiller(t, fake, store)
	require.NoError(t, seed.Save(dir.Workspaces(), []seed.Workspace{
		{Name: "Acme", Slug: "acme", OrganizationSize: "11-50"},
	}))

	require.NoError(t, b.Workspaces(context.Background()))
	require.Equal(t, 1, fake.WorkspaceCount())

	require.NoError(t, b.Workspaces(context.Background()))

	var results []Result
	require.NoError(t, seed.Load(dir.Results("workspaces"), &results))
	require.Len(t, results, 1)
	require.Equal(t, "ledger", results[0].Status)
}

func TestUsersPassSignsUpInvitesAndOnboards(t *testing.T) {
	fake := planetest.NewServer()
	fake.SeedWorkspace("Acme", "acme")
	b, dir := newTestBackfiller(t, fake, nil)

	users := []seed.User{
		{Email: "priya.sharma@example.com", Password: "Seed#0001!pass", FirstName: "Priya", LastName: "Sharma"},
		{Email: "dan.kim@example.com", Password: "Seed#0002!pass", FirstName: "Dan", LastName: "Kim"},
	}
	require.NoError(t, seed.Save(dir.Users(), users))

	require.NoError(t, b.Users(context.Background()))

	for _, u := range users {
		require.Equal(t, 0, fake.PendingInvitations(u.Email), "invitations must be accepted")
		profile := fake.Profile(u.Email)
		require.Equal(t, u.FirstName, profile["first_name"])
		require.NotEmpty(t, profile["role"])
		require.NotEmpty(t, profile["use_case"])
	}
}

func TestProjectsFallBackToFirstWorkspace(t *testing.T) {
	fake := planetest.NewServer()
	fake.SeedWorkspace("Acme", "acme")
	b, dir := newTestBackfiller(t, fake, nil)

	require.NoError(t, seed.Save(dir.Projects(), []seed.Project{
		{Name: "Core Platform", Identifier: "CORE", WorkspaceSlug: "acme"},
		{Name: "Mobile iOS", Identifier: "MIOS", WorkspaceSlug: "no-such-workspace"},
	}))

	require.NoError(t, b.Projects(context.Background()))

	projects, err := b.client.Projects(context.Background(), "acme")
	require.NoError(t, err)
	require.Len(t, projects, 2, "the orphaned project must land in the first workspace")
}

func TestAssignMembersRespectsBounds(t *testing.T) {
	fake := planetest.NewServer()
	fake.SeedWorkspace("Acme", "acme")
	var projectIDs []string
	for _, p := range []struct{ name, id string }{
		{"Core Platform", "CORE"}, {"Mobile iOS", "MIOS"}, {"Data Pipeline", "DP"},
	} {
		projectIDs = append(projectIDs, fake.SeedProject("acme", p.name, p.id))
	}

	b, dir := newTestBackfiller(t, fake, nil)
	b.cfg.Assign.ProjectsPerMember = config.Bounds{Min: 1, Max: 2}
	b.cfg.Assign.MembersPerProject = config.Bounds{Min: 1, Max: 4}

	// Sign up a few members so the workspace has non-admin users.
	users := []seed.User{
		{Email: "a@example.com", Password: "p1!aaaaaa", FirstName: "A", LastName: "One"},
		{Email: "b@example.com", Password: "p2!aaaaaa", FirstName: "B", LastName: "Two"},
		{Email: "c@example.com", Password: "p3!aaaaaa", FirstName: "C", LastName: "Three"},
	}
	require.NoError(t, seed.Save(dir.Users(), users))
	require.NoError(t, b.Users(context.Background()))

	require.NoError(t, b.AssignMembers(context.Background()))

	total := 0
	for _, id := range projectIDs {
		total += fake.ProjectMemberCount(id)
	}
	require.GreaterOrEqual(t, total, 3, "every member must reach at least one project")
	require.LessOrEqual(t, total, 6, "no member may exceed two projects")
}

func TestIssuesPassResolvesAndCreates(t *testing.T) {
	fake := planetest.NewServer()
	fake.SeedWorkspace("Acme", "acme")
	projectID := fake.SeedProject("acme", "Core Platform", "CORE")
	fake.SeedCycle("acme", projectID, "Sprint 1")

	b, dir := newTestBackfiller(t, fake, nil)

	one := 1
	require.NoError(t, seed.Save(dir.Issues(), []seed.Issue{
		{
			ProjectName:     "Core Platform",
			WorkspaceSlug:   "acme",
			Name:            "Fix login timeout",
			DescriptionHTML: `<p class="editor-paragraph-block">Sessions expire too early.</p>`,
			AssigneeCount:   1,
			CycleIndex:      &one,
			StateIndex:      &one,
			Priority:        "high",
		},
		{
			// Unknown project resolves through the fallback policy.
			ProjectName:   "Ghost Project",
			WorkspaceSlug: "acme",
			Name:          "Add audit log",
			Priority:      "medium",
		},
	}))

	require.NoError(t, b.Issues(context.Background()))

	issues, err := b.client.ProjectIssues(context.Background(), "acme", projectID)
	require.NoError(t, err)
	require.Len(t, issues, 2)
}

func TestCommentsPass(t *testing.T) {
	fake := planetest.NewServer()
	fake.SeedWorkspace("Acme", "acme")
	projectID := fake.SeedProject("acme", "Core Platform", "CORE")
	issueID := fake.SeedIssue("acme", projectID, "Fix login timeout")

	b, dir := newTestBackfiller(t, fake, nil)

	require.NoError(t, seed.Save(dir.Comments(), []seed.Comment{
		{
			IssueName:   "Fix login timeout",
			ProjectSlug: "Core Platform",
			CommentHTML: `<p class="editor-paragraph-block">Confirmed on staging.</p>`,
		},
	}))

	require.NoError(t, b.Comments(context.Background()))
	require.Len(t, fake.Comments(issueID), 1)
}

func TestCommentsPassStopsOnEmptyDeployment(t *testing.T) {
	fake := planetest.NewServer()
	fake.SeedWorkspace("Acme", "acme")

	b, dir := newTestBackfiller(t, fake, nil)
	require.NoError(t, seed.Save(dir.Comments(), []seed.Comment{
		{IssueName: "Anything", ProjectSlug: "Anywhere", CommentHTML: "<p>x</p>"},
	}))

	err := b.Comments(context.Background())
	require.Error(t, err)
}

func TestLinksPassLinksCyclesAndModules(t *testing.T) {
	fake := planetest.NewServer()
	fake.SeedWorkspace("Acme", "acme")
	projectID := fake.SeedProject("acme", "Core Platform", "CORE")
	cycleID := fake.SeedCycle("acme", projectID, "Sprint 1")
	fake.SeedIssue("acme", projectID, "Fix login timeout")
	fake.SeedIssue("acme", projectID, "Add audit log")

	b, dir := newTestBackfiller(t, fake, nil)
	b.cfg.Assign.CyclesPerIssue = config.Bounds{Min: 1, Max: 1}
	b.cfg.Assign.IssuesPerModule = config.Bounds{Min: 1, Max: 1}
	require.NoError(t, seed.Save(dir.Users(), []seed.User{}))

	require.NoError(t, b.Links(context.Background()))

	require.Len(t, fake.CycleIssues(cycleID), 2, "both issues draw the only cycle")
}

func TestLinksPassNestsSubIssues(t *testing.T) {
	fake := planetest.NewServer()
	fake.SeedWorkspace("Acme", "acme")
	projectID := fake.SeedProject("acme", "Core Platform", "CORE")
	var issueIDs []string
	for _, name := range []string{"one", "two", "three", "four", "five", "six"} {
		issueIDs = append(issueIDs, fake.SeedIssue("acme", projectID, "Task "+name))
	}

	b, dir := newTestBackfiller(t, fake, nil)
	require.NoError(t, seed.Save(dir.Users(), []seed.User{}))

	require.NoError(t, b.Links(context.Background()))

	parents := map[string]bool{}
	children := map[string]bool{}
	for _, id := range issueIDs {
		subs := fake.SubIssues(id)
		if len(subs) > 0 {
			parents[id] = true
		}
		for _, child := range subs {
			require.False(t, children[child], "an issue may have only one parent")
			children[child] = true
		}
	}
	require.NotEmpty(t, children, "six issues must produce at least one hierarchy")
	for id := range parents {
		require.False(t, children[id], "trees stay one level deep")
	}
}

func TestQuickLinksPointAtDiscoveredContent(t *testing.T) {
	fake := planetest.NewServer()
	fake.SeedWorkspace("Acme", "acme")
	projectID := fake.SeedProject("acme", "Core Platform", "CORE")
	fake.SeedView("acme", projectID, "High priority bugs")

	b, dir := newTestBackfiller(t, fake, nil)

	user := seed.User{Email: "priya.sharma@example.com", Password: "Seed#0001!pass"}
	require.NoError(t, seed.Save(dir.Users(), []seed.User{user}))
	require.NoError(t, b.client.SignUp(context.Background(), user.Email, user.Password))

	require.NoError(t, b.createQuickLinks(context.Background()))

	links := fake.QuickLinks(user.Email)
	require.Len(t, links, 1)
	url, _ := links[0]["url"].(string)
	require.Contains(t, url, projectID, "quick links must point at discovered content")
}
