package plane_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/planeseed/planeseed/internal/plane"
	"github.com/planeseed/planeseed/internal/planetest"
	"github.com/planeseed/planeseed/internal/ratelimit"
)

func newTestClient(t *testing.T, fake *planetest.Server) *plane.Client {
	t.Helper()

	srv := httptest.NewServer(fake.Handler())
	t.Cleanup(srv.Close)

	budget, err := ratelimit.NewBudget(1000) // effectively unthrottled
	require.NoError(t, err)

	client := plane.NewClient(plane.Config{
		BaseURL:  srv.URL,
		Email:    planetest.AdminEmail,
		Password: planetest.AdminPassword,
		PoolSize: 2,
	}, budget)
	require.NoError(t, client.Login(context.Background()))
	return client
}

func TestLoginAndCheckAuth(t *testing.T) {
	client := newTestClient(t, planetest.NewServer())
	require.NoError(t, client.CheckAuth(context.Background()))
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	fake := planetest.NewServer()
	srv := httptest.NewServer(fake.Handler())
	t.Cleanup(srv.Close)

	budget, err := ratelimit.NewBudget(1000)
	require.NoError(t, err)

	client := plane.NewClient(plane.Config{
		BaseURL:  srv.URL,
		Email:    planetest.AdminEmail,
		Password: "wrong",
		PoolSize: 1,
	}, budget)
	require.Error(t, client.Login(context.Background()))
}

func TestDiscoveryNormalizesBothListShapes(t *testing.T) {
	for _, envelope := range []bool{false, true} {
		fake := planetest.NewServer()
		fake.Envelope = envelope
		fake.SeedWorkspace("Acme", "acme")
		fake.SeedProject("acme", "Core Platform", "CORE")
		fake.SeedProject("acme", "Mobile iOS", "MIOS")

		client := newTestClient(t, fake)

		workspaces, err := client.Workspaces(context.Background())
		require.NoError(t, err)
		require.Len(t, workspaces, 1)
		require.Equal(t, "acme", workspaces[0].Slug)

		projects, err := client.Projects(context.Background(), "acme")
		require.NoError(t, err)
		require.Len(t, projects, 2, "envelope=%v", envelope)
		require.Equal(t, "CORE", projects[0].Identifier)
	}
}

func TestDiscoveryFailureSurfacesStatus(t *testing.T) {
	fake := planetest.NewServer()
	fake.SeedWorkspace("Acme", "acme")
	fake.FailDiscovery = true

	client := newTestClient(t, fake)

	_, err := client.Workspaces(context.Background())
	require.Error(t, err)

	var statusErr *plane.StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, 502, statusErr.Code)
}

func TestCreateWorkspaceDuplicateSlug(t *testing.T) {
	client := newTestClient(t, planetest.NewServer())
	ctx := context.Background()

	payload := plane.WorkspacePayload{Name: "Acme", Slug: "acme", OrganizationSize: "11-50"}
	require.NoError(t, client.CreateWorkspace(ctx, payload))

	err := client.CreateWorkspace(ctx, payload)
	require.ErrorIs(t, err, plane.ErrAlreadyExists)
}

func TestCreateProjectAndIssueRoundTrip(t *testing.T) {
	fake := planetest.NewServer()
	fake.SeedWorkspace("Acme", "acme")
	client := newTestClient(t, fake)
	ctx := context.Background()

	require.NoError(t, client.CreateProject(ctx, "acme", map[string]any{
		"name": "Core Platform", "identifier": "CORE",
	}))

	projects, err := client.Projects(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, projects, 1)

	err = client.CreateIssue(ctx, "acme", projects[0].ID, plane.IssuePayload{
		Name:            "Fix login timeout",
		DescriptionHTML: `<p class="editor-paragraph-block">Sessions expire too early.</p>`,
		Priority:        "high",
		AssigneeIDs:     []string{},
		LabelIDs:        []string{},
	})
	require.NoError(t, err)

	issues, err := client.ProjectIssues(ctx, "acme", projects[0].ID)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	require.Equal(t, "Fix login timeout", issues[0].Name)
}

func TestCreateProjectDuplicateIdentifier(t *testing.T) {
	fake := planetest.NewServer()
	fake.SeedWorkspace("Acme", "acme")
	client := newTestClient(t, fake)
	ctx := context.Background()

	payload := map[string]any{"name": "Core Platform", "identifier": "CORE"}
	require.NoError(t, client.CreateProject(ctx, "acme", payload))
	require.ErrorIs(t, client.CreateProject(ctx, "acme", payload), plane.ErrAlreadyExists)
}

func TestCreateCommentRequiresResolvedIssue(t *testing.T) {
	fake := planetest.NewServer()
	fake.SeedWorkspace("Acme", "acme")
	projectID := fake.SeedProject("acme", "Core Platform", "CORE")
	issueID := fake.SeedIssue("acme", projectID, "Fix login timeout")

	client := newTestClient(t, fake)
	ctx := context.Background()

	html := `<p class="editor-paragraph-block">Looks good after the patch.</p>`
	require.NoError(t, client.CreateComment(ctx, "acme", projectID, issueID, html))

	comments := fake.Comments(issueID)
	require.Len(t, comments, 1)
	require.Equal(t, html, comments[0]["comment_html"])
}

func TestAddIssuesToCycle(t *testing.T) {
	fake := planetest.NewServer()
	fake.SeedWorkspace("Acme", "acme")
	projectID := fake.SeedProject("acme", "Core Platform", "CORE")
	cycleID := fake.SeedCycle("acme", projectID, "Sprint 1")
	issueID := fake.SeedIssue("acme", projectID, "Fix login timeout")

	client := newTestClient(t, fake)

	require.NoError(t, client.AddIssuesToCycle(context.Background(), "acme", projectID, cycleID, []string{issueID}))
	require.Equal(t, []string{issueID}, fake.CycleIssues(cycleID))
}

func TestProjectStatesFiltersWorkspaceWideResults(t *testing.T) {
	fake := planetest.NewServer()
	fake.SeedWorkspace("Acme", "acme")
	coreID := fake.SeedProject("acme", "Core Platform", "CORE")
	mobileID := fake.SeedProject("acme", "Mobile iOS", "MIOS")
	backlogID := fake.SeedState("acme", coreID, "Backlog")
	fake.SeedState("acme", coreID, "Done")
	fake.SeedState("acme", mobileID, "Backlog")

	client := newTestClient(t, fake)
	ctx := context.Background()

	// Only the workspace-wide endpoint exists, so the probe must fall
	// through to it and keep just this project's states.
	states, err := client.ProjectStates(ctx, "acme", coreID)
	require.NoError(t, err)
	require.Len(t, states, 2)
	require.Equal(t, backlogID, states[0].ID)

	none, err := client.ProjectStates(ctx, "acme", "no-such-project")
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestAddSubIssues(t *testing.T) {
	fake := planetest.NewServer()
	fake.SeedWorkspace("Acme", "acme")
	projectID := fake.SeedProject("acme", "Core Platform", "CORE")
	parentID := fake.SeedIssue("acme", projectID, "Ship billing")
	childID := fake.SeedIssue("acme", projectID, "Add invoice model")

	client := newTestClient(t, fake)

	require.NoError(t, client.AddSubIssues(context.Background(), "acme", projectID, parentID, []string{childID}))
	require.Equal(t, []string{childID}, fake.SubIssues(parentID))
}

func TestSignUpConflict(t *testing.T) {
	client := newTestClient(t, planetest.NewServer())
	ctx := context.Background()

	require.NoError(t, client.SignUp(ctx, "dev1@example.com", "hunter2!"))
	require.ErrorIs(t, client.SignUp(ctx, "dev1@example.com", "hunter2!"), plane.ErrAlreadyExists)
}

func TestLoginAsSeparateSession(t *testing.T) {
	client := newTestClient(t, planetest.NewServer())
	ctx := context.Background()

	require.NoError(t, client.SignUp(ctx, "dev2@example.com", "hunter2!"))

	session, err := client.LoginAs(ctx, "dev2@example.com", "hunter2!")
	require.NoError(t, err)
	require.NotNil(t, session)

	_, err = client.LoginAs(ctx, "dev2@example.com", "wrong")
	require.Error(t, err)
}
