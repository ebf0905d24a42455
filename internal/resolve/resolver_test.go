package resolve

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/planeseed/planeseed/internal/plane"
)

// fakeDirectory serves canned discovery data and counts calls so tests can
// assert memoization.
type fakeDirectory struct {
	workspaces []plane.Workspace
	projects   map[string][]plane.Project
	issues     map[string][]plane.Issue
	failWith   error
	calls      int
}

func (f *fakeDirectory) Workspaces(ctx context.Context) ([]plane.Workspace, error) {
	f.calls++
	if f.failWith != nil {
		return nil, f.failWith
	}
	return f.workspaces, nil
}

func (f *fakeDirectory) Projects(ctx context.Context, slug string) ([]plane.Project, error) {
	return f.projects[slug], nil
}

func (f *fakeDirectory) ProjectIssues(ctx context.Context, slug, projectID string) ([]plane.Issue, error) {
	return f.issues[fmt.Sprintf("%s/%s", slug, projectID)], nil
}

func seededDirectory() *fakeDirectory {
	return &fakeDirectory{
		workspaces: []plane.Workspace{{ID: "w1", Name: "Acme", Slug: "acme"}},
		projects: map[string][]plane.Project{
			"acme": {
				{ID: "p1", Name: "Core Platform", Identifier: "CORE"},
				{ID: "p2", Name: "Mobile iOS", Identifier: "MIOS"},
			},
		},
		issues: map[string][]plane.Issue{
			"acme/p1": {
				{ID: "i1", Name: "Fix login timeout"},
				{ID: "i2", Name: "Add audit log"},
			},
			"acme/p2": {
				{ID: "i3", Name: "Fix login timeout"}, // same name, other project
			},
		},
	}
}

func TestProjectResolveByExactName(t *testing.T) {
	r := NewProjectResolver(seededDirectory())

	rec, err := r.Resolve(context.Background(), "Core Platform", "")
	require.NoError(t, err)
	require.Equal(t, "p1", rec.ProjectID)
	require.Equal(t, "acme", rec.WorkspaceSlug)
}

func TestProjectResolveNamePrecedesIdentifier(t *testing.T) {
	dir := seededDirectory()
	// A project whose name collides with another project's identifier must
	// win the name lookup.
	dir.projects["acme"] = append(dir.projects["acme"],
		plane.Project{ID: "p3", Name: "MIOS", Identifier: "MX"})

	r := NewProjectResolver(dir)
	rec, err := r.Resolve(context.Background(), "MIOS", "")
	require.NoError(t, err)
	require.Equal(t, "p3", rec.ProjectID, "exact name must take precedence over identifier")
}

func TestProjectResolveByIdentifier(t *testing.T) {
	r := NewProjectResolver(seededDirectory())

	rec, err := r.Resolve(context.Background(), "No Such Project", "MIOS")
	require.NoError(t, err)
	require.Equal(t, "p2", rec.ProjectID)
}

func TestProjectResolveMissWithoutFallback(t *testing.T) {
	r := NewProjectResolver(seededDirectory())

	_, err := r.Resolve(context.Background(), "Unknown", "NOPE")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestProjectResolveMissWithFallbackUsesFirstEntry(t *testing.T) {
	r := NewProjectResolver(seededDirectory(), WithFallback())

	rec, err := r.Resolve(context.Background(), "Unknown", "NOPE")
	require.NoError(t, err)
	require.Equal(t, "p1", rec.ProjectID, "fallback must be the first discovered project")
}

func TestProjectResolveCaseSensitive(t *testing.T) {
	r := NewProjectResolver(seededDirectory())

	_, err := r.Resolve(context.Background(), "core platform", "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestProjectResolveEmptyMapping(t *testing.T) {
	dir := &fakeDirectory{workspaces: []plane.Workspace{{Slug: "empty"}}}
	r := NewProjectResolver(dir, WithFallback())

	_, err := r.Resolve(context.Background(), "anything", "")
	require.ErrorIs(t, err, ErrNoTargets)
}

func TestProjectBuildDiscoveryFailureIsHard(t *testing.T) {
	boom := errors.New("api returned 502")
	r := NewProjectResolver(&fakeDirectory{failWith: boom})

	_, err := r.Resolve(context.Background(), "Core Platform", "")
	require.ErrorIs(t, err, boom)
}

func TestProjectResolveIsMemoized(t *testing.T) {
	dir := seededDirectory()
	r := NewProjectResolver(dir)

	first, err := r.Resolve(context.Background(), "Core Platform", "")
	require.NoError(t, err)

	// Mutating the directory after the first resolve must not change the
	// answer: the mapping is built once per run.
	dir.projects["acme"] = nil
	second, err := r.Resolve(context.Background(), "Core Platform", "")
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, dir.calls, "discovery must run exactly once")
}

func TestIssueResolveByProjectContext(t *testing.T) {
	r := NewIssueResolver(seededDirectory())

	rec, err := r.Resolve(context.Background(), "Mobile iOS", "Fix login timeout")
	require.NoError(t, err)
	require.Equal(t, "i3", rec.ID)
	require.Equal(t, "p2", rec.ProjectID)
}

func TestIssueResolveByBareNameScansAllProjects(t *testing.T) {
	r := NewIssueResolver(seededDirectory())

	rec, err := r.Resolve(context.Background(), "some/unknown-slug", "Add audit log")
	require.NoError(t, err)
	require.Equal(t, "i2", rec.ID)
}

func TestIssueResolveMissAndFallback(t *testing.T) {
	strict := NewIssueResolver(seededDirectory())
	_, err := strict.Resolve(context.Background(), "Core Platform", "Ghost issue")
	require.ErrorIs(t, err, ErrNotFound)

	lenient := NewIssueResolver(seededDirectory(), WithFallback())
	rec, err := lenient.Resolve(context.Background(), "Core Platform", "Ghost issue")
	require.NoError(t, err)
	require.Equal(t, "i1", rec.ID)
}

func TestIssueResolverLen(t *testing.T) {
	r := NewIssueResolver(seededDirectory())
	n, err := r.Len(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, n)
}
