package plane

import (
	"context"
	"fmt"
	"net/http"
)

// Workspaces lists every workspace reachable by the current credentials.
func (c *Client) Workspaces(ctx context.Context) ([]Workspace, error) {
	var out []Workspace
	if err := c.getList(ctx, nil, "/users/me/workspaces/", &out); err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	return out, nil
}

// Projects lists the projects of one workspace.
func (c *Client) Projects(ctx context.Context, workspaceSlug string) ([]Project, error) {
	var out []Project
	path := fmt.Sprintf("/workspaces/%s/projects/", workspaceSlug)
	if err := c.getList(ctx, nil, path, &out); err != nil {
		return nil, fmt.Errorf("list projects in %s: %w", workspaceSlug, err)
	}
	return out, nil
}

// ProjectIssues lists the issues of one project.
func (c *Client) ProjectIssues(ctx context.Context, workspaceSlug, projectID string) ([]Issue, error) {
	var out []Issue
	path := fmt.Sprintf("/workspaces/%s/projects/%s/issues/", workspaceSlug, projectID)
	if err := c.getList(ctx, nil, path, &out); err != nil {
		return nil, fmt.Errorf("list issues in %s: %w", projectID, err)
	}
	return out, nil
}

// ProjectCycles lists the cycles of one project.
func (c *Client) ProjectCycles(ctx context.Context, workspaceSlug, projectID string) ([]Cycle, error) {
	var out []Cycle
	path := fmt.Sprintf("/workspaces/%s/projects/%s/cycles/", workspaceSlug, projectID)
	if err := c.getList(ctx, nil, path, &out); err != nil {
		return nil, fmt.Errorf("list cycles in %s: %w", projectID, err)
	}
	return out, nil
}

// ProjectModules lists the modules of one project.
func (c *Client) ProjectModules(ctx context.Context, workspaceSlug, projectID string) ([]Module, error) {
	var out []Module
	path := fmt.Sprintf("/workspaces/%s/projects/%s/modules/", workspaceSlug, projectID)
	if err := c.getList(ctx, nil, path, &out); err != nil {
		return nil, fmt.Errorf("list modules in %s: %w", projectID, err)
	}
	return out, nil
}

// ProjectViews lists the saved views of one project.
func (c *Client) ProjectViews(ctx context.Context, workspaceSlug, projectID string) ([]View, error) {
	var out []View
	path := fmt.Sprintf("/workspaces/%s/projects/%s/views/", workspaceSlug, projectID)
	if err := c.getList(ctx, nil, path, &out); err != nil {
		return nil, fmt.Errorf("list views in %s: %w", projectID, err)
	}
	return out, nil
}

// ProjectMembers lists the memberships of one project.
func (c *Client) ProjectMembers(ctx context.Context, workspaceSlug, projectID string) ([]Membership, error) {
	var out []Membership
	path := fmt.Sprintf("/workspaces/%s/projects/%s/members/", workspaceSlug, projectID)
	if err := c.getList(ctx, nil, path, &out); err != nil {
		return nil, fmt.Errorf("list members in %s: %w", projectID, err)
	}
	return out, nil
}

// WorkspaceMembers lists the memberships of one workspace.
func (c *Client) WorkspaceMembers(ctx context.Context, workspaceSlug string) ([]Membership, error) {
	var out []Membership
	path := fmt.Sprintf("/workspaces/%s/members/", workspaceSlug)
	if err := c.getList(ctx, nil, path, &out); err != nil {
		return nil, fmt.Errorf("list members in %s: %w", workspaceSlug, err)
	}
	return out, nil
}

// ProjectStates finds the workflow states of one project. Deployments differ
// in where they expose states, so a fixed list of candidate endpoints is
// probed in order and the first non-empty answer wins. Results from
// workspace-wide endpoints are filtered down to the project.
func (c *Client) ProjectStates(ctx context.Context, workspaceSlug, projectID string) ([]State, error) {
	candidates := []string{
		fmt.Sprintf("/workspaces/%s/projects/%s/states/", workspaceSlug, projectID),
		fmt.Sprintf("/workspaces/%s/projects/%s/columns/", workspaceSlug, projectID),
		fmt.Sprintf("/projects/%s/states/", projectID),
		fmt.Sprintf("/workspaces/%s/states/", workspaceSlug),
		"/states/",
	}

	for _, path := range candidates {
		var states []State
		if err := c.getList(ctx, nil, path, &states); err != nil {
			continue // probe failures are expected; the next candidate may exist
		}

		var out []State
		for _, st := range states {
			if st.ID == "" {
				continue
			}
			if st.Project != "" && st.Project != projectID {
				continue
			}
			out = append(out, st)
		}
		if len(out) > 0 {
			return out, nil
		}
	}
	return nil, nil
}

// MyInvitations lists pending workspace invitations for the session's user.
func (c *Client) MyInvitations(ctx context.Context, s *Session) ([]Invitation, error) {
	var out []Invitation
	if err := c.getList(ctx, s, "/users/me/workspaces/invitations/", &out); err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	return out, nil
}

// CheckAuth verifies the admin session by fetching the current profile.
func (c *Client) CheckAuth(ctx context.Context) error {
	status, _, err := c.get(ctx, nil, "/users/me/profile/")
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("profile check returned %d", status)
	}
	return nil
}
