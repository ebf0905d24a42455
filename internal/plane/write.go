package plane

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// CreateWorkspace creates a workspace. A duplicate slug surfaces as
// ErrAlreadyExists.
func (c *Client) CreateWorkspace(ctx context.Context, w WorkspacePayload) error {
	status, body, err := c.postJSON(ctx, nil, "/workspaces/", c.referer("/"), w)
	if err != nil {
		return err
	}
	return writeResult(status, body, "slug")
}

// CreateProject creates a project from a generated payload. The payload is a
// map because generated projects carry presentation fields (cover image,
// logo props) that pass through untouched.
func (c *Client) CreateProject(ctx context.Context, workspaceSlug string, payload map[string]any) error {
	path := fmt.Sprintf("/workspaces/%s/projects/", workspaceSlug)
	status, body, err := c.postJSON(ctx, nil, path, c.referer("/"+workspaceSlug+"/"), payload)
	if err != nil {
		return err
	}
	return writeResult(status, body, "identifier", "name")
}

// CreateIssue creates an issue with already-resolved IDs.
func (c *Client) CreateIssue(ctx context.Context, workspaceSlug, projectID string, payload IssuePayload) error {
	path := fmt.Sprintf("/workspaces/%s/projects/%s/issues/", workspaceSlug, projectID)
	status, body, err := c.postJSON(ctx, nil, path, c.projectReferer(workspaceSlug, projectID), payload)
	if err != nil {
		return err
	}
	return writeResult(status, body)
}

// CreateCycle creates a cycle.
func (c *Client) CreateCycle(ctx context.Context, workspaceSlug, projectID string, payload CyclePayload) error {
	path := fmt.Sprintf("/workspaces/%s/projects/%s/cycles/", workspaceSlug, projectID)
	status, body, err := c.postJSON(ctx, nil, path, c.projectReferer(workspaceSlug, projectID), payload)
	if err != nil {
		return err
	}
	return writeResult(status, body)
}

// CreateModule creates a module.
func (c *Client) CreateModule(ctx context.Context, workspaceSlug, projectID string, payload ModulePayload) error {
	path := fmt.Sprintf("/workspaces/%s/projects/%s/modules/", workspaceSlug, projectID)
	status, body, err := c.postJSON(ctx, nil, path, c.projectReferer(workspaceSlug, projectID), payload)
	if err != nil {
		return err
	}
	return writeResult(status, body, "name")
}

// CreateView creates a saved view. Generated views carry free-form filter
// structures, so the payload stays a map.
func (c *Client) CreateView(ctx context.Context, workspaceSlug, projectID string, payload map[string]any) error {
	path := fmt.Sprintf("/workspaces/%s/projects/%s/views/", workspaceSlug, projectID)
	status, body, err := c.postJSON(ctx, nil, path, c.projectReferer(workspaceSlug, projectID), payload)
	if err != nil {
		return err
	}
	return writeResult(status, body, "name")
}

// CreateComment posts an HTML comment on an issue.
func (c *Client) CreateComment(ctx context.Context, workspaceSlug, projectID, issueID, commentHTML string) error {
	path := fmt.Sprintf("/workspaces/%s/projects/%s/issues/%s/comments/", workspaceSlug, projectID, issueID)
	payload := map[string]string{"comment_html": commentHTML}
	status, body, err := c.postJSON(ctx, nil, path, c.projectReferer(workspaceSlug, projectID), payload)
	if err != nil {
		return err
	}
	return writeResult(status, body)
}

// CreateQuickLink creates a quick link for the session's user.
func (c *Client) CreateQuickLink(ctx context.Context, s *Session, workspaceSlug, title, linkURL string) error {
	path := fmt.Sprintf("/workspaces/%s/quick-links/", workspaceSlug)
	payload := map[string]string{"title": title, "url": linkURL}
	status, body, err := c.postJSON(ctx, s, path, c.referer("/"+workspaceSlug+"/"), payload)
	if err != nil {
		return err
	}
	return writeResult(status, body)
}

// AddIssuesToCycle links issues into a cycle.
func (c *Client) AddIssuesToCycle(ctx context.Context, workspaceSlug, projectID, cycleID string, issueIDs []string) error {
	path := fmt.Sprintf("/workspaces/%s/projects/%s/cycles/%s/cycle-issues/", workspaceSlug, projectID, cycleID)
	payload := map[string][]string{"issues": issueIDs}
	status, body, err := c.postJSON(ctx, nil, path, c.projectReferer(workspaceSlug, projectID), payload)
	if err != nil {
		return err
	}
	return writeResult(status, body)
}

// SetIssueModules attaches modules to an issue.
func (c *Client) SetIssueModules(ctx context.Context, workspaceSlug, projectID, issueID string, moduleIDs []string) error {
	path := fmt.Sprintf("/workspaces/%s/projects/%s/issues/%s/modules/", workspaceSlug, projectID, issueID)
	payload := map[string]any{"modules": moduleIDs, "removed_modules": []string{}}
	status, body, err := c.postJSON(ctx, nil, path, c.projectReferer(workspaceSlug, projectID), payload)
	if err != nil {
		return err
	}
	return writeResult(status, body)
}

// CreateIssueRelation records a typed relation (relates_to, blocked_by,
// blocks, duplicate) between an issue and others.
func (c *Client) CreateIssueRelation(ctx context.Context, workspaceSlug, projectID, issueID, relationType string, relatedIssueIDs []string) error {
	path := fmt.Sprintf("/workspaces/%s/projects/%s/issues/%s/issue-relation/", workspaceSlug, projectID, issueID)
	payload := map[string]any{"relation_type": relationType, "issues": relatedIssueIDs}
	status, body, err := c.postJSON(ctx, nil, path, c.projectReferer(workspaceSlug, projectID), payload)
	if err != nil {
		return err
	}
	return writeResult(status, body)
}

// AddSubIssues attaches sub-issues under a parent.
func (c *Client) AddSubIssues(ctx context.Context, workspaceSlug, projectID, parentIssueID string, subIssueIDs []string) error {
	path := fmt.Sprintf("/workspaces/%s/projects/%s/issues/%s/sub-issues/", workspaceSlug, projectID, parentIssueID)
	payload := map[string][]string{"sub_issue_ids": subIssueIDs}
	status, body, err := c.postJSON(ctx, nil, path, c.projectReferer(workspaceSlug, projectID), payload)
	if err != nil {
		return err
	}
	return writeResult(status, body)
}

// AddProjectMembers adds workspace members to a project with their roles.
func (c *Client) AddProjectMembers(ctx context.Context, workspaceSlug, projectID string, members []ProjectMemberPayload) error {
	path := fmt.Sprintf("/workspaces/%s/projects/%s/members/", workspaceSlug, projectID)
	payload := map[string][]ProjectMemberPayload{"members": members}
	status, body, err := c.postJSON(ctx, nil, path, c.projectReferer(workspaceSlug, projectID), payload)
	if err != nil {
		return err
	}
	return writeResult(status, body)
}

// InviteMembers sends workspace invitations.
func (c *Client) InviteMembers(ctx context.Context, workspaceSlug string, invites []InviteEmail) error {
	path := fmt.Sprintf("/workspaces/%s/invitations/", workspaceSlug)
	payload := map[string][]InviteEmail{"emails": invites}
	referer := c.referer(fmt.Sprintf("/workspaces/%s/settings/members", workspaceSlug))
	status, body, err := c.postJSON(ctx, nil, path, referer, payload)
	if err != nil {
		return err
	}
	return writeResult(status, body)
}

// AcceptInvitations accepts pending invitations as the session's user.
func (c *Client) AcceptInvitations(ctx context.Context, s *Session, invitationIDs []string) error {
	payload := map[string][]string{"invitations": invitationIDs}
	status, body, err := c.postJSON(ctx, s, "/users/me/workspaces/invitations/", c.referer("/"), payload)
	if err != nil {
		return err
	}
	return writeResult(status, body)
}

// SignUp registers a new user account. The endpoint answers 302 on success
// and 409 when the email is taken.
func (c *Client) SignUp(ctx context.Context, email, password string) error {
	form := url.Values{"email": {email}, "password": {password}}
	status, body, err := c.postForm(ctx, nil, "/auth/sign-up/", c.cfg.WebURL+"/", form)
	if err != nil {
		return err
	}
	if status == http.StatusFound || status == http.StatusOK {
		return nil
	}
	return writeResult(status, body)
}

// UpdateMe sets the display name fields of the session's user.
func (c *Client) UpdateMe(ctx context.Context, s *Session, fields map[string]any) error {
	status, body, err := c.patchJSON(ctx, s, "/users/me/", c.referer("/profile/"), fields)
	if err != nil {
		return err
	}
	return writeResult(status, body)
}

// UpdateMyProfile sets profile attributes (role, timezone, onboarding) of
// the session's user.
func (c *Client) UpdateMyProfile(ctx context.Context, s *Session, fields map[string]any) error {
	status, body, err := c.patchJSON(ctx, s, "/users/me/profile/", c.referer("/profile/"), fields)
	if err != nil {
		return err
	}
	return writeResult(status, body)
}

func (c *Client) projectReferer(workspaceSlug, projectID string) string {
	return c.referer(fmt.Sprintf("/workspaces/%s/projects/%s/", workspaceSlug, projectID))
}
