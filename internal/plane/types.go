package plane

// Workspace is the top-level tenant container in the target system.
type Workspace struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Project lives inside a workspace. Identifier is the short uppercase code
// shown in issue keys.
type Project struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Identifier string `json:"identifier"`
}

// Issue is a work item inside a project.
type Issue struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Cycle is a time-boxed iteration inside a project.
type Cycle struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Module groups issues inside a project.
type Module struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// State is a workflow column. The project field is used to filter states
// fetched from workspace-wide endpoints.
type State struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Project string `json:"project"`
}

// View is a saved filter inside a project.
type View struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MemberUser is the nested user object inside a membership record.
type MemberUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Membership links a user to a workspace or project with a role.
type Membership struct {
	ID     string     `json:"id"`
	Member MemberUser `json:"member"`
	Role   int        `json:"role"`
}

// Invitation is a pending workspace invitation for the current user.
type Invitation struct {
	ID string `json:"id"`
}

// WorkspacePayload creates a workspace.
type WorkspacePayload struct {
	Name             string `json:"name"`
	Slug             string `json:"slug"`
	OrganizationSize string `json:"organization_size"`
}

// CyclePayload creates a cycle.
type CyclePayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
}

// IssuePayload creates an issue. IDs are already resolved; human references
// never reach the wire.
type IssuePayload struct {
	Name            string   `json:"name"`
	DescriptionHTML string   `json:"description_html"`
	Priority        string   `json:"priority"`
	AssigneeIDs     []string `json:"assignee_ids"`
	LabelIDs        []string `json:"label_ids"`
	CycleID         string   `json:"cycle_id,omitempty"`
	StateID         string   `json:"state_id,omitempty"`
	ModuleIDs       []string `json:"module_ids,omitempty"`
	EstimatePoint   *int     `json:"estimate_point"`
	StartDate       string   `json:"start_date,omitempty"`
	TargetDate      string   `json:"target_date,omitempty"`
}

// ModulePayload creates a module.
type ModulePayload struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Status      string   `json:"status,omitempty"`
	LeadID      string   `json:"lead_id,omitempty"`
	MemberIDs   []string `json:"member_ids,omitempty"`
	StartDate   string   `json:"start_date,omitempty"`
	TargetDate  string   `json:"target_date,omitempty"`
}

// ProjectMemberPayload adds one member to a project.
type ProjectMemberPayload struct {
	MemberID string `json:"member_id"`
	Role     int    `json:"role"`
}

// InviteEmail is one entry of a workspace invitation request.
type InviteEmail struct {
	Email string `json:"email"`
	Role  int    `json:"role"`
}

// Role values accepted by the membership endpoints.
const (
	RoleGuest  = 5
	RoleMember = 15
	RoleAdmin  = 20
)
