// Package planetest is an in-process stand-in for the target application's
// REST API, used to test the client, resolvers and backfillers without a
// live deployment. It speaks just enough of the protocol: the CSRF/sign-in
// flow, envelope and bare list shapes, and duplicate detection on writes.
package planetest

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Credentials accepted by the fake sign-in endpoint.
const (
	AdminEmail    = "admin@example.com"
	AdminPassword = "seed-me-up"
)

const sessionCookie = "session-id"

// Server holds the fake deployment's state behind one mutex; handler
// concurrency matches what the real client will throw at it.
type Server struct {
	mu sync.Mutex

	// Envelope controls whether list endpoints answer {"results": [...]}
	// instead of a bare array.
	Envelope bool

	// FailDiscovery makes every list endpoint answer 502, for testing the
	// hard-stop on discovery failure.
	FailDiscovery bool

	users       map[string]string // email -> password
	userIDs     map[string]string // email -> id
	sessions    map[string]string // session id -> email
	workspaces  []gin.H
	projects    map[string][]gin.H // workspace slug -> projects
	issues      map[string][]gin.H // slug/projectID -> issues
	cycles      map[string][]gin.H
	modules     map[string][]gin.H
	views       map[string][]gin.H
	comments    map[string][]gin.H // issue id -> comments
	states      map[string][]gin.H // workspace slug -> states
	cycleLinks  map[string][]string
	issueLinks  map[string][]string // issue id -> module ids
	subIssues   map[string][]string // parent issue id -> child ids
	relations   map[string][]gin.H  // issue id -> relations
	projMembers map[string][]gin.H  // project id -> memberships
	invitations map[string][]gin.H  // email -> pending invitations
	profiles    map[string]gin.H    // email -> patched profile fields
	quickLinks  map[string][]gin.H  // email -> quick links
	router      *gin.Engine
}

// NewServer creates an empty fake deployment with the admin user present.
func NewServer() *Server {
	gin.SetMode(gin.TestMode)
	s := &Server{
		users:       map[string]string{AdminEmail: AdminPassword},
		userIDs:     map[string]string{AdminEmail: uuid.NewString()},
		sessions:    map[string]string{},
		projects:    map[string][]gin.H{},
		issues:      map[string][]gin.H{},
		cycles:      map[string][]gin.H{},
		modules:     map[string][]gin.H{},
		views:       map[string][]gin.H{},
		comments:    map[string][]gin.H{},
		states:      map[string][]gin.H{},
		cycleLinks:  map[string][]string{},
		issueLinks:  map[string][]string{},
		subIssues:   map[string][]string{},
		relations:   map[string][]gin.H{},
		projMembers: map[string][]gin.H{},
		invitations: map[string][]gin.H{},
		profiles:    map[string]gin.H{},
		quickLinks:  map[string][]gin.H{},
	}
	s.router = s.buildRouter()
	return s
}

// Handler returns the HTTP handler, for use with httptest.NewServer.
func (s *Server) Handler() http.Handler { return s.router }

// SeedWorkspace registers a workspace directly, bypassing the API.
func (s *Server) SeedWorkspace(name, slug string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workspaces = append(s.workspaces, gin.H{"id": uuid.NewString(), "name": name, "slug": slug})
}

// SeedProject registers a project directly and returns its id.
func (s *Server) SeedProject(slug, name, identifier string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.projects[slug] = append(s.projects[slug], gin.H{"id": id, "name": name, "identifier": identifier})
	return id
}

// SeedIssue registers an issue directly and returns its id.
func (s *Server) SeedIssue(slug, projectID, name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	key := slug + "/" + projectID
	s.issues[key] = append(s.issues[key], gin.H{"id": id, "name": name})
	return id
}

// SeedCycle registers a cycle directly and returns its id.
func (s *Server) SeedCycle(slug, projectID, name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	key := slug + "/" + projectID
	s.cycles[key] = append(s.cycles[key], gin.H{"id": id, "name": name})
	return id
}

// SeedView registers a saved view directly and returns its id.
func (s *Server) SeedView(slug, projectID, name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	key := slug + "/" + projectID
	s.views[key] = append(s.views[key], gin.H{"id": id, "name": name})
	return id
}

// SeedState registers a workflow state directly and returns its id. States
// are served from the workspace-wide endpoint only, as some deployments do.
func (s *Server) SeedState(slug, projectID, name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.states[slug] = append(s.states[slug], gin.H{"id": id, "name": name, "project": projectID})
	return id
}

// Comments returns the comments created on an issue.
func (s *Server) Comments(issueID string) []gin.H {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]gin.H(nil), s.comments[issueID]...)
}

// CycleIssues returns the issue ids linked into a cycle.
func (s *Server) CycleIssues(cycleID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.cycleLinks[cycleID]...)
}

// Profile returns the accumulated profile patches for a user.
func (s *Server) Profile(email string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]any{}
	for k, v := range s.profiles[email] {
		out[k] = v
	}
	return out
}

// QuickLinks returns the quick links saved by a user.
func (s *Server) QuickLinks(email string) []gin.H {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]gin.H(nil), s.quickLinks[email]...)
}

// ProjectMemberCount reports how many memberships were added to a project.
func (s *Server) ProjectMemberCount(projectID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.projMembers[projectID])
}

// IssueModules returns the module ids linked onto an issue.
func (s *Server) IssueModules(issueID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.issueLinks[issueID]...)
}

// SubIssues returns the child issue ids nested under a parent.
func (s *Server) SubIssues(parentID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.subIssues[parentID]...)
}

// PendingInvitations reports how many invitations a user has not accepted.
func (s *Server) PendingInvitations(email string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.invitations[email])
}

// WorkspaceCount reports how many workspaces exist.
func (s *Server) WorkspaceCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.workspaces)
}

func (s *Server) buildRouter() *gin.Engine {
	r := gin.New()

	r.GET("/auth/get-csrf-token/", func(c *gin.Context) {
		token := uuid.NewString()
		c.SetCookie("csrftoken", token, 3600, "/", "", false, false)
		c.JSON(http.StatusOK, gin.H{"csrf_token": token})
	})

	r.POST("/auth/sign-in/", func(c *gin.Context) {
		email := c.PostForm("email")
		password := c.PostForm("password")
		if c.PostForm("csrfmiddlewaretoken") == "" {
			c.String(http.StatusForbidden, "CSRF token missing")
			return
		}
		s.mu.Lock()
		stored, ok := s.users[email]
		s.mu.Unlock()
		if !ok || stored != password {
			c.String(http.StatusUnauthorized, "invalid credentials")
			return
		}
		sid := uuid.NewString()
		s.mu.Lock()
		s.sessions[sid] = email
		s.mu.Unlock()
		c.SetCookie(sessionCookie, sid, 3600, "/", "", false, true)
		c.Redirect(http.StatusFound, "/")
	})

	r.POST("/auth/sign-up/", func(c *gin.Context) {
		email := c.PostForm("email")
		password := c.PostForm("password")
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, exists := s.users[email]; exists {
			c.String(http.StatusConflict, "user already exists")
			return
		}
		s.users[email] = password
		s.userIDs[email] = uuid.NewString()
		c.Redirect(http.StatusFound, "/")
	})

	api := r.Group("/api", s.requireSession)
	{
		api.GET("/users/me/profile/", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"user": c.GetString("email")})
		})

		api.GET("/users/me/workspaces/", func(c *gin.Context) {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.list(c, s.workspaces)
		})

		api.POST("/workspaces/", func(c *gin.Context) {
			var payload struct {
				Name string `json:"name"`
				Slug string `json:"slug"`
			}
			if err := c.BindJSON(&payload); err != nil {
				return
			}
			s.mu.Lock()
			defer s.mu.Unlock()
			for _, ws := range s.workspaces {
				if ws["slug"] == payload.Slug {
					c.String(http.StatusBadRequest, "workspace with this slug already exists")
					return
				}
			}
			ws := gin.H{"id": uuid.NewString(), "name": payload.Name, "slug": payload.Slug}
			s.workspaces = append(s.workspaces, ws)
			c.JSON(http.StatusCreated, ws)
		})

		api.GET("/workspaces/:slug/projects/", func(c *gin.Context) {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.list(c, s.projects[c.Param("slug")])
		})

		api.POST("/workspaces/:slug/projects/", func(c *gin.Context) {
			var payload map[string]any
			if err := c.BindJSON(&payload); err != nil {
				return
			}
			slug := c.Param("slug")
			s.mu.Lock()
			defer s.mu.Unlock()
			for _, p := range s.projects[slug] {
				if p["name"] == payload["name"] || p["identifier"] == payload["identifier"] {
					c.String(http.StatusBadRequest, "project name or identifier already taken")
					return
				}
			}
			proj := gin.H{
				"id":         uuid.NewString(),
				"name":       payload["name"],
				"identifier": payload["identifier"],
			}
			s.projects[slug] = append(s.projects[slug], proj)
			c.JSON(http.StatusCreated, proj)
		})

		api.GET("/workspaces/:slug/projects/:project/issues/", func(c *gin.Context) {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.list(c, s.issues[scopedKey(c)])
		})

		api.POST("/workspaces/:slug/projects/:project/issues/", func(c *gin.Context) {
			if !s.requireCSRF(c) {
				return
			}
			var payload map[string]any
			if err := c.BindJSON(&payload); err != nil {
				return
			}
			s.mu.Lock()
			defer s.mu.Unlock()
			issue := gin.H{"id": uuid.NewString(), "name": payload["name"]}
			s.issues[scopedKey(c)] = append(s.issues[scopedKey(c)], issue)
			c.JSON(http.StatusCreated, issue)
		})

		api.GET("/workspaces/:slug/projects/:project/cycles/", func(c *gin.Context) {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.list(c, s.cycles[scopedKey(c)])
		})

		api.POST("/workspaces/:slug/projects/:project/cycles/", func(c *gin.Context) {
			var payload map[string]any
			if err := c.BindJSON(&payload); err != nil {
				return
			}
			s.mu.Lock()
			defer s.mu.Unlock()
			cycle := gin.H{"id": uuid.NewString(), "name": payload["name"]}
			s.cycles[scopedKey(c)] = append(s.cycles[scopedKey(c)], cycle)
			c.JSON(http.StatusCreated, cycle)
		})

		api.GET("/workspaces/:slug/projects/:project/modules/", func(c *gin.Context) {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.list(c, s.modules[scopedKey(c)])
		})

		api.POST("/workspaces/:slug/projects/:project/modules/", func(c *gin.Context) {
			var payload map[string]any
			if err := c.BindJSON(&payload); err != nil {
				return
			}
			s.mu.Lock()
			defer s.mu.Unlock()
			module := gin.H{"id": uuid.NewString(), "name": payload["name"]}
			s.modules[scopedKey(c)] = append(s.modules[scopedKey(c)], module)
			c.JSON(http.StatusCreated, module)
		})

		api.POST("/workspaces/:slug/projects/:project/issues/:issue/comments/", func(c *gin.Context) {
			if !s.requireCSRF(c) {
				return
			}
			var payload struct {
				CommentHTML string `json:"comment_html"`
			}
			if err := c.BindJSON(&payload); err != nil {
				return
			}
			s.mu.Lock()
			defer s.mu.Unlock()
			issueID := c.Param("issue")
			s.comments[issueID] = append(s.comments[issueID],
				gin.H{"id": uuid.NewString(), "comment_html": payload.CommentHTML})
			c.JSON(http.StatusCreated, gin.H{})
		})

		api.POST("/workspaces/:slug/projects/:project/cycles/:cycle/cycle-issues/", func(c *gin.Context) {
			var payload struct {
				Issues []string `json:"issues"`
			}
			if err := c.BindJSON(&payload); err != nil {
				return
			}
			s.mu.Lock()
			defer s.mu.Unlock()
			cycleID := c.Param("cycle")
			s.cycleLinks[cycleID] = append(s.cycleLinks[cycleID], payload.Issues...)
			c.JSON(http.StatusCreated, gin.H{})
		})

		api.POST("/workspaces/:slug/projects/:project/issues/:issue/modules/", func(c *gin.Context) {
			var payload struct {
				Modules []string `json:"modules"`
			}
			if err := c.BindJSON(&payload); err != nil {
				return
			}
			s.mu.Lock()
			defer s.mu.Unlock()
			s.issueLinks[c.Param("issue")] = payload.Modules
			c.JSON(http.StatusCreated, gin.H{})
		})

		api.POST("/workspaces/:slug/projects/:project/issues/:issue/sub-issues/", func(c *gin.Context) {
			var payload struct {
				SubIssueIDs []string `json:"sub_issue_ids"`
			}
			if err := c.BindJSON(&payload); err != nil {
				return
			}
			s.mu.Lock()
			defer s.mu.Unlock()
			parentID := c.Param("issue")
			s.subIssues[parentID] = append(s.subIssues[parentID], payload.SubIssueIDs...)
			c.JSON(http.StatusCreated, gin.H{})
		})

		api.POST("/workspaces/:slug/projects/:project/issues/:issue/issue-relation/", func(c *gin.Context) {
			var payload struct {
				RelationType string   `json:"relation_type"`
				Issues       []string `json:"issues"`
			}
			if err := c.BindJSON(&payload); err != nil {
				return
			}
			s.mu.Lock()
			defer s.mu.Unlock()
			issueID := c.Param("issue")
			s.relations[issueID] = append(s.relations[issueID],
				gin.H{"relation_type": payload.RelationType, "issues": payload.Issues})
			c.JSON(http.StatusCreated, gin.H{})
		})

		api.GET("/workspaces/:slug/projects/:project/views/", func(c *gin.Context) {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.list(c, s.views[scopedKey(c)])
		})

		api.POST("/workspaces/:slug/projects/:project/views/", func(c *gin.Context) {
			var payload map[string]any
			if err := c.BindJSON(&payload); err != nil {
				return
			}
			s.mu.Lock()
			defer s.mu.Unlock()
			for _, v := range s.views[scopedKey(c)] {
				if v["name"] == payload["name"] {
					c.String(http.StatusBadRequest, "view with this name already exists")
					return
				}
			}
			view := gin.H{"id": uuid.NewString(), "name": payload["name"]}
			s.views[scopedKey(c)] = append(s.views[scopedKey(c)], view)
			c.JSON(http.StatusCreated, view)
		})

		api.GET("/workspaces/:slug/states/", func(c *gin.Context) {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.list(c, s.states[c.Param("slug")])
		})

		api.GET("/workspaces/:slug/members/", func(c *gin.Context) {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.list(c, s.workspaceMemberships())
		})

		api.GET("/workspaces/:slug/projects/:project/members/", func(c *gin.Context) {
			s.mu.Lock()
			defer s.mu.Unlock()
			members := s.projMembers[c.Param("project")]
			if members == nil {
				// Projects start with their creator; the admin stands in.
				members = s.workspaceMemberships()[:1]
			}
			s.list(c, members)
		})

		api.POST("/workspaces/:slug/projects/:project/members/", func(c *gin.Context) {
			var payload struct {
				Members []gin.H `json:"members"`
			}
			if err := c.BindJSON(&payload); err != nil {
				return
			}
			s.mu.Lock()
			defer s.mu.Unlock()
			projectID := c.Param("project")
			for _, m := range payload.Members {
				s.projMembers[projectID] = append(s.projMembers[projectID], gin.H{
					"id":     uuid.NewString(),
					"member": gin.H{"id": m["member_id"]},
					"role":   m["role"],
				})
			}
			c.JSON(http.StatusCreated, gin.H{})
		})

		api.POST("/workspaces/:slug/invitations/", func(c *gin.Context) {
			var payload struct {
				Emails []struct {
					Email string `json:"email"`
					Role  int    `json:"role"`
				} `json:"emails"`
			}
			if err := c.BindJSON(&payload); err != nil {
				return
			}
			s.mu.Lock()
			defer s.mu.Unlock()
			slug := c.Param("slug")
			for _, invite := range payload.Emails {
				s.invitations[invite.Email] = append(s.invitations[invite.Email],
					gin.H{"id": uuid.NewString(), "workspace_slug": slug, "role": invite.Role})
			}
			c.JSON(http.StatusCreated, gin.H{})
		})

		api.GET("/users/me/workspaces/invitations/", func(c *gin.Context) {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.list(c, s.invitations[c.GetString("email")])
		})

		api.POST("/users/me/workspaces/invitations/", func(c *gin.Context) {
			var payload struct {
				Invitations []string `json:"invitations"`
			}
			if err := c.BindJSON(&payload); err != nil {
				return
			}
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.invitations, c.GetString("email"))
			c.JSON(http.StatusNoContent, gin.H{})
		})

		api.PATCH("/users/me/", func(c *gin.Context) {
			s.patchProfile(c)
		})

		api.PATCH("/users/me/profile/", func(c *gin.Context) {
			s.patchProfile(c)
		})

		api.POST("/workspaces/:slug/quick-links/", func(c *gin.Context) {
			var payload gin.H
			if err := c.BindJSON(&payload); err != nil {
				return
			}
			s.mu.Lock()
			defer s.mu.Unlock()
			email := c.GetString("email")
			s.quickLinks[email] = append(s.quickLinks[email], payload)
			c.JSON(http.StatusCreated, gin.H{})
		})
	}

	return r
}

// workspaceMemberships renders every known user as a workspace member, with
// the admin first. Callers hold the mutex.
func (s *Server) workspaceMemberships() []gin.H {
	members := []gin.H{{
		"id":     uuid.NewString(),
		"member": gin.H{"id": s.userIDs[AdminEmail], "email": AdminEmail},
		"role":   20,
	}}
	for email, id := range s.userIDs {
		if email == AdminEmail {
			continue
		}
		members = append(members, gin.H{
			"id":     uuid.NewString(),
			"member": gin.H{"id": id, "email": email},
			"role":   15,
		})
	}
	return members
}

func (s *Server) patchProfile(c *gin.Context) {
	var payload gin.H
	if err := c.BindJSON(&payload); err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	email := c.GetString("email")
	if s.profiles[email] == nil {
		s.profiles[email] = gin.H{}
	}
	for k, v := range payload {
		s.profiles[email][k] = v
	}
	c.JSON(http.StatusOK, s.profiles[email])
}

// requireSession gates /api behind the session cookie, as the real
// deployment does.
func (s *Server) requireSession(c *gin.Context) {
	sid, err := c.Cookie(sessionCookie)
	if err != nil {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	s.mu.Lock()
	email, ok := s.sessions[sid]
	s.mu.Unlock()
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	c.Set("email", email)
	c.Next()
}

// requireCSRF checks the X-CSRFToken header on write endpoints that the
// real deployment protects.
func (s *Server) requireCSRF(c *gin.Context) bool {
	if c.GetHeader("X-CSRFToken") == "" {
		c.String(http.StatusForbidden, "CSRF token missing")
		return false
	}
	return true
}

// list renders a collection in whichever shape the server is configured
// for, or fails it wholesale when FailDiscovery is set.
func (s *Server) list(c *gin.Context, items []gin.H) {
	if s.FailDiscovery {
		c.String(http.StatusBadGateway, "upstream unavailable")
		return
	}
	if items == nil {
		items = []gin.H{}
	}
	if s.Envelope {
		c.JSON(http.StatusOK, gin.H{"count": len(items), "results": items})
		return
	}
	c.JSON(http.StatusOK, items)
}

func scopedKey(c *gin.Context) string {
	return fmt.Sprintf("%s/%s", c.Param("slug"), c.Param("project"))
}
