package backfill

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/planeseed/planeseed/internal/assign"
	"github.com/planeseed/planeseed/internal/plane"
	"github.com/planeseed/planeseed/internal/seed"
)

// Projects creates every generated project inside its workspace. A generated
// workspace slug that does not exist on the server falls back to the first
// available workspace, logged, so one bad slug does not strand six projects.
func (b *Backfiller) Projects(ctx context.Context) error {
	var projects []seed.Project
	if err := seed.Load(b.dir.Projects(), &projects); err != nil {
		return err
	}

	workspaces, err := b.client.Workspaces(ctx)
	if err != nil {
		return err
	}
	if len(workspaces) == 0 {
		return fmt.Errorf("no workspaces available to create projects in")
	}
	known := map[string]bool{}
	for _, ws := range workspaces {
		known[ws.Slug] = true
	}

	counters := &Counters{}
	results := &resultBuffer{}

	for _, project := range projects {
		slug := project.WorkspaceSlug
		if !known[slug] {
			b.log.WithFields(logrus.Fields{
				"project":    project.Name,
				"workspace":  slug,
				"fellBackTo": workspaces[0].Slug,
			}).Warn("Workspace not found, using first available")
			slug = workspaces[0].Slug
		}

		key := slug + "/" + project.Identifier
		if b.seen("project", key) {
			counters.skipped()
			results.add(key, "ledger", nil)
			continue
		}

		payload := map[string]any{
			"name":            project.Name,
			"identifier":      project.Identifier,
			"description":     project.Description,
			"cover_image":     project.CoverImage,
			"cover_image_url": project.CoverImageURL,
			"logo_props":      project.LogoProps,
			"network":         project.Network,
		}
		err := b.client.CreateProject(ctx, slug, payload)
		b.outcome(counters, results, "project", key, err)
	}

	counters.Log(b.log, "projects")
	return results.flush(b.dir.Results("projects"))
}

// AssignMembers spreads workspace members across projects under the
// configured cardinality bounds and adds the memberships. Admins of the
// workspace are already in every project; only plain members are assigned.
func (b *Backfiller) AssignMembers(ctx context.Context) error {
	workspaces, err := b.client.Workspaces(ctx)
	if err != nil {
		return err
	}

	counters := &Counters{}
	results := &resultBuffer{}
	bounds := assign.Bounds{
		SubjectMin: b.cfg.Assign.ProjectsPerMember.Min,
		SubjectMax: b.cfg.Assign.ProjectsPerMember.Max,
		TargetMin:  b.cfg.Assign.MembersPerProject.Min,
		TargetMax:  b.cfg.Assign.MembersPerProject.Max,
	}

	for _, ws := range workspaces {
		members, err := b.client.WorkspaceMembers(ctx, ws.Slug)
		if err != nil {
			return err
		}
		projects, err := b.client.Projects(ctx, ws.Slug)
		if err != nil {
			return err
		}

		memberIDs := make([]string, 0, len(members))
		for _, m := range members {
			if m.Role >= plane.RoleAdmin {
				continue
			}
			memberIDs = append(memberIDs, m.Member.ID)
		}
		projectIDs := make([]string, 0, len(projects))
		for _, p := range projects {
			projectIDs = append(projectIDs, p.ID)
		}

		var rel *assign.Relation
		var assignErr error
		b.lockedRand(func(rng *rand.Rand) {
			rel, assignErr = assign.Assign(memberIDs, projectIDs, bounds, rng)
		})
		if assignErr != nil {
			return assignErr
		}

		for _, p := range projects {
			assigned := rel.Targets[p.ID]
			if len(assigned) == 0 {
				continue
			}
			payload := make([]plane.ProjectMemberPayload, 0, len(assigned))
			for _, memberID := range assigned {
				role := plane.RoleMember
				if b.intn(10) == 0 {
					role = plane.RoleAdmin
				}
				payload = append(payload, plane.ProjectMemberPayload{MemberID: memberID, Role: role})
			}
			err := b.client.AddProjectMembers(ctx, ws.Slug, p.ID, payload)
			b.outcome(counters, results, "project-members", ws.Slug+"/"+p.ID, err)
		}
	}

	counters.Log(b.log, "project members")
	return results.flush(b.dir.Results("members"))
}
