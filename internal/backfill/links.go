package backfill

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/planeseed/planeseed/internal/assign"
	"github.com/planeseed/planeseed/internal/config"
	"github.com/planeseed/planeseed/internal/plane"
	"github.com/planeseed/planeseed/internal/seed"
)

var relationTypes = []string{"relates_to", "blocked_by", "blocks", "duplicate"}

// Links runs the randomized linking passes over what actually exists on the
// server: issues into cycles, issues into modules, issue hierarchies, a
// sprinkling of typed relations, and quick links for the seeded users.
func (b *Backfiller) Links(ctx context.Context) error {
	if err := b.linkCyclesAndModules(ctx); err != nil {
		return err
	}
	if err := b.linkRelations(ctx); err != nil {
		return err
	}
	if err := b.linkSubIssues(ctx); err != nil {
		return err
	}
	return b.createQuickLinks(ctx)
}

func (b *Backfiller) linkCyclesAndModules(ctx context.Context) error {
	workspaces, err := b.client.Workspaces(ctx)
	if err != nil {
		return err
	}

	counters := &Counters{}
	results := &resultBuffer{}

	for _, ws := range workspaces {
		projects, err := b.client.Projects(ctx, ws.Slug)
		if err != nil {
			return err
		}
		for _, project := range projects {
			issues, err := b.client.ProjectIssues(ctx, ws.Slug, project.ID)
			if err != nil {
				return err
			}
			issueIDs := make([]string, 0, len(issues))
			for _, issue := range issues {
				issueIDs = append(issueIDs, issue.ID)
			}

			// Issues into cycles; the link endpoint is cycle-driven, so the
			// inverse side of the relation feeds it.
			cycles, err := b.client.ProjectCycles(ctx, ws.Slug, project.ID)
			if err != nil {
				return err
			}
			cycleIDs := make([]string, 0, len(cycles))
			for _, cycle := range cycles {
				cycleIDs = append(cycleIDs, cycle.ID)
			}
			rel, err := b.buildRelation(issueIDs, cycleIDs, b.cfg.Assign.CyclesPerIssue)
			if err != nil {
				return err
			}
			for _, cycleID := range cycleIDs {
				linked := rel.Targets[cycleID]
				if len(linked) == 0 {
					continue
				}
				err := b.client.AddIssuesToCycle(ctx, ws.Slug, project.ID, cycleID, linked)
				b.outcome(counters, results, "cycle-link", project.ID+"/"+cycleID, err)
			}

			// Modules onto issues; the link endpoint is issue-driven.
			modules, err := b.client.ProjectModules(ctx, ws.Slug, project.ID)
			if err != nil {
				return err
			}
			moduleIDs := make([]string, 0, len(modules))
			for _, module := range modules {
				moduleIDs = append(moduleIDs, module.ID)
			}
			rel, err = b.buildRelation(moduleIDs, issueIDs, b.cfg.Assign.IssuesPerModule)
			if err != nil {
				return err
			}
			for _, issueID := range issueIDs {
				linked := rel.Targets[issueID]
				if len(linked) == 0 {
					continue
				}
				err := b.client.SetIssueModules(ctx, ws.Slug, project.ID, issueID, linked)
				b.outcome(counters, results, "module-link", project.ID+"/"+issueID, err)
			}
		}
	}

	counters.Log(b.log, "cycle and module links")
	return results.flush(b.dir.Results("links"))
}

// buildRelation wraps assign.Assign with the shared locked RNG. The config
// bounds constrain the subject side; targets take whatever falls on them.
func (b *Backfiller) buildRelation(subjects, targets []string, bounds config.Bounds) (*assign.Relation, error) {
	var rel *assign.Relation
	var err error
	b.lockedRand(func(rng *rand.Rand) {
		rel, err = assign.Assign(subjects, targets, assign.Bounds{
			SubjectMin: bounds.Min,
			SubjectMax: bounds.Max,
			TargetMin:  0,
			TargetMax:  len(subjects),
		}, rng)
	})
	return rel, err
}

// linkRelations records a few typed relations between random issue pairs in
// each project, enough for relation UI surfaces to look lived-in.
func (b *Backfiller) linkRelations(ctx context.Context) error {
	workspaces, err := b.client.Workspaces(ctx)
	if err != nil {
		return err
	}

	counters := &Counters{}
	results := &resultBuffer{}

	for _, ws := range workspaces {
		projects, err := b.client.Projects(ctx, ws.Slug)
		if err != nil {
			return err
		}
		for _, project := range projects {
			issues, err := b.client.ProjectIssues(ctx, ws.Slug, project.ID)
			if err != nil {
				return err
			}
			if len(issues) < 2 {
				continue
			}

			// Roughly one relation per five issues.
			for n := 0; n < len(issues)/5+1; n++ {
				a := issues[b.intn(len(issues))]
				c := issues[b.intn(len(issues))]
				if a.ID == c.ID {
					continue
				}
				relType := relationTypes[b.intn(len(relationTypes))]
				err := b.client.CreateIssueRelation(ctx, ws.Slug, project.ID, a.ID, relType, []string{c.ID})
				b.outcome(counters, results, "relation", a.ID+"/"+relType+"/"+c.ID, err)
			}
		}
	}

	counters.Log(b.log, "issue relations")
	return results.flush(b.dir.Results("relations"))
}

// linkSubIssues nests each project's issues into small parent/child trees,
// the way a team breaks stories down into tasks. The shuffled issue list is
// walked in disjoint chunks so no issue lands in two trees.
func (b *Backfiller) linkSubIssues(ctx context.Context) error {
	workspaces, err := b.client.Workspaces(ctx)
	if err != nil {
		return err
	}

	counters := &Counters{}
	results := &resultBuffer{}

	for _, ws := range workspaces {
		projects, err := b.client.Projects(ctx, ws.Slug)
		if err != nil {
			return err
		}
		for _, project := range projects {
			issues, err := b.client.ProjectIssues(ctx, ws.Slug, project.ID)
			if err != nil {
				return err
			}
			if len(issues) < 2 {
				continue
			}

			ids := make([]string, 0, len(issues))
			for _, issue := range issues {
				ids = append(ids, issue.ID)
			}
			b.lockedRand(func(rng *rand.Rand) {
				rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
			})

			for pos := 0; pos+1 < len(ids); {
				parent := ids[pos]
				k := b.between(1, 4)
				if rest := len(ids) - pos - 1; k > rest {
					k = rest
				}
				children := ids[pos+1 : pos+1+k]
				err := b.client.AddSubIssues(ctx, ws.Slug, project.ID, parent, children)
				b.outcome(counters, results, "sub-issue", project.ID+"/"+parent, err)
				pos += 1 + k
			}
		}
	}

	counters.Log(b.log, "sub-issues")
	return results.flush(b.dir.Results("sub_issues"))
}

// quickLink is one candidate destination for a user's saved links.
type quickLink struct {
	Title string
	URL   string
}

// Menu used when a workspace has no projects or views to point at yet.
var fallbackQuickLinks = []quickLink{
	{"Team Runbook", "https://wiki.example.com/runbook"},
	{"CI Dashboard", "https://ci.example.com/dashboard"},
	{"API Docs", "https://docs.example.com/api"},
	{"Incident Channel", "https://chat.example.com/incidents"},
	{"Design System", "https://design.example.com"},
}

// discoverQuickLinks builds per-workspace link candidates from what actually
// exists on the server: project boards and saved views.
func (b *Backfiller) discoverQuickLinks(ctx context.Context, workspaces []plane.Workspace) (map[string][]quickLink, error) {
	webURL := strings.TrimRight(b.cfg.API.WebURL, "/")
	out := map[string][]quickLink{}

	for _, ws := range workspaces {
		projects, err := b.client.Projects(ctx, ws.Slug)
		if err != nil {
			return nil, err
		}
		var links []quickLink
		for _, project := range projects {
			base := fmt.Sprintf("%s/%s/projects/%s", webURL, ws.Slug, project.ID)
			links = append(links, quickLink{project.Name + " board", base + "/issues/"})
			views, err := b.client.ProjectViews(ctx, ws.Slug, project.ID)
			if err != nil {
				return nil, err
			}
			for _, view := range views {
				links = append(links, quickLink{view.Name, fmt.Sprintf("%s/views/%s/", base, view.ID)})
			}
		}
		if len(links) == 0 {
			links = fallbackQuickLinks
		}
		out[ws.Slug] = links
	}
	return out, nil
}

// createQuickLinks logs in as a sample of the seeded users and saves a quick
// link under each, since quick links are per-user. Links point at discovered
// project boards and views rather than canned URLs.
func (b *Backfiller) createQuickLinks(ctx context.Context) error {
	var users []seed.User
	if err := seed.Load(b.dir.Users(), &users); err != nil {
		return err
	}
	workspaces, err := b.client.Workspaces(ctx)
	if err != nil {
		return err
	}
	candidates, err := b.discoverQuickLinks(ctx, workspaces)
	if err != nil {
		return err
	}

	counters := &Counters{}
	results := &resultBuffer{}

	// A third of users is plenty; every user having identical links reads
	// as fake.
	step := 3
	for i := 0; i < len(users); i += step {
		user := users[i]
		session, err := b.client.LoginAs(ctx, user.Email, user.Password)
		if err != nil {
			counters.failed()
			results.add(user.Email, "login-failed", err)
			continue
		}
		for _, ws := range workspaces {
			links := candidates[ws.Slug]
			link := links[b.intn(len(links))]
			key := user.Email + "/" + ws.Slug + "/" + link.Title
			if b.seen("quick-link", key) {
				counters.skipped()
				results.add(key, "ledger", nil)
				continue
			}
			err := b.client.CreateQuickLink(ctx, session, ws.Slug, link.Title, link.URL)
			b.outcome(counters, results, "quick-link", key, err)
		}
	}

	counters.Log(b.log, "quick links")
	return results.flush(b.dir.Results("quick_links"))
}
