package backfill

import (
	"context"
	"math/rand"
	"sync"

	"github.com/planeseed/planeseed/internal/plane"
	"github.com/planeseed/planeseed/internal/resolve"
	"github.com/planeseed/planeseed/internal/seed"
)

// projectContext is everything one project's issues resolve against: states,
// cycles, modules and members, fetched once per project per pass.
type projectContext struct {
	states  []plane.State
	cycles  []plane.Cycle
	modules []plane.Module
	members []plane.Membership
}

type contextCache struct {
	mu    sync.Mutex
	cache map[string]*projectContext
}

// Issues creates every generated issue concurrently. References are resolved
// through the project mapping; positional cycle, state and module indices are
// mapped onto whatever the target project actually has.
func (b *Backfiller) Issues(ctx context.Context) error {
	var issues []seed.Issue
	if err := seed.Load(b.dir.Issues(), &issues); err != nil {
		return err
	}

	resolver := resolve.NewProjectResolver(b.client, resolve.WithFallback())
	if err := resolver.Build(ctx); err != nil {
		return err
	}

	counters := &Counters{}
	results := &resultBuffer{}
	contexts := &contextCache{cache: map[string]*projectContext{}}

	err := b.workerPool(ctx, len(issues), func(ctx context.Context, i int) error {
		issue := issues[i]

		rec, err := resolver.Resolve(ctx, issue.ProjectName, issue.ProjectIdentifier)
		if err != nil {
			// Only structural failures reach here with fallback enabled.
			return err
		}

		key := resolve.IssueKey(rec.ProjectName, issue.Name)
		if b.seen("issue", key) {
			counters.skipped()
			results.add(key, "ledger", nil)
			return nil
		}

		pc, err := b.projectContext(ctx, contexts, rec)
		if err != nil {
			counters.failed()
			results.add(key, "failed", err)
			return nil
		}

		err = b.client.CreateIssue(ctx, rec.WorkspaceSlug, rec.ProjectID, b.issuePayload(issue, pc))
		b.outcome(counters, results, "issue", key, err)
		return nil
	})
	if err != nil {
		return err
	}

	counters.Log(b.log, "issues")
	return results.flush(b.dir.Results("issues"))
}

// issuePayload maps a generated issue onto the project's real IDs. Indices
// wrap rather than fail: the generator assumed counts the deployment may not
// have.
func (b *Backfiller) issuePayload(issue seed.Issue, pc *projectContext) plane.IssuePayload {
	payload := plane.IssuePayload{
		Name:            issue.Name,
		DescriptionHTML: issue.DescriptionHTML,
		Priority:        issue.Priority,
		AssigneeIDs:     []string{},
		LabelIDs:        []string{},
		EstimatePoint:   issue.EstimatePoint,
		StartDate:       issue.StartDate,
		TargetDate:      issue.TargetDate,
	}

	if n := issue.AssigneeCount; n > 0 && len(pc.members) > 0 {
		if n > len(pc.members) {
			n = len(pc.members)
		}
		var idx []int
		b.lockedRand(func(rng *rand.Rand) { idx = rng.Perm(len(pc.members))[:n] })
		for _, i := range idx {
			payload.AssigneeIDs = append(payload.AssigneeIDs, pc.members[i].Member.ID)
		}
	}
	if issue.StateIndex != nil && len(pc.states) > 0 {
		payload.StateID = pc.states[*issue.StateIndex%len(pc.states)].ID
	}
	if issue.CycleIndex != nil && len(pc.cycles) > 0 {
		payload.CycleID = pc.cycles[*issue.CycleIndex%len(pc.cycles)].ID
	}
	if issue.ModuleIndex != nil && len(pc.modules) > 0 {
		payload.ModuleIDs = []string{pc.modules[*issue.ModuleIndex%len(pc.modules)].ID}
	}
	return payload
}

func (b *Backfiller) projectContext(ctx context.Context, cache *contextCache, rec resolve.Record) (*projectContext, error) {
	cache.mu.Lock()
	if pc, ok := cache.cache[rec.ProjectID]; ok {
		cache.mu.Unlock()
		return pc, nil
	}
	cache.mu.Unlock()

	states, err := b.client.ProjectStates(ctx, rec.WorkspaceSlug, rec.ProjectID)
	if err != nil {
		return nil, err
	}
	cycles, err := b.client.ProjectCycles(ctx, rec.WorkspaceSlug, rec.ProjectID)
	if err != nil {
		return nil, err
	}
	modules, err := b.client.ProjectModules(ctx, rec.WorkspaceSlug, rec.ProjectID)
	if err != nil {
		return nil, err
	}
	members, err := b.client.ProjectMembers(ctx, rec.WorkspaceSlug, rec.ProjectID)
	if err != nil {
		return nil, err
	}

	pc := &projectContext{states: states, cycles: cycles, modules: modules, members: members}
	cache.mu.Lock()
	cache.cache[rec.ProjectID] = pc
	cache.mu.Unlock()
	return pc, nil
}
