package backfill

import (
	"context"
	"math/rand"

	"github.com/planeseed/planeseed/internal/plane"
	"github.com/planeseed/planeseed/internal/resolve"
	"github.com/planeseed/planeseed/internal/seed"
)

// Modules creates every generated module inside its resolved project, with a
// random lead and members sampled from the project's membership.
func (b *Backfiller) Modules(ctx context.Context) error {
	var modules []seed.Module
	if err := seed.Load(b.dir.Modules(), &modules); err != nil {
		return err
	}

	resolver := resolve.NewProjectResolver(b.client, resolve.WithFallback())
	counters := &Counters{}
	results := &resultBuffer{}
	memberCache := map[string][]plane.Membership{}

	for _, module := range modules {
		rec, err := resolver.Resolve(ctx, module.ProjectName, module.ProjectIdentifier)
		if err != nil {
			return err
		}

		key := rec.ProjectID + "/" + module.Name
		if b.seen("module", key) {
			counters.skipped()
			results.add(key, "ledger", nil)
			continue
		}

		members, ok := memberCache[rec.ProjectID]
		if !ok {
			members, err = b.client.ProjectMembers(ctx, rec.WorkspaceSlug, rec.ProjectID)
			if err != nil {
				b.log.WithError(err).WithField("project", rec.ProjectName).
					Warn("Listing project members failed, creating module without members")
			}
			memberCache[rec.ProjectID] = members
		}

		payload := plane.ModulePayload{
			Name:        module.Name,
			Description: module.Description,
			Status:      module.Status,
		}
		if len(members) > 0 {
			payload.LeadID = members[b.intn(len(members))].Member.ID
			payload.MemberIDs = b.sampleMembers(members, module.MemberCount)
		}

		err = b.client.CreateModule(ctx, rec.WorkspaceSlug, rec.ProjectID, payload)
		b.outcome(counters, results, "module", key, err)
	}

	counters.Log(b.log, "modules")
	return results.flush(b.dir.Results("modules"))
}

// sampleMembers draws up to n distinct member IDs.
func (b *Backfiller) sampleMembers(members []plane.Membership, n int) []string {
	if n > len(members) {
		n = len(members)
	}
	if n <= 0 {
		return nil
	}
	var idx []int
	b.lockedRand(func(rng *rand.Rand) { idx = rng.Perm(len(members))[:n] })
	out := make([]string, 0, n)
	for _, i := range idx {
		out = append(out, members[i].Member.ID)
	}
	return out
}
