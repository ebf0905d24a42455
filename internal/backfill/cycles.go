package backfill

import (
	"context"

	"github.com/planeseed/planeseed/internal/plane"
	"github.com/planeseed/planeseed/internal/resolve"
	"github.com/planeseed/planeseed/internal/seed"
)

// Cycles creates every generated cycle inside its resolved project.
func (b *Backfiller) Cycles(ctx context.Context) error {
	var cycles []seed.Cycle
	if err := seed.Load(b.dir.Cycles(), &cycles); err != nil {
		return err
	}

	resolver := resolve.NewProjectResolver(b.client, resolve.WithFallback())
	counters := &Counters{}
	results := &resultBuffer{}

	for _, cycle := range cycles {
		rec, err := resolver.Resolve(ctx, cycle.ProjectName, cycle.ProjectIdentifier)
		if err != nil {
			// A resolver failure here is structural (discovery failed or the
			// deployment is empty); continuing would fail every item the same way.
			return err
		}

		key := rec.ProjectID + "/" + cycle.Name
		if b.seen("cycle", key) {
			counters.skipped()
			results.add(key, "ledger", nil)
			continue
		}

		err = b.client.CreateCycle(ctx, rec.WorkspaceSlug, rec.ProjectID, plane.CyclePayload{
			Name:        cycle.Name,
			Description: cycle.Description,
			StartDate:   cycle.StartDate,
			EndDate:     cycle.EndDate,
		})
		b.outcome(counters, results, "cycle", key, err)
	}

	counters.Log(b.log, "cycles")
	return results.flush(b.dir.Results("cycles"))
}
