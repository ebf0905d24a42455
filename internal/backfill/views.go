package backfill

import (
	"context"

	"github.com/planeseed/planeseed/internal/resolve"
	"github.com/planeseed/planeseed/internal/seed"
)

// Views creates every generated saved view inside its resolved project.
func (b *Backfiller) Views(ctx context.Context) error {
	var views []seed.View
	if err := seed.Load(b.dir.Views(), &views); err != nil {
		return err
	}

	resolver := resolve.NewProjectResolver(b.client, resolve.WithFallback())
	counters := &Counters{}
	results := &resultBuffer{}

	for _, view := range views {
		rec, err := resolver.Resolve(ctx, view.ProjectName, view.ProjectIdentifier)
		if err != nil {
			return err
		}

		key := rec.ProjectID + "/" + view.Name
		if b.seen("view", key) {
			counters.skipped()
			results.add(key, "ledger", nil)
			continue
		}

		payload := map[string]any{
			"name":        view.Name,
			"description": view.Description,
		}
		if view.Filters != nil {
			payload["filters"] = view.Filters
		}
		if view.DisplayFilters != nil {
			payload["display_filters"] = view.DisplayFilters
		}

		err = b.client.CreateView(ctx, rec.WorkspaceSlug, rec.ProjectID, payload)
		b.outcome(counters, results, "view", key, err)
	}

	counters.Log(b.log, "views")
	return results.flush(b.dir.Results("views"))
}
