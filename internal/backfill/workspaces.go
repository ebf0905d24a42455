package backfill

import (
	"context"

	"github.com/planeseed/planeseed/internal/plane"
	"github.com/planeseed/planeseed/internal/seed"
)

// Workspaces creates every generated workspace. Duplicate slugs are skips.
func (b *Backfiller) Workspaces(ctx context.Context) error {
	var workspaces []seed.Workspace
	if err := seed.Load(b.dir.Workspaces(), &workspaces); err != nil {
		return err
	}

	counters := &Counters{}
	results := &resultBuffer{}

	for _, ws := range workspaces {
		if b.seen("workspace", ws.Slug) {
			counters.skipped()
			results.add(ws.Slug, "ledger", nil)
			continue
		}
		err := b.client.CreateWorkspace(ctx, plane.WorkspacePayload{
			Name:             ws.Name,
			Slug:             ws.Slug,
			OrganizationSize: ws.OrganizationSize,
		})
		b.outcome(counters, results, "workspace", ws.Slug, err)
	}

	counters.Log(b.log, "workspaces")
	return results.flush(b.dir.Results("workspaces"))
}
