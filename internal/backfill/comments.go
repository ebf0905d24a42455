package backfill

import (
	"context"
	"errors"
	"fmt"

	"github.com/planeseed/planeseed/internal/resolve"
	"github.com/planeseed/planeseed/internal/seed"
)

// Comments posts every generated comment on its resolved issue, concurrently.
// An issue that cannot be resolved fails just that comment; an empty issue
// mapping stops the pass, since every comment would fail identically.
func (b *Backfiller) Comments(ctx context.Context) error {
	var comments []seed.Comment
	if err := seed.Load(b.dir.Comments(), &comments); err != nil {
		return err
	}

	resolver := resolve.NewIssueResolver(b.client, resolve.WithFallback())
	n, err := resolver.Len(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("post comments: %w", resolve.ErrNoTargets)
	}

	counters := &Counters{}
	results := &resultBuffer{}

	err = b.workerPool(ctx, len(comments), func(ctx context.Context, i int) error {
		comment := comments[i]
		key := resolve.IssueKey(comment.ProjectSlug, comment.IssueName)

		rec, err := resolver.Resolve(ctx, comment.ProjectSlug, comment.IssueName)
		if err != nil {
			if errors.Is(err, resolve.ErrNotFound) {
				counters.failed()
				results.add(key, "unresolved", err)
				return nil
			}
			return err
		}

		if b.seen("comment", key) {
			counters.skipped()
			results.add(key, "ledger", nil)
			return nil
		}

		err = b.client.CreateComment(ctx, rec.WorkspaceSlug, rec.ProjectID, rec.ID, comment.CommentHTML)
		b.outcome(counters, results, "comment", key, err)
		return nil
	})
	if err != nil {
		return err
	}

	counters.Log(b.log, "comments")
	return results.flush(b.dir.Results("comments"))
}
