package generate

import (
	"context"
	"fmt"
	"sync"

	"github.com/planeseed/planeseed/internal/llm"
	"github.com/planeseed/planeseed/internal/seed"
)

const commentSystem = "You write realistic issue tracker comments. Output only valid JSON."

// Comments generates comments for every issue concurrently and writes
// comments.json. The prompt rotates through comment flavors so a thread of
// fifty comments does not read like one person repeating themselves.
func (g *Generator) Comments(ctx context.Context, issues []seed.Issue) ([]seed.Comment, error) {
	perIssue := g.cfg.Generate.CommentsPerIssue
	if perIssue < 1 {
		return nil, seed.Save(g.dir.Comments(), []seed.Comment{})
	}

	flavors := []string{
		"a progress update on the work",
		"a clarifying question about requirements",
		"a technical discussion of the approach",
		"a report of a blocker or dependency",
		"code review feedback",
		"a testing or QA update",
		"a note that the work is complete",
	}

	comments := make([][]seed.Comment, len(issues))
	var mu sync.Mutex

	err := g.workerPool(ctx, len(issues), func(ctx context.Context, i int) error {
		issue := issues[i]
		var generated []seed.Comment

		for n := 0; n < perIssue; n++ {
			flavor := flavors[g.intn(len(flavors))]
			prompt := fmt.Sprintf(`Write one realistic comment someone would leave on this issue in a project tracker.
The comment should be %s. Keep it short, one to three sentences, written like a real engineer.

Issue: %q
Project: %q

Return ONLY valid JSON: {"comment_html": "<p class=\"editor-paragraph-block\">COMMENT TEXT</p>"}`,
				flavor, issue.Name, issue.ProjectName)

			var proposal struct {
				CommentHTML string `json:"comment_html"`
			}
			err := g.completeJSON(ctx, commentSystem, prompt, func(text string) error {
				return llm.ExtractObject(text, &proposal)
			})
			if err != nil {
				return fmt.Errorf("generate comment for %q: %w", issue.Name, err)
			}
			if proposal.CommentHTML == "" {
				continue
			}
			generated = append(generated, seed.Comment{
				IssueName:   issue.Name,
				ProjectSlug: issue.ProjectName,
				CommentHTML: proposal.CommentHTML,
			})
		}

		mu.Lock()
		comments[i] = generated
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}

	var all []seed.Comment
	for _, batch := range comments {
		all = append(all, batch...)
	}
	g.log.Infof("Generated %d comments", len(all))

	if err := seed.Save(g.dir.Comments(), all); err != nil {
		return nil, err
	}
	return all, nil
}
