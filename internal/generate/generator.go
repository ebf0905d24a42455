// Package generate runs the offline generation phase: it asks the model for
// workspaces, projects, issues, cycles, modules, views, comments and user
// accounts, and writes them to seed files for the backfill phase to replay
// against a live deployment.
package generate

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/planeseed/planeseed/internal/config"
	"github.com/planeseed/planeseed/internal/llm"
	"github.com/planeseed/planeseed/internal/logger"
	"github.com/planeseed/planeseed/internal/seed"
)

// Completer is the slice of the model client the generators need.
// *llm.Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

// Generator produces seed files under one directory.
type Generator struct {
	llm Completer
	cfg *config.Config
	dir seed.Dir
	log *logrus.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a generator. The RNG is injected so runs can be reproduced.
func New(c Completer, cfg *config.Config, dir seed.Dir, rng *rand.Rand) *Generator {
	return &Generator{llm: c, cfg: cfg, dir: dir, log: logger.Get(), rng: rng}
}

// All runs every generator in dependency order and writes all seed files.
func (g *Generator) All(ctx context.Context) error {
	workspaces, err := g.Workspaces(ctx)
	if err != nil {
		return err
	}
	users, err := g.Users(ctx)
	if err != nil {
		return err
	}
	projects, err := g.Projects(ctx, workspaces)
	if err != nil {
		return err
	}
	cycles, err := g.Cycles(ctx, projects)
	if err != nil {
		return err
	}
	modules, err := g.Modules(ctx, projects)
	if err != nil {
		return err
	}
	if _, err := g.Views(ctx, projects); err != nil {
		return err
	}
	issues, err := g.Issues(ctx, projects, cycles, modules)
	if err != nil {
		return err
	}
	if _, err := g.Comments(ctx, issues); err != nil {
		return err
	}
	g.log.WithFields(logrus.Fields{
		"users":    len(users),
		"projects": len(projects),
		"issues":   len(issues),
	}).Info("Generation complete")
	return nil
}

// completeJSON asks the model for output and parses it with extract. On a
// malformed reply it retries with a slightly higher temperature; other model
// failures propagate immediately.
func (g *Generator) completeJSON(ctx context.Context, system, prompt string, extract func(string) error) error {
	temp := g.cfg.LLM.Temperature
	var lastErr error

	for attempt := 0; attempt < g.cfg.LLM.MaxAttempts; attempt++ {
		text, err := g.llm.Complete(ctx, llm.Request{
			System:      system,
			Prompt:      prompt,
			MaxTokens:   g.cfg.LLM.MaxTokens,
			Temperature: temp,
		})
		if err != nil {
			return err
		}

		if err := extract(text); err != nil {
			var malformed *llm.MalformedOutputError
			if !errors.As(err, &malformed) {
				return err
			}
			lastErr = err
			g.log.WithFields(logrus.Fields{
				"attempt":     attempt + 1,
				"temperature": temp,
			}).Warn("Model output was not valid JSON, retrying")
			temp += 0.1
			if temp > 1.0 {
				temp = 1.0
			}
			continue
		}
		return nil
	}
	return fmt.Errorf("giving up after %d attempts: %w", g.cfg.LLM.MaxAttempts, lastErr)
}

// intn is a mutex-guarded rng.Intn; generators share the RNG across workers.
func (g *Generator) intn(n int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Intn(n)
}

// between draws uniformly from [lo, hi].
func (g *Generator) between(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + g.intn(hi-lo+1)
}

// chance returns true with probability p.
func (g *Generator) chance(p float64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Float64() < p
}

// slugify lowercases a name and collapses everything else to hyphens.
func slugify(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

// deriveIdentifier builds an uppercase project identifier from a name when
// the model did not supply one: initials first, then a prefix of the name.
func deriveIdentifier(name string) string {
	var initials []byte
	for _, word := range strings.Fields(name) {
		c := word[0]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		if c >= 'A' && c <= 'Z' {
			initials = append(initials, c)
		}
	}
	if len(initials) >= 2 {
		if len(initials) > 5 {
			initials = initials[:5]
		}
		return string(initials)
	}

	upper := strings.ToUpper(strings.ReplaceAll(name, " ", ""))
	var cleaned []byte
	for i := 0; i < len(upper) && len(cleaned) < 4; i++ {
		if upper[i] >= 'A' && upper[i] <= 'Z' {
			cleaned = append(cleaned, upper[i])
		}
	}
	if len(cleaned) == 0 {
		return "PROJ"
	}
	return string(cleaned)
}

// workerPool runs fn over every job index with the configured concurrency
// and returns the first error.
func (g *Generator) workerPool(ctx context.Context, jobs int, fn func(ctx context.Context, i int) error) error {
	workers := g.cfg.Workers.Count
	if workers < 1 {
		workers = 1
	}
	if workers > jobs {
		workers = jobs
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobCh := make(chan int)
	errCh := make(chan error, workers)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobCh {
				if err := fn(ctx, i); err != nil {
					errCh <- err
					cancel()
					return
				}
			}
		}()
	}

feed:
	for i := 0; i < jobs; i++ {
		select {
		case jobCh <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobCh)
	wg.Wait()
	close(errCh)

	return <-errCh
}
