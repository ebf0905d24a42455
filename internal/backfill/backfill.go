// Package backfill replays generated seed files against a live deployment
// through its REST API: workspaces, then users, projects, cycles, modules,
// views, issues, comments, and finally the randomized membership and linking
// passes. Each entity pass is independently resumable; duplicates reported by
// the server and entries already in the ledger count as skips, not failures.
package backfill

import (
	"context"
	"errors"
	"math/rand"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/planeseed/planeseed/internal/config"
	"github.com/planeseed/planeseed/internal/ledger"
	"github.com/planeseed/planeseed/internal/logger"
	"github.com/planeseed/planeseed/internal/plane"
	"github.com/planeseed/planeseed/internal/seed"
)

// Backfiller drives one backfill run against one deployment.
type Backfiller struct {
	client *plane.Client
	cfg    *config.Config
	dir    seed.Dir
	store  ledger.Store
	runID  string
	log    *logrus.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a backfiller. The RNG drives assignment sampling and is
// injected so runs can be reproduced.
func New(client *plane.Client, cfg *config.Config, dir seed.Dir, store ledger.Store, rng *rand.Rand) *Backfiller {
	if store == nil {
		store = ledger.Nop{}
	}
	return &Backfiller{
		client: client,
		cfg:    cfg,
		dir:    dir,
		store:  store,
		runID:  uuid.NewString(),
		log:    logger.Get(),
		rng:    rng,
	}
}

// All runs every backfill pass in dependency order.
func (b *Backfiller) All(ctx context.Context) error {
	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"workspaces", b.Workspaces},
		{"users", b.Users},
		{"projects", b.Projects},
		{"members", b.AssignMembers},
		{"cycles", b.Cycles},
		{"modules", b.Modules},
		{"views", b.Views},
		{"issues", b.Issues},
		{"comments", b.Comments},
		{"links", b.Links},
	}
	for _, step := range steps {
		b.log.WithField("step", step.name).Info("Backfill step starting")
		if err := step.run(ctx); err != nil {
			return err
		}
	}
	return nil
}

// intn is a mutex-guarded rng.Intn; the RNG is shared across workers.
func (b *Backfiller) intn(n int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rng.Intn(n)
}

func (b *Backfiller) between(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + b.intn(hi-lo+1)
}

// lockedRand hands out the shared RNG under the backfiller's mutex for the
// assignment passes, which need a *rand.Rand directly.
func (b *Backfiller) lockedRand(fn func(rng *rand.Rand)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b.rng)
}

// seen consults the ledger, treating ledger failures as not-seen so a broken
// ledger degrades to re-issuing writes the server will reject as duplicates.
func (b *Backfiller) seen(kind, key string) bool {
	exists, err := b.store.Exists(kind, key)
	if err != nil {
		b.log.WithError(err).Warn("Ledger lookup failed")
		return false
	}
	return exists
}

func (b *Backfiller) record(kind, key string) {
	if err := b.store.Record(kind, key, b.runID); err != nil {
		b.log.WithError(err).Warn("Ledger write failed")
	}
}

// workerPool runs fn over every job index with the configured concurrency
// and returns the first error. Per-item failures should be counted, not
// returned; returning an error cancels the whole pass.
func (b *Backfiller) workerPool(ctx context.Context, jobs int, fn func(ctx context.Context, i int) error) error {
	workers := b.cfg.Workers.Count
	if workers < 1 {
		workers = 1
	}
	if workers > jobs {
		workers = jobs
	}
	if jobs == 0 {
		return nil
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

// Counters tracks the outcome of one entity pass.
type Counters struct {
	mu      sync.Mutex
	Created int
	Skipped int
	Failed  int
}

func (c *Counters) created() {
	c.mu.Lock()
	c.Created++
	c.mu.Unlock()
}

func (c *Counters) skipped() {
	c.mu.Lock()
	c.Skipped++
	c.mu.Unlock()
}

func (c *Counters) failed() {
	c.mu.Lock()
	c.Failed++
	c.mu.Unlock()
}

// Log writes the pass summary.
func (c *Counters) Log(log *logrus.Logger, entity string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	log.WithFields(logrus.Fields{
		"created": c.Created,
		"skipped": c.Skipped,
		"failed":  c.Failed,
	}).Infof("Backfilled %s", entity)
}

// Result records the outcome of one item for the results file.
type Result struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// resultBuffer collects per-item outcomes and flushes them to a seed-dir
// results file so an operator can see exactly what a pass did.
type resultBuffer struct {
	mu    sync.Mutex
	items []Result
}

func (r *resultBuffer) add(name, status string, err error) {
	res := Result{Name: name, Status: status}
	if err != nil {
		res.Error = err.Error()
	}
	r.mu.Lock()
	r.items = append(r.items, res)
	r.mu.Unlock()
}

func (r *resultBuffer) flush(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.items == nil {
		r.items = []Result{}
	}
	return seed.Save(path, r.items)
}

// outcome folds one write result into the counters and results buffer.
// ErrAlreadyExists is a skip and is still recorded in the ledger, so the next
// run does not even issue the request.
func (b *Backfiller) outcome(counters *Counters, results *resultBuffer, kind, key string, err error) {
	switch {
	case err == nil:
		counters.created()
		results.add(key, "created", nil)
		b.record(kind, key)
	case errors.Is(err, plane.ErrAlreadyExists):
		counters.skipped()
		results.add(key, "exists", nil)
		b.record(kind, key)
	default:
		counters.failed()
		results.add(key, "failed", err)
		b.log.WithError(err).WithField(kind, key).Warn("Backfill item failed")
	}
}
