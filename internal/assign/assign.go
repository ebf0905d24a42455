// Package assign produces randomized many-to-many relations between two
// entity sets under per-entity cardinality bounds. It is used to link members
// to projects, issues to cycles, and issues to modules during a backfill run.
package assign

import (
	"fmt"
	"math/rand"
)

// Bounds holds the per-entity cardinality constraints for one Assign call.
// SubjectMin/SubjectMax bound how many targets each subject receives in the
// first pass; TargetMin is the floor the top-up pass tries to reach for every
// target; TargetMax is the ceiling the top-up pass will not exceed.
type Bounds struct {
	SubjectMin int
	SubjectMax int
	TargetMin  int
	TargetMax  int
}

func (b Bounds) validate() error {
	if b.SubjectMin < 0 || b.TargetMin < 0 {
		return fmt.Errorf("minimums must be non-negative: %+v", b)
	}
	if b.SubjectMax < b.SubjectMin {
		return fmt.Errorf("subject max %d below min %d", b.SubjectMax, b.SubjectMin)
	}
	if b.TargetMax < b.TargetMin {
		return fmt.Errorf("target max %d below min %d", b.TargetMax, b.TargetMin)
	}
	return nil
}

// Relation is a bipartite many-to-many mapping kept consistent by
// construction: (s, t) is in Subjects iff (t, s) is in Targets.
type Relation struct {
	// Subjects maps each subject to the targets it was assigned.
	// Every input subject is present, possibly with an empty slice.
	Subjects map[string][]string
	// Targets is the exact inverse of Subjects.
	Targets map[string][]string
}

// Pairs returns the total number of (subject, target) links.
func (r *Relation) Pairs() int {
	n := 0
	for _, ts := range r.Subjects {
		n += len(ts)
	}
	return n
}

func (r *Relation) link(subject, target string) {
	r.Subjects[subject] = append(r.Subjects[subject], target)
	r.Targets[target] = append(r.Targets[target], subject)
}

func (r *Relation) linked(subject, target string) bool {
	for _, t := range r.Subjects[subject] {
		if t == target {
			return true
		}
	}
	return false
}

// Assign builds a relation in two passes. Pass 1 is subject-driven: each
// subject draws a target count uniformly in [SubjectMin, min(SubjectMax,
// len(targets))] and samples that many distinct targets without replacement
// from the full target set, with no bias toward under-filled targets. Pass 2
// is target-driven: every target still below TargetMin is topped up from
// subjects not yet linked to it, preferring subjects below SubjectMax and
// relaxing to any unlinked subject before giving up. Bounds that exceed the
// opposite pool size are capped at the pool size, never an error.
//
// The random source is injected so a fixed seed reproduces the relation.
func Assign(subjects, targets []string, bounds Bounds, rng *rand.Rand) (*Relation, error) {
	if err := bounds.validate(); err != nil {
		return nil, err
	}

	rel := &Relation{
		Subjects: make(map[string][]string, len(subjects)),
		Targets:  make(map[string][]string, len(targets)),
	}
	for _, s := range subjects {
		rel.Subjects[s] = []string{}
	}
	for _, t := range targets {
		rel.Targets[t] = []string{}
	}
	if len(targets) == 0 || len(subjects) == 0 {
		return rel, nil
	}

	// Pass 1: satisfy each subject's minimum.
	lo := min(bounds.SubjectMin, len(targets))
	hi := min(bounds.SubjectMax, len(targets))
	for _, s := range subjects {
		n := lo
		if hi > lo {
			n = lo + rng.Intn(hi-lo+1)
		}
		for _, t := range sample(targets, n, rng) {
			rel.link(s, t)
		}
	}

	// Pass 2: top up under-filled targets.
	floor := min(bounds.TargetMin, len(subjects))
	for _, t := range targets {
		for len(rel.Targets[t]) < floor {
			s, ok := pickSubject(rel, subjects, t, bounds.SubjectMax, rng)
			if !ok {
				break // eligible pool exhausted; the floor is relaxed
			}
			rel.link(s, t)
		}
	}

	return rel, nil
}

// pickSubject chooses a random subject not yet linked to target, preferring
// subjects that still have headroom under subjectMax.
func pickSubject(rel *Relation, subjects []string, target string, subjectMax int, rng *rand.Rand) (string, bool) {
	var preferred, fallback []string
	for _, s := range subjects {
		if rel.linked(s, target) {
			continue
		}
		if len(rel.Subjects[s]) < subjectMax {
			preferred = append(preferred, s)
		} else {
			fallback = append(fallback, s)
		}
	}
	pool := preferred
	if len(pool) == 0 {
		pool = fallback
	}
	if len(pool) == 0 {
		return "", false
	}
	return pool[rng.Intn(len(pool))], true
}

// sample draws n distinct elements uniformly without replacement.
func sample(pool []string, n int, rng *rand.Rand) []string {
	if n <= 0 {
		return nil
	}
	if n > len(pool) {
		n = len(pool)
	}
	idx := rng.Perm(len(pool))[:n]
	out := make([]string, 0, n)
	for _, i := range idx {
		out = append(out, pool[i])
	}
	return out
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
