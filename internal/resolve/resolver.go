// Package resolve maps human-readable references (project names and
// identifiers, issue names) to server-issued IDs discovered from the target
// API. Mappings are built once per run and memoized; nothing invalidates
// them mid-run.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/planeseed/planeseed/internal/logger"
	"github.com/planeseed/planeseed/internal/plane"
)

// ErrNoTargets means discovery succeeded but found nothing to resolve
// against. Distinct from ErrNotFound: with an empty mapping even the
// fallback policy has nothing to offer.
var ErrNoTargets = errors.New("no targets available")

// ErrNotFound means the reference matched nothing and fallback is disabled.
var ErrNotFound = errors.New("reference not found")

// Record is a resolved reference: where the record lives and what it is.
type Record struct {
	WorkspaceSlug string
	ProjectID     string
	ProjectName   string
	ID            string
	Name          string
}

// Directory is the read-only slice of the API the resolvers need.
// *plane.Client satisfies it.
type Directory interface {
	Workspaces(ctx context.Context) ([]plane.Workspace, error)
	Projects(ctx context.Context, workspaceSlug string) ([]plane.Project, error)
	ProjectIssues(ctx context.Context, workspaceSlug, projectID string) ([]plane.Issue, error)
}

// Option configures a resolver.
type Option func(*options)

type options struct {
	fallback bool
}

// WithFallback enables the use-any-available policy on a miss. Off by
// default: silently assigning a record to an arbitrary project is a
// correctness risk, so callers opt in and every fallback hit is logged.
func WithFallback() Option {
	return func(o *options) { o.fallback = true }
}

// ProjectResolver resolves project names and identifiers to projects.
type ProjectResolver struct {
	dir  Directory
	opts options
	log  *logrus.Logger

	once  sync.Once
	err   error
	byKey map[string]Record
	first *Record // first record discovered, the fallback answer
}

// NewProjectResolver creates a resolver over the given directory.
func NewProjectResolver(dir Directory, opts ...Option) *ProjectResolver {
	r := &ProjectResolver{dir: dir, log: logger.Get(), byKey: map[string]Record{}}
	for _, opt := range opts {
		opt(&r.opts)
	}
	return r
}

// Build fetches all projects in all reachable workspaces and indexes them by
// name and by identifier. A discovery failure is a hard error: without a
// mapping nothing downstream can be meaningfully resolved.
func (r *ProjectResolver) Build(ctx context.Context) error {
	r.once.Do(func() { r.err = r.build(ctx) })
	return r.err
}

func (r *ProjectResolver) build(ctx context.Context) error {
	workspaces, err := r.dir.Workspaces(ctx)
	if err != nil {
		return fmt.Errorf("build project mapping: %w", err)
	}

	for _, ws := range workspaces {
		projects, err := r.dir.Projects(ctx, ws.Slug)
		if err != nil {
			return fmt.Errorf("build project mapping: %w", err)
		}
		for _, p := range projects {
			rec := Record{
				WorkspaceSlug: ws.Slug,
				ProjectID:     p.ID,
				ProjectName:   p.Name,
				ID:            p.ID,
				Name:          p.Name,
			}
			if r.first == nil {
				first := rec
				r.first = &first
			}
			if p.Name != "" {
				r.byKey[p.Name] = rec
			}
			if p.Identifier != "" {
				r.byKey[p.Identifier] = rec
			}
		}
	}

	r.log.WithField("references", len(r.byKey)).Debug("Project mapping built")
	return nil
}

// Resolve looks up a project by exact name first, then exact identifier.
// Matching is case-sensitive with no normalization; the precedence order is
// a policy choice, not an accident.
func (r *ProjectResolver) Resolve(ctx context.Context, name, identifier string) (Record, error) {
	if err := r.Build(ctx); err != nil {
		return Record{}, err
	}
	if r.first == nil {
		return Record{}, ErrNoTargets
	}

	if rec, ok := r.byKey[name]; ok && name != "" {
		return rec, nil
	}
	if rec, ok := r.byKey[identifier]; ok && identifier != "" {
		return rec, nil
	}

	if r.opts.fallback {
		r.log.WithFields(logrus.Fields{
			"name":       name,
			"identifier": identifier,
			"fellBackTo": r.first.Name,
		}).Warn("Project reference not found, using first available")
		return *r.first, nil
	}
	return Record{}, fmt.Errorf("project %q/%q: %w", name, identifier, ErrNotFound)
}

// IssueKey builds the composite key issues are indexed under. Issue names
// repeat across projects, so the project name disambiguates.
func IssueKey(projectName, issueName string) string {
	return projectName + "::" + issueName
}

// IssueResolver resolves "{project}::{issue}" composites to issues.
type IssueResolver struct {
	dir  Directory
	opts options
	log  *logrus.Logger

	once  sync.Once
	err   error
	byKey map[string]Record
	order []string // insertion order, for the fallback and suffix scan
}

// NewIssueResolver creates a resolver over the given directory.
func NewIssueResolver(dir Directory, opts ...Option) *IssueResolver {
	r := &IssueResolver{dir: dir, log: logger.Get(), byKey: map[string]Record{}}
	for _, opt := range opts {
		opt(&r.opts)
	}
	return r
}

// Build walks every workspace, project and issue once and indexes issues by
// composite key.
func (r *IssueResolver) Build(ctx context.Context) error {
	r.once.Do(func() { r.err = r.build(ctx) })
	return r.err
}

func (r *IssueResolver) build(ctx context.Context) error {
	workspaces, err := r.dir.Workspaces(ctx)
	if err != nil {
		return fmt.Errorf("build issue mapping: %w", err)
	}

	for _, ws := range workspaces {
		projects, err := r.dir.Projects(ctx, ws.Slug)
		if err != nil {
			return fmt.Errorf("build issue mapping: %w", err)
		}
		for _, p := range projects {
			issues, err := r.dir.ProjectIssues(ctx, ws.Slug, p.ID)
			if err != nil {
				return fmt.Errorf("build issue mapping: %w", err)
			}
			for _, issue := range issues {
				if issue.ID == "" || issue.Name == "" {
					continue
				}
				key := IssueKey(p.Name, issue.Name)
				if _, dup := r.byKey[key]; !dup {
					r.order = append(r.order, key)
				}
				r.byKey[key] = Record{
					WorkspaceSlug: ws.Slug,
					ProjectID:     p.ID,
					ProjectName:   p.Name,
					ID:            issue.ID,
					Name:          issue.Name,
				}
			}
			r.log.WithFields(logrus.Fields{
				"project": p.Name,
				"issues":  len(issues),
			}).Debug("Mapped project issues")
		}
	}
	return nil
}

// Resolve finds an issue by project context first, then by bare issue name
// across all projects, then (if enabled) by the fallback policy.
func (r *IssueResolver) Resolve(ctx context.Context, projectName, issueName string) (Record, error) {
	if err := r.Build(ctx); err != nil {
		return Record{}, err
	}
	if len(r.order) == 0 {
		return Record{}, ErrNoTargets
	}

	if rec, ok := r.byKey[IssueKey(projectName, issueName)]; ok {
		return rec, nil
	}

	// The generated project reference may be a slug path; fall back to
	// scanning for the issue name in any project.
	suffix := "::" + issueName
	for _, key := range r.order {
		if strings.HasSuffix(key, suffix) {
			return r.byKey[key], nil
		}
	}

	if r.opts.fallback {
		first := r.byKey[r.order[0]]
		r.log.WithFields(logrus.Fields{
			"issue":      issueName,
			"project":    projectName,
			"fellBackTo": first.Name,
		}).Warn("Issue reference not found, using first available")
		return first, nil
	}
	return Record{}, fmt.Errorf("issue %q in %q: %w", issueName, projectName, ErrNotFound)
}

// Len reports how many references are indexed. Zero after a successful
// Build means downstream work should stop with ErrNoTargets.
func (r *IssueResolver) Len(ctx context.Context) (int, error) {
	if err := r.Build(ctx); err != nil {
		return 0, err
	}
	return len(r.byKey), nil
}
