package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/planeseed/planeseed/internal/backfill"
	"github.com/planeseed/planeseed/internal/config"
	"github.com/planeseed/planeseed/internal/ledger"
	"github.com/planeseed/planeseed/internal/plane"
	"github.com/planeseed/planeseed/internal/ratelimit"
)

var backfillOnly string

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Replay generated seed files against the target deployment",
	Long: `Creates the generated entities on the target deployment through its REST
API. Requires SEEDER_ADMIN_EMAIL and SEEDER_ADMIN_PASSWORD.

Steps run in dependency order; --only restricts the run to one step. Entities
the server already has count as skips, so an interrupted run can simply be
re-run.`,
	RunE: runBackfill,
}

func init() {
	backfillCmd.Flags().StringVar(&backfillOnly, "only", "",
		"Run a single step: workspaces|users|projects|members|cycles|modules|views|issues|comments|links")
}

func runBackfill(cmd *cobra.Command, args []string) error {
	b, cleanup, err := newBackfiller(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	if backfillOnly == "" {
		return b.All(ctx)
	}

	steps := map[string]func(context.Context) error{
		"workspaces": b.Workspaces,
		"users":      b.Users,
		"projects":   b.Projects,
		"members":    b.AssignMembers,
		"cycles":     b.Cycles,
		"modules":    b.Modules,
		"views":      b.Views,
		"issues":     b.Issues,
		"comments":   b.Comments,
		"links":      b.Links,
	}
	step, ok := steps[backfillOnly]
	if !ok {
		return fmt.Errorf("unknown step %q", backfillOnly)
	}
	return step(ctx)
}

// newBackfiller performs the shared backfill setup: config, credentials,
// admin login, ledger. The returned cleanup closes the ledger.
func newBackfiller(ctx context.Context) (*backfill.Backfiller, func(), error) {
	cfg, creds, dir, err := setup()
	if err != nil {
		return nil, nil, err
	}
	if err := creds.RequireAdmin(); err != nil {
		return nil, nil, err
	}

	budget, err := ratelimit.NewBudget(cfg.API.RatePerSec)
	if err != nil {
		return nil, nil, err
	}
	client := plane.NewClient(plane.Config{
		BaseURL:  cfg.API.BaseURL,
		WebURL:   cfg.API.WebURL,
		Email:    creds.AdminEmail,
		Password: creds.AdminPassword,
		PoolSize: cfg.API.PoolSize,
	}, budget)
	if err := client.Login(ctx); err != nil {
		return nil, nil, fmt.Errorf("admin login: %w", err)
	}

	store, cleanup, err := openLedger(cfg)
	if err != nil {
		return nil, nil, err
	}

	return backfill.New(client, cfg, dir, store, newRNG()), cleanup, nil
}

func openLedger(cfg *config.Config) (ledger.Store, func(), error) {
	if !cfg.Ledger.Enabled {
		return ledger.Nop{}, func() {}, nil
	}
	l, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open ledger: %w", err)
	}
	return l, func() { l.Close() }, nil
}
