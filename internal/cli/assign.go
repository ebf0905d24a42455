package cli

import (
	"github.com/spf13/cobra"
)

var assignCmd = &cobra.Command{
	Use:   "assign",
	Short: "Run only the randomized assignment passes",
	Long: `Spreads members across projects and links issues into cycles and modules
on the target deployment, under the configured cardinality bounds.

Equivalent to 'backfill --only members' followed by 'backfill --only links',
for topping up assignments on an already-seeded deployment.`,
	RunE: runAssign,
}

func runAssign(cmd *cobra.Command, args []string) error {
	b, cleanup, err := newBackfiller(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	if err := b.AssignMembers(cmd.Context()); err != nil {
		return err
	}
	return b.Links(cmd.Context())
}
