package main

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/openelect/basis/modules/masterdata/infrastructure/persistence"
	"github.com/openelect/basis/modules/masterdata/services"
	"github.com/openelect/basis/pkg/composables"
)

var errDryRunRollback = errors.New("dry-run rollback")

type rebuildOutput struct {
	Command     string `json:"command"`
	DryRun      bool   `json:"dry_run"`
	Assignments int    `json:"assignments"`
	DurationMS  int64  `json:"duration_ms"`
}

func newRebuildCmd() *cobra.Command {
	var apply bool

	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Recompute the district-assignment and permission tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := connectDB(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			ctx := composables.WithPool(cmd.Context(), pool)
			repo := persistence.NewMasterDataRepository()
			rebuild := services.NewRebuildService(repo, logrus.New())

			start := time.Now()
			var assignments int
			err = composables.InTx(ctx, func(txCtx context.Context) error {
				if err := rebuild.Rebuild(txCtx); err != nil {
					return err
				}
				rows, err := repo.ListAssignments(txCtx)
				if err != nil {
					return err
				}
				assignments = len(rows)
				if !apply {
					return errDryRunRollback
				}
				return nil
			})
			if err != nil && !errors.Is(err, errDryRunRollback) {
				return err
			}

			return writeJSON(rebuildOutput{
				Command:     "rebuild",
				DryRun:      !apply,
				Assignments: assignments,
				DurationMS:  time.Since(start).Milliseconds(),
			})
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "Apply changes (default dry-run)")
	return cmd
}
