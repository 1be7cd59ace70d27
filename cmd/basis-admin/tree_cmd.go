package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/openelect/basis/modules/masterdata/infrastructure/persistence"
	"github.com/openelect/basis/modules/masterdata/services"
	"github.com/openelect/basis/pkg/composables"
)

type treeOutput struct {
	Command string               `json:"command"`
	AsOf    time.Time            `json:"as_of"`
	Roots   []*services.TreeNode `json:"roots"`
}

func newTreeCmd() *cobra.Command {
	var (
		asOfRaw        string
		includeDeleted bool
	)

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the unit forest as of a point in time",
		RunE: func(cmd *cobra.Command, args []string) error {
			asOf := time.Now().UTC()
			if asOfRaw != "" {
				parsed, err := parseTimeUTC(asOfRaw)
				if err != nil {
					return fmt.Errorf("parse --as-of: %w", err)
				}
				asOf = parsed
			}

			pool, err := connectDB(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			ctx := composables.WithPool(cmd.Context(), pool)
			repo := persistence.NewMasterDataRepository()
			snapshots := services.NewSnapshotService(repo, repo)

			roots, err := snapshots.ListTreeSnapshot(ctx, asOf, includeDeleted)
			if err != nil {
				return err
			}

			return writeJSON(treeOutput{Command: "tree", AsOf: asOf, Roots: roots})
		},
	}

	cmd.Flags().StringVar(&asOfRaw, "as-of", "", "Point in time, RFC3339 or YYYY-MM-DD (default now)")
	cmd.Flags().BoolVar(&includeDeleted, "include-deleted", false, "Include units already deleted at that time")
	return cmd
}

func parseTimeUTC(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
