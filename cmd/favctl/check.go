package main

import (
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/hermanshu/targ-site-sub000/internal/favorites"
	"github.com/hermanshu/targ-site-sub000/internal/store"
)

var errNeedsRepair = errors.New("stored data needs repair")

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [owner-id...]",
		Short: "Verify stored favorites and optionally write repairs",
		Long: "Verify stored favorites for the given owners, or for every owner\n" +
			"with --all. --all also reports share index entries that no folder\n" +
			"holds. --fix writes repairs and removes those entries.",
		Args: func(cmd *cobra.Command, args []string) error {
			all, _ := cmd.Flags().GetBool("all")
			switch {
			case all && len(args) > 0:
				return errors.New("give owner IDs or --all, not both")
			case !all && len(args) == 0:
				return errors.New("requires at least one owner ID or --all")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, log, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer adapter.Close()

			ctx := cmd.Context()
			all, _ := cmd.Flags().GetBool("all")
			fix, _ := cmd.Flags().GetBool("fix")
			out := cmd.OutOrStdout()

			owners := args
			var scanner store.Scanner
			if all {
				var ok bool
				if scanner, ok = adapter.(store.Scanner); !ok {
					return errors.New("storage driver cannot list owners")
				}
				if owners, err = store.Owners(ctx, scanner); err != nil {
					return fmt.Errorf("list owners: %w", err)
				}
			}

			broken := 0
			held := make(map[string][]string, len(owners)) // owner -> share tokens its folders carry

			for _, ownerID := range owners {
				ownerLog := log.ForOwner(ownerID)

				f, err := favorites.Open(ctx, ownerID, adapter, favorites.WithLogger(log.Logger))
				if err != nil {
					ownerLog.WithError(err).Error("load failed")
					return fmt.Errorf("load %s: %w", ownerID, err)
				}
				for _, folder := range f.Snapshot().Folders {
					held[ownerID] = append(held[ownerID], folder.ShareToken)
				}

				repairs := f.Repairs()
				if len(repairs) == 0 {
					fmt.Fprintf(out, "%s: ok\n", ownerID)
					continue
				}
				for _, r := range repairs {
					fmt.Fprintf(out, "%s: %s\n", ownerID, r)
				}
				if !fix {
					broken++
					continue
				}
				if err := f.Persist(ctx); err != nil {
					return fmt.Errorf("write repairs for %s: %w", ownerID, err)
				}
				ownerLog.Info("repairs written", "count", len(repairs))
				fmt.Fprintf(out, "%s: repaired\n", ownerID)
			}

			if scanner != nil {
				orphans, err := orphanedShares(cmd, scanner, held)
				if err != nil {
					return err
				}
				for _, token := range orphans {
					fmt.Fprintf(out, "share %s: no folder holds this token\n", token)
					if !fix {
						broken++
						continue
					}
					if err := adapter.Delete(ctx, store.ShareKey(token)); err != nil {
						return fmt.Errorf("remove share entry %s: %w", token, err)
					}
					fmt.Fprintf(out, "share %s: removed\n", token)
				}
			}

			if broken > 0 {
				return fmt.Errorf("%d problem(s): %w (run with --fix)", broken, errNeedsRepair)
			}
			return nil
		},
	}
	cmd.Flags().Bool("all", false, "check every owner in the store")
	cmd.Flags().Bool("fix", false, "write the repaired data back to the store")
	return cmd
}

// orphanedShares returns the sorted tokens of share index entries whose
// owner has no folder carrying the token.
func orphanedShares(cmd *cobra.Command, sc store.Scanner, held map[string][]string) ([]string, error) {
	index, err := store.ShareIndex(cmd.Context(), sc)
	if err != nil {
		return nil, fmt.Errorf("read share index: %w", err)
	}

	var orphans []string
	for token, owner := range index {
		if !slices.Contains(held[owner], token) {
			orphans = append(orphans, token)
		}
	}
	slices.Sort(orphans)
	return orphans, nil
}
