package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hermanshu/targ-site-sub000/internal/favorites"
)

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <owner-id>",
		Short: "Print an owner's favorites, folders and assignments",
		Long: "Print an owner's stored data as JSON, after the same repairs the\n" +
			"server applies on load. Use check to see what was repaired.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, log, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer adapter.Close()

			f, err := favorites.Open(cmd.Context(), args[0], adapter, favorites.WithLogger(log.Logger))
			if err != nil {
				return fmt.Errorf("load %s: %w", args[0], err)
			}

			if summary, _ := cmd.Flags().GetBool("summary"); summary {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"owner_id": args[0],
					"saved":    len(f.Repository().List()),
					"unfiled":  len(f.Index().ItemsUnfiled()),
					"folders":  f.FolderSummaries(),
				})
			}
			return writeJSON(cmd.OutOrStdout(), f.Snapshot())
		},
	}
	cmd.Flags().Bool("summary", false, "print counts per folder instead of the full data")
	return cmd
}
