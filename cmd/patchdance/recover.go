package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRecoverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recover <operation-id>",
		Short: "Restore a repository's branch ref from a failed transaction's backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, repo, err := openEngine(cmd)
			if err != nil {
				return err
			}

			if err := e.Recover(cmd.Context(), repo, args[0]); err != nil {
				return fmt.Errorf("recover: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "restored branch ref from backup for operation %s\n", args[0])
			return nil
		},
	}
	return cmd
}
