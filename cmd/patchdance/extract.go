package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RonnyPfannschmidt/git-patchdance/internal/diffmodel"
)

func newExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <commit>",
		Short: "List the patches one commit applies relative to its first parent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, repo, err := openEngine(cmd)
			if err != nil {
				return err
			}

			commit := diffmodel.NewCommitId(args[0])
			patches, err := e.ExtractPatches(cmd.Context(), repo, commit)
			if err != nil {
				return fmt.Errorf("extract: %w", err)
			}

			return json.NewEncoder(cmd.OutOrStdout()).Encode(toPatchViews(patches))
		},
	}
	return cmd
}
