package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RonnyPfannschmidt/git-patchdance/internal/diffmodel"
)

func newApplyCmd() *cobra.Command {
	var opFile string
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Execute an operation as a full rewrite transaction",
		RunE: func(cmd *cobra.Command, args []string) error {
			op, err := readOperation(opFile)
			if err != nil {
				return err
			}

			e, repo, err := openEngine(cmd)
			if err != nil {
				return err
			}

			result, err := e.ApplyOperation(cmd.Context(), repo, op)
			if err != nil {
				if aborted, ok := err.(*diffmodel.TransactionAbortedError); ok {
					fmt.Fprintf(cmd.ErrOrStderr(), "transaction %s rolled back; run `patchdance recover %s` to restore the previous head if needed\n", aborted.OperationID, aborted.OperationID)
				}
				return fmt.Errorf("apply: %w", err)
			}

			out := resultView{
				Success:         result.Success,
				NewCommitIDs:    toCommitStrings(result.NewCommitIDs),
				ModifiedCommits: toCommitStrings(result.ModifiedCommits),
				Message:         result.Message,
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(out)
		},
	}
	cmd.Flags().StringVar(&opFile, "operation", "", "path to a JSON-encoded operation, or \"-\" for stdin")
	cmd.MarkFlagRequired("operation")
	return cmd
}

type resultView struct {
	Success         bool     `json:"success"`
	NewCommitIDs    []string `json:"new_commit_ids"`
	ModifiedCommits []string `json:"modified_commits"`
	Message         string   `json:"message"`
}
