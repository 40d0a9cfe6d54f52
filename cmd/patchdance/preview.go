package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/RonnyPfannschmidt/git-patchdance/internal/diffmodel"
)

func newPreviewCmd() *cobra.Command {
	var opFile string
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Forecast an operation's effect without mutating the repository",
		RunE: func(cmd *cobra.Command, args []string) error {
			op, err := readOperation(opFile)
			if err != nil {
				return err
			}

			e, repo, err := openEngine(cmd)
			if err != nil {
				return err
			}

			preview, err := e.PreviewOperation(cmd.Context(), repo, op)
			if err != nil {
				return fmt.Errorf("preview: %w", err)
			}

			out := previewView{
				AffectedCommits: toCommitStrings(preview.AffectedCommits),
				Changes:         preview.Changes,
				Conflicts:       preview.PotentialConflicts,
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(out)
		},
	}
	cmd.Flags().StringVar(&opFile, "operation", "", "path to a JSON-encoded operation, or \"-\" for stdin")
	cmd.MarkFlagRequired("operation")
	return cmd
}

type previewView struct {
	AffectedCommits []string                 `json:"affected_commits"`
	Changes         []diffmodel.ChangeSummary `json:"changes"`
	Conflicts       []diffmodel.Conflict      `json:"potential_conflicts"`
}

func readOperation(path string) (diffmodel.Operation, error) {
	var raw []byte
	var err error
	if path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading operation from %s: %w", path, err)
	}
	return decodeOperation(raw)
}
