package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RonnyPfannschmidt/git-patchdance/internal/config"
	"github.com/RonnyPfannschmidt/git-patchdance/internal/engine"
	"github.com/RonnyPfannschmidt/git-patchdance/internal/gitrepo"
	"github.com/RonnyPfannschmidt/git-patchdance/internal/journal"
	"github.com/RonnyPfannschmidt/git-patchdance/internal/logging"
)

const version = "0.1.0"

// NewRootCmd builds the patchdance command tree. This surface is a
// non-interactive, JSON-emitting front-end over the Engine API -- the
// interactive history-surgery TUI spec.md describes is out of scope
// here; these subcommands exist to drive and script that same engine
// from the shell.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "patchdance",
		Short:   "Rearrange git history at the patch level",
		Long:    "patchdance moves, splits, merges, and synthesizes commits by operating on the individual file patches that make them up, not whole commits at a time.",
		Version: version,
	}

	rootCmd.PersistentFlags().String("repo", ".", "path to the git repository to operate on")

	rootCmd.AddCommand(newExtractCmd())
	rootCmd.AddCommand(newPreviewCmd())
	rootCmd.AddCommand(newApplyCmd())
	rootCmd.AddCommand(newRecoverCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

// openEngine loads config, wires a logger and journal, and opens repo
// at the --repo flag's path, returning both the Engine and the
// repository the subcommand should operate against.
func openEngine(cmd *cobra.Command) (*engine.Engine, gitrepo.Repository, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	log, err := logging.NewLogger(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing logger: %w", err)
	}

	db, err := journal.Open(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("opening operation journal: %w", err)
	}
	j := journal.New(db)

	committer := gitrepo.CommitSignature{Name: "patchdance", Email: "patchdance@localhost"}
	e := engine.New(cfg, j, log, committer)

	repoPath, err := cmd.Flags().GetString("repo")
	if err != nil {
		return nil, nil, err
	}
	repo, err := e.OpenRepository(repoPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening repository at %s: %w", repoPath, err)
	}

	return e, repo, nil
}
