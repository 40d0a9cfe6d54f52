package main

import (
	"encoding/json"
	"fmt"

	"github.com/RonnyPfannschmidt/git-patchdance/internal/diffmodel"
)

// operationEnvelope is the on-wire JSON shape for diffmodel.Operation,
// which as a sum type has no default (un)marshaling support: a "kind"
// discriminator plus the fields relevant to that kind. Unused fields
// for a given kind are simply omitted by the caller.
type operationEnvelope struct {
	Kind string `json:"kind"`

	// move_patch
	PatchID    string `json:"patch_id,omitempty"`
	FromCommit string `json:"from_commit,omitempty"`
	ToCommit   string `json:"to_commit,omitempty"`

	// split_commit
	SourceCommit string             `json:"source_commit,omitempty"`
	NewCommits   []newCommitPayload `json:"new_commits,omitempty"`

	// create_commit
	Patches []string `json:"patches,omitempty"`
	Message string   `json:"message,omitempty"`

	// merge_commits
	CommitIDs []string `json:"commit_ids,omitempty"`

	// shared insertion point for move_patch and create_commit
	Position *positionPayload `json:"position,omitempty"`
}

type newCommitPayload struct {
	Message  string           `json:"message"`
	Patches  []string         `json:"patches"`
	Position *positionPayload `json:"position,omitempty"`
}

type positionPayload struct {
	Kind   string `json:"kind"` // "before", "after", or "at_branch_head"
	Commit string `json:"commit,omitempty"`
}

func decodeOperation(raw []byte) (diffmodel.Operation, error) {
	var env operationEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decoding operation: %w", err)
	}

	switch env.Kind {
	case "move_patch":
		pos, err := decodePosition(env.Position)
		if err != nil {
			return nil, err
		}
		return diffmodel.MovePatch{
			PatchID:    diffmodel.PatchId(env.PatchID),
			FromCommit: diffmodel.NewCommitId(env.FromCommit),
			ToCommit:   diffmodel.NewCommitId(env.ToCommit),
			Position:   pos,
		}, nil

	case "split_commit":
		newCommits := make([]diffmodel.NewCommit, len(env.NewCommits))
		for i, nc := range env.NewCommits {
			pos, err := decodePosition(nc.Position)
			if err != nil {
				return nil, err
			}
			newCommits[i] = diffmodel.NewCommit{
				Message:  nc.Message,
				Patches:  toPatchIDs(nc.Patches),
				Position: pos,
			}
		}
		return diffmodel.SplitCommit{
			SourceCommit: diffmodel.NewCommitId(env.SourceCommit),
			NewCommits:   newCommits,
		}, nil

	case "create_commit":
		pos, err := decodePosition(env.Position)
		if err != nil {
			return nil, err
		}
		return diffmodel.CreateCommit{
			Patches:  toPatchIDs(env.Patches),
			Message:  env.Message,
			Position: pos,
		}, nil

	case "merge_commits":
		ids := make([]diffmodel.CommitId, len(env.CommitIDs))
		for i, c := range env.CommitIDs {
			ids[i] = diffmodel.NewCommitId(c)
		}
		return diffmodel.MergeCommits{CommitIDs: ids, Message: env.Message}, nil

	default:
		return nil, fmt.Errorf("unknown operation kind %q", env.Kind)
	}
}

func decodePosition(p *positionPayload) (diffmodel.InsertPosition, error) {
	if p == nil {
		return diffmodel.AtBranchHead{}, nil
	}
	switch p.Kind {
	case "before":
		return diffmodel.Before{Commit: diffmodel.NewCommitId(p.Commit)}, nil
	case "after":
		return diffmodel.After{Commit: diffmodel.NewCommitId(p.Commit)}, nil
	case "at_branch_head", "":
		return diffmodel.AtBranchHead{}, nil
	default:
		return nil, fmt.Errorf("unknown position kind %q", p.Kind)
	}
}

func toPatchIDs(ss []string) []diffmodel.PatchId {
	ids := make([]diffmodel.PatchId, len(ss))
	for i, s := range ss {
		ids[i] = diffmodel.PatchId(s)
	}
	return ids
}

// patchView is the JSON-friendly projection of a diffmodel.Patch:
// CommitId and PatchId carry unexported fields, so they need an
// explicit string conversion rather than falling out of
// encoding/json's struct reflection.
type patchView struct {
	ID           string `json:"id"`
	SourceCommit string `json:"source_commit"`
	TargetFile   string `json:"target_file"`
	HunkCount    int    `json:"hunk_count"`
	Binary       bool   `json:"binary"`
}

func toPatchViews(patches []diffmodel.Patch) []patchView {
	out := make([]patchView, len(patches))
	for i, p := range patches {
		out[i] = patchView{
			ID:           string(p.ID),
			SourceCommit: p.SourceCommit.Full(),
			TargetFile:   p.TargetFile,
			HunkCount:    len(p.Hunks),
			Binary:       p.Binary,
		}
	}
	return out
}

func toCommitStrings(ids []diffmodel.CommitId) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.Full()
	}
	return out
}
