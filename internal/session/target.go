// Package session coordinates a full review: workspace, revisions,
// inventories, diff, filter, build and report.
// This file defines review targets and the three ways a target establishes
// the revised tree.
package session

import (
	"fmt"

	"github.com/nixpr/nixpr/internal/git"
)

// Target identifies one thing to review. Exactly one of PR, Rev or Wip is
// set.
type Target struct {
	// PR is a pull request number.
	PR int
	// Rev is a commit expression reviewed against its parent.
	Rev string
	// Wip reviews the uncommitted local diff.
	Wip bool
}

// Name derives the workspace name for the target.
func (t Target) Name() string {
	switch {
	case t.PR != 0:
		return fmt.Sprintf("pr-%d", t.PR)
	case t.Rev != "":
		return "rev-" + git.ShortRev(t.Rev)
	default:
		return "wip"
	}
}

// String describes the target for logs and error messages.
func (t Target) String() string {
	switch {
	case t.PR != 0:
		return fmt.Sprintf("pr %d", t.PR)
	case t.Rev != "":
		return "rev " + git.ShortRev(t.Rev)
	default:
		return "wip"
	}
}

// changeKind discriminates the three ways the revised tree is established.
type changeKind int

const (
	// changeMerge merges a head revision into the checked-out base.
	changeMerge changeKind = iota
	// changeCommit checks out a revision directly. When the changed
	// attribute set was supplied externally (CI evaluation gist), the
	// before-inventory and diff are skipped entirely.
	changeCommit
	// changeDiff applies an uncommitted local diff.
	changeDiff
)

// change is the tagged variant dispatched once at the start of a target
// review. Every case produces the same downstream artifact: an
// after-inventory, or an externally supplied attribute set.
type change struct {
	kind changeKind

	// baseRev is where the workspace starts for every kind.
	baseRev string
	// headRev is the revision merged (changeMerge) or checked out
	// (changeCommit).
	headRev string
	// patch is the diff text for changeDiff.
	patch string
	// attrs is the externally supplied changed-attribute set; non-nil only
	// for changeCommit with a CI evaluation gist.
	attrs []string
}
