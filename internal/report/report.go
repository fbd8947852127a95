// Package report aggregates classified attribute results and renders them
// for humans and machines.
package report

import (
	"context"

	"github.com/nixpr/nixpr/internal/nix"
)

// Report partitions attribute results into disjoint outcome buckets.
// Classification priority is significant: an attribute that is both broken
// and blacklisted lands in Broken. Within a bucket, insertion order is
// preserved so rendering is deterministic.
type Report struct {
	// System is the target platform the attributes were built for.
	System string `json:"system"`
	// RunID identifies the invocation that produced the report. It appears
	// in the JSON rendering and in the session's log fields so artifacts
	// and logs can be correlated.
	RunID string `json:"run_id,omitempty"`
	// PR is the reviewed pull request number, 0 when reviewing a revision.
	PR int `json:"pr,omitempty"`
	// Revision is the reviewed commit, empty when reviewing a PR.
	Revision string `json:"revision,omitempty"`

	Broken      []*nix.Attr `json:"broken"`
	Blacklisted []*nix.Attr `json:"blacklisted"`
	Skipped     []*nix.Attr `json:"skipped"`
	TimedOut    []*nix.Attr `json:"timed_out"`
	NonExistent []*nix.Attr `json:"non_existent"`
	Tests       []*nix.Attr `json:"tests"`
	Failed      []*nix.Attr `json:"failed"`
	Built       []*nix.Attr `json:"built"`
}

// Classify places every attribute into exactly one bucket, in strict
// priority order: broken, blacklisted, skipped, timed out, non-existent,
// test attribute, failed, built. The store is queried (once per attribute)
// to distinguish failed from built.
func Classify(ctx context.Context, attrs []*nix.Attr, store nix.PathVerifier, system string) *Report {
	r := &Report{System: system}

	for _, attr := range attrs {
		switch {
		case attr.Broken:
			r.Broken = append(r.Broken, attr)
		case attr.Blacklisted:
			r.Blacklisted = append(r.Blacklisted, attr)
		case attr.Skipped:
			r.Skipped = append(r.Skipped, attr)
		case attr.TimedOut:
			r.TimedOut = append(r.TimedOut, attr)
		case !attr.Exists:
			r.NonExistent = append(r.NonExistent, attr)
		case attr.IsTest():
			r.Tests = append(r.Tests, attr)
		case !attr.WasBuilt(ctx, store):
			r.Failed = append(r.Failed, attr)
		default:
			r.Built = append(r.Built, attr)
		}
	}

	return r
}

// Total returns the number of classified attributes.
func (r *Report) Total() int {
	return len(r.Broken) + len(r.Blacklisted) + len(r.Skipped) + len(r.TimedOut) +
		len(r.NonExistent) + len(r.Tests) + len(r.Failed) + len(r.Built)
}

// HasFailures reports whether any attribute failed to build. Used for the
// exit status in no-shell mode.
func (r *Report) HasFailures() bool {
	return len(r.Failed) > 0
}

// Succeeded returns the attributes a reviewer can inspect in a shell: built
// packages and passing tests.
func (r *Report) Succeeded() []*nix.Attr {
	out := make([]*nix.Attr, 0, len(r.Built)+len(r.Tests))
	out = append(out, r.Built...)
	out = append(out, r.Tests...)
	return out
}

// buckets returns the buckets in classification order with display labels.
// Shared by the renderers so the two formats can never disagree on order.
func (r *Report) buckets() []bucket {
	return []bucket{
		{"broken", "marked as broken and skipped", r.Broken},
		{"blacklisted", "blacklisted", r.Blacklisted},
		{"skipped", "skipped due to failed dependencies", r.Skipped},
		{"timed_out", "timed out", r.TimedOut},
		{"non_existent", "present in the diff but not found by evaluation", r.NonExistent},
		{"tests", "test attributes", r.Tests},
		{"failed", "failed to build", r.Failed},
		{"built", "built successfully", r.Built},
	}
}

type bucket struct {
	key   string
	label string
	attrs []*nix.Attr
}
