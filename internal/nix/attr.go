// Package nix drives the external nix tooling for nixpr.
// This file defines the per-attribute build result.
package nix

import "context"

// Attr is the evaluated and built state of one attribute. It is mutated
// only by the Builder during the build pipeline; afterwards it is read-only
// report input.
type Attr struct {
	// Name is the canonical dotted attribute path.
	Name string
	// Exists reports whether evaluation found the attribute.
	Exists bool
	// Broken reports whether the attribute is marked broken or fails to
	// evaluate.
	Broken bool
	// Blacklisted reports membership in the fixed deny-list of attributes
	// known to wedge the build engine.
	Blacklisted bool
	// Path is the evaluated output path, empty if unknown.
	Path string
	// DrvPath is the derivation path, empty if unknown.
	DrvPath string
	// Aliases are other attribute paths that evaluate to the same output,
	// ordered by preference (shortest first, lexicographic on ties).
	Aliases []string
	// Skipped is set when the build engine skipped the attribute because a
	// dependency failed.
	Skipped bool
	// TimedOut is set when the build engine reported a timeout for the
	// attribute.
	TimedOut bool

	// wasBuilt is an explicit memoization cell: nil until the store has
	// been queried, then fixed for the lifetime of the instance. The store
	// is never re-queried after the first check.
	wasBuilt *bool
}

// PathVerifier checks whether a store path is present and valid.
type PathVerifier interface {
	VerifyPath(ctx context.Context, path string) bool
}

// WasBuilt reports whether the attribute's output exists in the build store.
// The store query runs at most once per Attr; the answer is cached even if
// the store changes afterwards.
func (a *Attr) WasBuilt(ctx context.Context, store PathVerifier) bool {
	if a.wasBuilt != nil {
		return *a.wasBuilt
	}

	built := a.Exists && !a.Broken && a.Path != "" && store.VerifyPath(ctx, a.Path)
	a.wasBuilt = &built
	return built
}

// IsTest reports whether the attribute belongs to the test category of the
// package tree. Test attributes are exempt from the changed-set membership
// requirement when named explicitly, because CI evaluation may not surface
// them.
func (a *Attr) IsTest() bool {
	return IsTestAttr(a.Name)
}

// IsTestAttr reports whether name is a test-category attribute path.
func IsTestAttr(name string) bool {
	const testPrefix = "nixosTests."
	return len(name) > len(testPrefix) && name[:len(testPrefix)] == testPrefix
}
