// Package diff computes the changed and removed package sets between two
// inventory snapshots of the package tree.
package diff

import "github.com/nixpr/nixpr/internal/nix"

// Change is a package that is new or rebuilt in the "after" snapshot.
type Change struct {
	// Package is the after-state record.
	Package nix.Package
	// Previous is the matching before-state record, nil for new packages.
	Previous *nix.Package
}

// IsNew reports whether the package did not exist before the change.
func (c Change) IsNew() bool {
	return c.Previous == nil
}

// Changed computes the symmetric difference of two snapshots with set
// semantics on the attribute path. A package counts as changed when it is
// new in after or when its store path differs from the before record.
// Whatever before-records are never matched by an after-record are returned
// as removed. Duplicate attribute paths within one snapshot are not
// modeled.
func Changed(before, after []nix.Package) (changed []Change, removed []nix.Package) {
	prior := make(map[string]nix.Package, len(before))
	for _, pkg := range before {
		prior[pkg.AttrPath] = pkg
	}

	for _, pkg := range after {
		prev, ok := prior[pkg.AttrPath]
		if !ok {
			changed = append(changed, Change{Package: pkg})
			continue
		}
		// Consume the match so leftovers become the removed list.
		delete(prior, pkg.AttrPath)
		if prev.StorePath != pkg.StorePath {
			prevCopy := prev
			changed = append(changed, Change{Package: pkg, Previous: &prevCopy})
		}
	}

	// Preserve before-snapshot order for the removed list so output is
	// deterministic.
	for _, pkg := range before {
		if _, ok := prior[pkg.AttrPath]; ok {
			removed = append(removed, pkg)
		}
	}

	return changed, removed
}

// AttrSet reduces a changed list to the set of attribute paths, which is
// what the filter and build stages consume.
func AttrSet(changed []Change) map[string]struct{} {
	set := make(map[string]struct{}, len(changed))
	for _, c := range changed {
		set[c.Package.AttrPath] = struct{}{}
	}
	return set
}
