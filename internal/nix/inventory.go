// Package nix drives the external nix tooling for nixpr.
// This file implements the package inventory: a streaming parse of
// `nix-env -qaP --xml` output into package records.
package nix

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/rs/zerolog"

	nixprerrors "github.com/nixpr/nixpr/internal/errors"
)

// Package is one buildable target of the package tree at a specific
// revision. Records are immutable once parsed. Identity for diffing is
// AttrPath; "changed" means StorePath inequality.
type Package struct {
	// AttrPath is the dotted attribute identifier, unique per snapshot.
	AttrPath string `json:"attr_path"`
	// Name is the derivation name, usually "<pname>-<version>".
	Name string `json:"name"`
	// Version is empty for unversioned packages.
	Version string `json:"version,omitempty"`
	// StorePath is the platform-specific output path. Records without one
	// are dropped during listing.
	StorePath string `json:"store_path"`
	// Homepage, Description and Position are only populated when metadata
	// was requested.
	Homepage    string `json:"homepage,omitempty"`
	Description string `json:"description,omitempty"`
	Position    string `json:"position,omitempty"`
}

// Lister produces inventory snapshots of a package tree checkout.
type Lister struct {
	exec   Executor
	logger zerolog.Logger
	cache  *InventoryCache // nil disables caching
}

// NewLister creates a Lister. cache may be nil to disable the advisory
// on-disk cache.
func NewLister(exec Executor, cache *InventoryCache, logger zerolog.Logger) *Lister {
	return &Lister{exec: exec, cache: cache, logger: logger}
}

// List invokes the package query for the given checkout and target system
// and parses its streaming XML output. When withMeta is false the metadata
// fields are omitted, which is noticeably faster and is what the "before"
// snapshot uses since its metadata is discarded anyway.
//
// Results may be served from the advisory cache; a miss or any cache error
// falls through to a real listing transparently.
func (l *Lister) List(ctx context.Context, worktree, system string, withMeta bool) ([]Package, error) {
	if pkgs, ok := l.cacheGet(ctx, worktree, system, withMeta); ok {
		return pkgs, nil
	}

	args := []string{
		"--option", "system", system,
		"-f", worktree,
		"-qaP", "--xml", "--out-path",
	}
	if withMeta {
		args = append(args, "--meta")
	}

	l.logger.Debug().
		Str("system", system).
		Bool("with_meta", withMeta).
		Msg("listing packages")

	stream, wait, err := l.exec.Stream(ctx, worktree, nil, "nix-env", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to start package listing: %w", err)
	}

	pkgs, parseErr := parseInventory(stream)
	_ = stream.Close()
	if waitErr := wait(); waitErr != nil {
		return nil, fmt.Errorf("package listing failed: %w", waitErr)
	}
	if parseErr != nil {
		return nil, parseErr
	}

	l.cachePut(ctx, worktree, system, withMeta, pkgs)
	return pkgs, nil
}

// parseInventory decodes the query XML incrementally. The document is a
// sequence of item elements carrying an attribute path, nested output
// elements with store paths, and (when requested) nested meta elements.
// Items without an "out" output are dropped.
func parseInventory(r io.Reader) ([]Package, error) {
	dec := xml.NewDecoder(r)

	var pkgs []Package
	var cur *Package
	var curMeta string     // name of the meta element being read, if any
	var metaParts []string // collected values for string-list metadata

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", nixprerrors.ErrMalformedInventory, err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "item":
				cur = &Package{}
				for _, a := range el.Attr {
					switch a.Name.Local {
					case "attrPath":
						cur.AttrPath = a.Value
					case "name":
						cur.Name = a.Value
					case "version":
						cur.Version = a.Value
					}
				}
				if cur.Version == "" {
					cur.Version = versionFromName(cur.Name)
				}
			case "output":
				if cur == nil {
					continue
				}
				var name, path string
				for _, a := range el.Attr {
					switch a.Name.Local {
					case "name":
						name = a.Value
					case "path":
						path = a.Value
					}
				}
				if name == "out" {
					cur.StorePath = path
				}
			case "meta":
				if cur == nil {
					continue
				}
				curMeta = ""
				metaParts = metaParts[:0]
				var value string
				var typ string
				for _, a := range el.Attr {
					switch a.Name.Local {
					case "name":
						curMeta = a.Value
					case "type":
						typ = a.Value
					case "value":
						value = a.Value
					}
				}
				if typ == "string" {
					setMeta(cur, curMeta, value)
					curMeta = ""
				}
				// For "strings" metadata the values arrive as nested
				// string elements and are joined on element end.
			case "string":
				if cur != nil && curMeta != "" {
					for _, a := range el.Attr {
						if a.Name.Local == "value" {
							metaParts = append(metaParts, a.Value)
						}
					}
				}
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "meta":
				if cur != nil && curMeta != "" {
					setMeta(cur, curMeta, strings.Join(metaParts, ", "))
					curMeta = ""
				}
			case "item":
				if cur != nil && cur.StorePath != "" && cur.AttrPath != "" {
					pkgs = append(pkgs, *cur)
				}
				cur = nil
			}
		}
	}

	return pkgs, nil
}

// setMeta assigns a metadata value to the matching record field. Unknown
// metadata names are ignored.
func setMeta(p *Package, name, value string) {
	switch name {
	case "homepage":
		p.Homepage = value
	case "description":
		p.Description = value
	case "position":
		p.Position = value
	}
}

// versionFromName extracts the version suffix from a derivation name of the
// form "<pname>-<version>". Returns the empty string for unversioned names.
func versionFromName(name string) string {
	for i := 0; i < len(name)-1; i++ {
		if name[i] == '-' && unicode.IsDigit(rune(name[i+1])) {
			return name[i+1:]
		}
	}
	return ""
}
