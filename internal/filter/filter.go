// Package filter narrows a changed-attribute set by user-specified
// include and exclude criteria.
package filter

import (
	"fmt"
	"regexp"

	"github.com/rs/zerolog"

	nixprerrors "github.com/nixpr/nixpr/internal/errors"
	"github.com/nixpr/nixpr/internal/nix"
)

// Criteria holds the user's inclusion and exclusion rules.
type Criteria struct {
	// IncludeNames are attributes to build even if include regexes match
	// nothing. Each must be in the changed set or be a test attribute.
	IncludeNames []string
	// IncludeRegexes select changed attributes by pattern.
	IncludeRegexes []string
	// ExcludeNames are removed from the result after inclusion.
	ExcludeNames []string
	// ExcludeRegexes remove matching attributes after inclusion.
	ExcludeRegexes []string
}

// Empty reports whether no criteria of any kind are set.
func (c Criteria) Empty() bool {
	return len(c.IncludeNames) == 0 && len(c.IncludeRegexes) == 0 &&
		len(c.ExcludeNames) == 0 && len(c.ExcludeRegexes) == 0
}

// Apply narrows changed according to the criteria. Policy, in order:
//
//  1. No criteria at all: return changed unmodified.
//  2. Explicit include names must be in the changed set or be test
//     attributes; anything else is a fatal user error, never a silent drop.
//  3. Include regexes add their matches from the changed set.
//  4. If steps 2-3 selected nothing despite non-empty include criteria,
//     degrade to the full changed set rather than building nothing.
//  5. Explicit exclude names are removed.
//  6. Exclude regex matches are removed.
//
// The result is a set; ordering is not significant.
func Apply(changed map[string]struct{}, criteria Criteria, logger zerolog.Logger) (map[string]struct{}, error) {
	if criteria.Empty() {
		return changed, nil
	}

	includeRes, err := compileAll(criteria.IncludeRegexes)
	if err != nil {
		return nil, err
	}
	excludeRes, err := compileAll(criteria.ExcludeRegexes)
	if err != nil {
		return nil, err
	}

	selected := make(map[string]struct{})

	hasIncludes := len(criteria.IncludeNames) > 0 || len(includeRes) > 0
	if hasIncludes {
		for _, name := range criteria.IncludeNames {
			if _, ok := changed[name]; !ok && !nix.IsTestAttr(name) {
				return nil, fmt.Errorf("'%s': %w", name, nixprerrors.ErrUnknownAttribute)
			}
			selected[name] = struct{}{}
		}
		for attr := range changed {
			for _, re := range includeRes {
				if re.MatchString(attr) {
					selected[attr] = struct{}{}
					break
				}
			}
		}
		if len(selected) == 0 {
			logger.Warn().Msg("include filters matched nothing, falling back to full changed set")
			selected = cloneSet(changed)
		}
	} else {
		selected = cloneSet(changed)
	}

	for _, name := range criteria.ExcludeNames {
		delete(selected, name)
	}
	for attr := range selected {
		for _, re := range excludeRes {
			if re.MatchString(attr) {
				delete(selected, attr)
				break
			}
		}
	}

	return selected, nil
}

// compileAll compiles user patterns, converting a bad pattern into the
// fatal ErrInvalidRegex.
func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	res := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("'%s': %w: %w", pattern, nixprerrors.ErrInvalidRegex, err)
		}
		res = append(res, re)
	}
	return res, nil
}

func cloneSet(src map[string]struct{}) map[string]struct{} {
	dst := make(map[string]struct{}, len(src))
	for k := range src {
		dst[k] = struct{}{}
	}
	return dst
}
